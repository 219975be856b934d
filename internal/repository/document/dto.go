package document

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/knowbase/internal/domain/chunk"
	"github.com/kailas-cloud/knowbase/internal/domain/document"
)

// Hash field names for document and chunk records.
const (
	fieldTitle     = "title"
	fieldContent   = "content"
	fieldDocType   = "doc_type"
	fieldTags      = "tags"
	fieldOwnerID   = "owner_id"
	fieldOrgID     = "org_id"
	fieldPublic    = "public"
	fieldVector    = "vector"
	fieldMetadata  = "metadata"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"

	fieldDocumentID = "document_id"
	fieldPosition   = "position"
)

func docToFields(doc *document.Document) (map[string]string, error) {
	tags, err := json.Marshal(doc.Tags())
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(doc.Metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return map[string]string{
		fieldTitle:     doc.Title(),
		fieldContent:   doc.Content(),
		fieldDocType:   doc.DocType(),
		fieldTags:      string(tags),
		fieldOwnerID:   doc.OwnerID(),
		fieldOrgID:     doc.OrgID(),
		fieldPublic:    boolToField(doc.Public()),
		fieldVector:    encodeVector(doc.Vector()),
		fieldMetadata:  string(meta),
		fieldCreatedAt: doc.CreatedAt().UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt: doc.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}, nil
}

func docFromFields(id string, fields map[string]string) (document.Document, error) {
	var tags []string
	if raw := fields[fieldTags]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return document.Document{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	var metadata map[string]string
	if raw := fields[fieldMetadata]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return document.Document{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	vector, err := decodeVector(fields[fieldVector])
	if err != nil {
		return document.Document{}, err
	}
	createdAt, err := parseTimeField(fields[fieldCreatedAt])
	if err != nil {
		return document.Document{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTimeField(fields[fieldUpdatedAt])
	if err != nil {
		return document.Document{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return document.Reconstruct(
		id,
		fields[fieldTitle],
		fields[fieldContent],
		fields[fieldDocType],
		tags,
		metadata,
		fields[fieldOwnerID],
		fields[fieldOrgID],
		fields[fieldPublic] == "1",
		vector,
		createdAt,
		updatedAt,
	), nil
}

func chunkToFields(c *chunk.Chunk) (map[string]string, error) {
	meta := c.Meta()
	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal chunk tags: %w", err)
	}

	return map[string]string{
		fieldDocumentID: c.DocumentID(),
		fieldContent:    c.Content(),
		fieldPosition:   strconv.Itoa(c.Position()),
		fieldVector:     encodeVector(c.Vector()),
		fieldTitle:      meta.Title,
		fieldDocType:    meta.DocType,
		fieldTags:       string(tags),
		fieldOwnerID:    meta.OwnerID,
		fieldOrgID:      meta.OrgID,
		fieldPublic:     boolToField(meta.Public),
	}, nil
}

func chunkFromFields(id string, fields map[string]string) (chunk.Chunk, error) {
	position, err := strconv.Atoi(fields[fieldPosition])
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("parse chunk position: %w", err)
	}
	vector, err := decodeVector(fields[fieldVector])
	if err != nil {
		return chunk.Chunk{}, err
	}
	var tags []string
	if raw := fields[fieldTags]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return chunk.Chunk{}, fmt.Errorf("unmarshal chunk tags: %w", err)
		}
	}

	return chunk.New(
		id,
		fields[fieldDocumentID],
		fields[fieldContent],
		position,
		vector,
		chunk.Meta{
			Title:   fields[fieldTitle],
			DocType: fields[fieldDocType],
			Tags:    tags,
			OwnerID: fields[fieldOwnerID],
			OrgID:   fields[fieldOrgID],
			Public:  fields[fieldPublic] == "1",
		},
	), nil
}

// encodeVector packs float32 coordinates little-endian and base64-encodes them.
// Hash field values must be valid strings; raw float bytes are not.
func encodeVector(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeVector(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

func parseTimeField(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func boolToField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
