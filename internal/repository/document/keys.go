package document

import "github.com/kailas-cloud/knowbase/internal/domain"

// Key layout:
//
//	knowbase:doc:<id>               document hash
//	knowbase:doc:<id>:chunks        set of chunk ids for the document
//	knowbase:chunk:<id>             chunk hash
//	knowbase:idx:doc:owner:<owner>  secondary index sets (doc ids)
//	knowbase:idx:doc:type:<type>
//	knowbase:idx:doc:tag:<tag>
//	knowbase:idx:doc:public
//	knowbase:idx:chunk:owner:<owner>  same, chunk side (chunk ids)
//	knowbase:idx:chunk:type:<type>
//	knowbase:idx:chunk:tag:<tag>
//	knowbase:idx:chunk:public

func docKey(id string) string         { return domain.KeyPrefix + "doc:" + id }
func docChunksKey(id string) string   { return domain.KeyPrefix + "doc:" + id + ":chunks" }
func chunkKey(id string) string       { return domain.KeyPrefix + "chunk:" + id }
func docOwnerKey(owner string) string { return domain.KeyPrefix + "idx:doc:owner:" + owner }
func docTypeKey(t string) string      { return domain.KeyPrefix + "idx:doc:type:" + t }
func docTagKey(tag string) string     { return domain.KeyPrefix + "idx:doc:tag:" + tag }

func docPublicKey() string { return domain.KeyPrefix + "idx:doc:public" }

func chunkOwnerKey(owner string) string { return domain.KeyPrefix + "idx:chunk:owner:" + owner }
func chunkTypeKey(t string) string      { return domain.KeyPrefix + "idx:chunk:type:" + t }
func chunkTagKey(tag string) string     { return domain.KeyPrefix + "idx:chunk:tag:" + tag }

func chunkPublicKey() string { return domain.KeyPrefix + "idx:chunk:public" }
