package document

// Update is a partial document update. Nil fields are left untouched;
// a non-nil field replaces the current value wholesale.
type Update struct {
	Title    *string
	Content  *string
	DocType  *string
	Tags     *[]string
	Metadata *map[string]string
	Public   *bool
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.DocType == nil &&
		u.Tags == nil && u.Metadata == nil && u.Public == nil
}

// HasContent reports whether the update replaces the document content,
// which forces a full re-chunk and re-embed.
func (u Update) HasContent() bool { return u.Content != nil }
