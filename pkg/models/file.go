package models

// File field names as returned by files.list.
const (
	FieldID         = "id"
	FieldMimetype   = "mimetype"
	FieldSize       = "size"
	FieldCreated    = "created"
	FieldUpdated    = "updated"
	FieldIsPublic   = "is_public"
	FieldNumStarred = "num_starred"
	FieldPinnedTo   = "pinned_to"
	FieldChannels   = "channels"
	FieldName       = "name"
)

// FileRecord is a read-only view over a file Record.
type FileRecord struct {
	Record
}

// AsFile wraps r as a FileRecord.
func AsFile(r Record) FileRecord {
	return FileRecord{Record: r}
}

// Mimetype returns the file's mimetype.
func (f FileRecord) Mimetype() string { return f.String(FieldMimetype) }

// Size returns the size in bytes (0 if absent).
func (f FileRecord) Size() int64 {
	n, _ := f.Int(FieldSize)
	return n
}

// Created returns the creation Unix timestamp.
func (f FileRecord) Created() int64 {
	n, _ := f.Int(FieldCreated)
	return n
}

// EffectiveUpdated returns "updated" when present, else "created".
func (f FileRecord) EffectiveUpdated() int64 {
	if n, ok := f.Int(FieldUpdated); ok {
		return n
	}
	return f.Created()
}

// IsPublic reports the is_public flag.
func (f FileRecord) IsPublic() bool { return f.Bool(FieldIsPublic) }

// NumStarred returns num_starred, treating absence as zero.
func (f FileRecord) NumStarred() int64 {
	n, _ := f.Int(FieldNumStarred)
	return n
}

// IsPinned reports whether pinned_to is present and non-empty.
func (f FileRecord) IsPinned() bool {
	return len(f.List(FieldPinnedTo)) > 0
}

// Channels returns the channel ids (or names, after enrichment).
func (f FileRecord) Channels() []string { return f.Strings(FieldChannels) }
