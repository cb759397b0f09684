package models

// Directory maps record ids to records for one resource type.
type Directory map[string]Record

// NewDirectory indexes items by id. Items without an id are skipped
// and counted in the second result.
func NewDirectory(items []Record) (Directory, int) {
	dir := make(Directory, len(items))
	skipped := 0
	for _, item := range items {
		id := item.ID()
		if id == "" {
			skipped++
			continue
		}
		dir[id] = item
	}
	return dir, skipped
}

// Name resolves id to the entry's "name" field, falling back to the id
// itself when the entry is missing or unnamed.
func (d Directory) Name(id string) string {
	if entry, ok := d[id]; ok {
		if name := entry.String(FieldName); name != "" {
			return name
		}
	}
	return id
}
