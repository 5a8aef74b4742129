package tabular

import "strings"

// HeaderIndex resolves column names to record positions case-insensitively.
// It is built once per job from the stored headers; per-row lookups are
// map hits.
type HeaderIndex struct {
	byName map[string]int
	count  int
}

// NewHeaderIndex builds an index over headers. When two headers collide
// case-insensitively the first occurrence wins.
func NewHeaderIndex(headers []string) *HeaderIndex {
	ix := &HeaderIndex{
		byName: make(map[string]int, len(headers)),
		count:  len(headers),
	}
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := ix.byName[key]; !ok {
			ix.byName[key] = i
		}
	}
	return ix
}

// Lookup returns the position of the column matched case-insensitively.
func (ix *HeaderIndex) Lookup(name string) (int, bool) {
	i, ok := ix.byName[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Len returns the number of columns the index was built from.
func (ix *HeaderIndex) Len() int { return ix.count }

// Value returns the field of record under the named column, or "" when
// the name is unknown or the record is too short to hold the column.
func (ix *HeaderIndex) Value(record []string, name string) string {
	i, ok := ix.Lookup(name)
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
