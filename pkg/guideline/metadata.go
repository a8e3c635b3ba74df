package guideline

import "strings"

// Metadata keys stored with every indexed chunk.
const (
	MetaRefID      = "ref_id"
	MetaTitle      = "title"
	MetaURL        = "url"
	MetaTechniques = "techniques"
	MetaFailures   = "failures"
)

// ListDelimiter joins techniques and failures into a single metadata value.
const ListDelimiter = "|"

// Metadata flattens the record into scalar string fields.
func (r Record) Metadata() map[string]string {
	return map[string]string{
		MetaRefID:      r.RefID,
		MetaTitle:      r.Title,
		MetaURL:        r.URL,
		MetaTechniques: strings.Join(r.Techniques, ListDelimiter),
		MetaFailures:   strings.Join(r.Failures, ListDelimiter),
	}
}

// FromMetadata rebuilds a record from chunk metadata. The description is set
// to the supplied text since the full description is not stored as metadata.
// Missing keys decode to empty values.
func FromMetadata(meta map[string]string, text string) Record {
	return Record{
		RefID:       meta[MetaRefID],
		Title:       meta[MetaTitle],
		Description: text,
		URL:         meta[MetaURL],
		Techniques:  splitList(meta[MetaTechniques]),
		Failures:    splitList(meta[MetaFailures]),
	}
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ListDelimiter)
}
