package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Display fallbacks for publication fields that arrive empty or malformed.
const (
	FallbackTitle      = "Untitled"
	FallbackAuthor     = "Unknown Author"
	FallbackValue      = "N/A"
	FallbackDepartment = "Department not specified"
)

// FlexName decodes a field that historically arrived either as a plain scalar
// or as a nested reference object. The upstream API schema changed across
// versions, so every displayed field goes through one rule: an object resolves
// to its "name" property, a scalar is stringified, and anything without a
// usable name downgrades to empty so the display fallbacks apply. Raw objects
// are never rendered as text.
type FlexName string

// UnmarshalJSON never returns an error; a field that cannot be resolved to a
// display string downgrades to empty rather than poisoning the whole result
// page.
func (f *FlexName) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexName(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			*f = ""
			return nil
		}
		if raw, ok := obj["name"]; ok {
			var nested FlexName
			_ = nested.UnmarshalJSON(raw)
			*f = nested
			return nil
		}
		*f = ""
	case '[':
		*f = ""
	default:
		*f = FlexName(string(trimmed))
	}

	return nil
}

// MarshalJSON renders the normalized string form.
func (f FlexName) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the normalized value.
func (f FlexName) String() string {
	return string(f)
}

// Or returns the normalized value, or the fallback when empty.
func (f FlexName) Or(fallback string) string {
	if strings.TrimSpace(string(f)) == "" {
		return fallback
	}
	return string(f)
}

// FlexNameList decodes an optionally absent array whose elements follow the
// FlexName rule. A bare scalar is treated as a single-element list.
type FlexNameList []FlexName

// UnmarshalJSON mirrors FlexName's tolerance and never returns an error.
func (l *FlexNameList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	if trimmed[0] == '[' {
		var items []FlexName
		if err := json.Unmarshal(trimmed, &items); err != nil {
			*l = nil
			return nil
		}
		*l = items
		return nil
	}

	var single FlexName
	_ = single.UnmarshalJSON(trimmed)
	if single != "" {
		*l = FlexNameList{single}
	}
	return nil
}

// Strings returns the non-empty normalized values in order.
func (l FlexNameList) Strings() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		if v := strings.TrimSpace(string(item)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// PublicationRecord is the normalized, read-only view of an upstream
// publication. Field tags cover the naming variants the API has used over
// time; records are fetched per query and never mutated.
type PublicationRecord struct {
	ID            FlexName     `json:"id"`
	Title         FlexName     `json:"title"`
	Author        FlexName     `json:"author"`
	AuthorName    FlexName     `json:"authorName"`
	CoAuthors     FlexNameList `json:"coAuthors"`
	JournalName   FlexName     `json:"journalName"`
	JournalType   FlexName     `json:"journalType"`
	ISBN          FlexName     `json:"isbn"`
	ISSN          FlexName     `json:"issn"`
	ISBNISSN      FlexName     `json:"isbnIssn"`
	Year          FlexName     `json:"year"`
	PubYear       FlexName     `json:"publicationYear"`
	FormattedDate FlexName     `json:"formattedPublicationDate"`
	Department    FlexName     `json:"department"`
	Abstract      FlexName     `json:"abstract"`
	Keywords      FlexNameList `json:"keywords"`
	PDFURL        FlexName     `json:"pdfUrl"`
	FileURL       FlexName     `json:"fileUrl"`
}

// DisplayTitle returns the title with its documented fallback.
func (p PublicationRecord) DisplayTitle() string {
	return p.Title.Or(FallbackTitle)
}

// DisplayAuthor resolves the primary author across naming variants.
func (p PublicationRecord) DisplayAuthor() string {
	if v := p.Author.Or(""); v != "" {
		return v
	}
	return p.AuthorName.Or(FallbackAuthor)
}

// DisplayDepartment returns the department display name.
func (p PublicationRecord) DisplayDepartment() string {
	return p.Department.Or(FallbackDepartment)
}

// DisplayPublished resolves the most specific publication date variant.
func (p PublicationRecord) DisplayPublished() string {
	if v := p.FormattedDate.Or(""); v != "" {
		return v
	}
	if v := p.PubYear.Or(""); v != "" {
		return v
	}
	return p.Year.Or(FallbackValue)
}

// Identifier combines the ISBN/ISSN variants into one display string.
func (p PublicationRecord) Identifier() string {
	if v := p.ISBNISSN.Or(""); v != "" {
		return v
	}
	parts := make([]string, 0, 2)
	if v := p.ISBN.Or(""); v != "" {
		parts = append(parts, "ISBN "+v)
	}
	if v := p.ISSN.Or(""); v != "" {
		parts = append(parts, "ISSN "+v)
	}
	if len(parts) == 0 {
		return FallbackValue
	}
	return strings.Join(parts, " / ")
}

// StoredFileURL returns the document URL, preferring the newer fileUrl field,
// and false when the record carries no stored file.
func (p PublicationRecord) StoredFileURL() (string, bool) {
	if v := p.FileURL.Or(""); v != "" {
		return v, true
	}
	if v := p.PDFURL.Or(""); v != "" {
		return v, true
	}
	return "", false
}

// PublicationPage is one server-driven page of results. totalPages and
// totalPublications are trusted verbatim; the portal never re-slices.
type PublicationPage struct {
	Publications      []PublicationRecord `json:"publications"`
	TotalPages        int                 `json:"totalPages"`
	TotalPublications int                 `json:"totalPublications"`
}
