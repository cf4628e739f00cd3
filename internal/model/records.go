package model

import "time"

type Draft struct {
	ContentType ContentType `json:"contentType"`
	Fields      FieldMap    `json:"fields"`
	SavedAt     time.Time   `json:"savedAt"`
}

type TemplateID int64

// Template is a named snapshot of a rendered artifact and the fields it was
// rendered from. RenderedText is captured once and never re-derived.
type Template struct {
	ID           TemplateID  `json:"id"`
	ContentType  ContentType `json:"contentType"`
	Name         string      `json:"name"`
	RenderedText string      `json:"renderedText"`
	Fields       FieldMap    `json:"fields"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Preview returns the first n runes of the rendered text, for listings.
func (t *Template) Preview(n int) string {
	r := []rune(t.RenderedText)
	if len(r) <= n {
		return t.RenderedText
	}
	return string(r[:n]) + "..."
}

type StatsRecord struct {
	TotalPosts  int                 `json:"totalPosts"`
	PerType     map[ContentType]int `json:"perType"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// NewStatsRecord returns a zeroed record with an explicit counter per type.
func NewStatsRecord(now time.Time) StatsRecord {
	s := StatsRecord{
		PerType:     make(map[ContentType]int, len(contentTypes)),
		LastUpdated: now,
	}
	for _, t := range contentTypes {
		s.PerType[t] = 0
	}
	return s
}

func (s StatsRecord) Sum() int {
	total := 0
	for _, n := range s.PerType {
		total += n
	}
	return total
}

func (s StatsRecord) Clone() StatsRecord {
	out := s
	out.PerType = make(map[ContentType]int, len(s.PerType))
	for k, v := range s.PerType {
		out.PerType[k] = v
	}
	return out
}
