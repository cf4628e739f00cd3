// Package schema is the registry of content types: which fields each post
// kind has, which of them are required, and how the type is presented.
package schema

import (
	"fmt"

	"github.com/debemdeboas/postdesk/internal/model"
)

type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

type Schema struct {
	Type        model.ContentType `json:"type"`
	DisplayName string            `json:"displayName"`
	Emoji       string            `json:"emoji"`
	Fields      []Field           `json:"fields"`

	// Primary is the field pre-filled from an external description, if any.
	Primary string `json:"primary,omitempty"`
}

func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Required() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Missing returns the required fields that are absent or empty in fields,
// in schema order.
func (s *Schema) Missing(fields model.FieldMap) []string {
	var missing []string
	for _, f := range s.Fields {
		if f.Required && fields[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func Lookup(t model.ContentType) (*Schema, bool) {
	s, ok := registry[t]
	return s, ok
}

func MustLookup(t model.ContentType) *Schema {
	s, ok := registry[t]
	if !ok {
		panic(fmt.Sprintf("schema: no entry for content type %q", t))
	}
	return s
}

// All returns every schema in content type display order.
func All() []*Schema {
	out := make([]*Schema, 0, len(registry))
	for _, t := range model.AllContentTypes() {
		out = append(out, registry[t])
	}
	return out
}

func DisplayName(t model.ContentType) string {
	if s, ok := registry[t]; ok {
		return s.DisplayName
	}
	return string(t)
}

func Emoji(t model.ContentType) string {
	if s, ok := registry[t]; ok {
		return s.Emoji
	}
	return "📄"
}
