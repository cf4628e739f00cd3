// Package model defines core data structures and types for composing posts.
package model

import (
	"fmt"
	"strings"
)

type ContentType string

const (
	General      ContentType = "general"
	Listing      ContentType = "listing"
	Market       ContentType = "market"
	Tips         ContentType = "tips"
	News         ContentType = "news"
	Announcement ContentType = "announcement"
	Educational  ContentType = "educational"
)

var contentTypes = []ContentType{
	General,
	Listing,
	Market,
	Tips,
	News,
	Announcement,
	Educational,
}

// AllContentTypes returns every content type in display order.
func AllContentTypes() []ContentType {
	out := make([]ContentType, len(contentTypes))
	copy(out, contentTypes)
	return out
}

func (t ContentType) Valid() bool {
	for _, c := range contentTypes {
		if c == t {
			return true
		}
	}
	return false
}

func (t ContentType) String() string {
	return string(t)
}

func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type: %q", s)
	}
	return t, nil
}

// FieldMap holds form values keyed by field name. Iteration order is
// defined by the content schema, not by the map.
type FieldMap map[string]string

func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f FieldMap) Equal(other FieldMap) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Subset returns a copy of f restricted to the given names.
func (f FieldMap) Subset(names []string) FieldMap {
	out := make(FieldMap, len(names))
	for _, name := range names {
		if v, ok := f[name]; ok {
			out[name] = v
		}
	}
	return out
}
