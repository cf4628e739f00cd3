// Package repository keeps drafts, templates and posting statistics on top
// of a kv.Keyspace. Each repository owns one key and rewrites it whole.
package repository

import (
	"time"

	"github.com/rs/zerolog"
)

var repoLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

// Storage keys, relative to the keyspace namespace.
const (
	KeyDrafts    = "formData"
	KeyTemplates = "templates"
	KeyStats     = "stats"
)

type clock func() time.Time
