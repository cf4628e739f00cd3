// Package render turns validated field maps into the plain-text artifacts
// that get copied, saved as templates and delivered.
package render

import (
	"fmt"
	"strings"

	"github.com/debemdeboas/postdesk/internal/cache"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/schema"
	"github.com/debemdeboas/postdesk/internal/util"
	"github.com/rs/zerolog"
)

var renderLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// ValidationError lists the required fields that were empty, in schema order.
type ValidationError struct {
	Type    model.ContentType
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields for %s: %s",
		schema.DisplayName(e.Type), strings.Join(e.Missing, ", "))
}

// Render validates fields against the schema of t and formats the artifact.
// Nothing is produced when a required field is empty.
func Render(t model.ContentType, fields model.FieldMap) (string, error) {
	s, ok := schema.Lookup(t)
	if !ok {
		return "", fmt.Errorf("unknown content type: %q", t)
	}
	rule, ok := rules[t]
	if !ok {
		return "", fmt.Errorf("no render rule for content type: %q", t)
	}

	if missing := s.Missing(fields); len(missing) > 0 {
		return "", &ValidationError{Type: t, Missing: missing}
	}

	return rule(fields), nil
}

// maxCachedArtifacts bounds the memo for a long-running server.
const maxCachedArtifacts = 256

var artifactCache = cache.NewBoundedCache[string, string](maxCachedArtifacts)

// Cached is Render memoized on the canonical hash of (t, fields). Rendering
// is pure, so a hit is always identical to a fresh render.
func Cached(t model.ContentType, fields model.FieldMap) (string, error) {
	key, err := util.CanonicalHash(struct {
		Type   model.ContentType `json:"type"`
		Fields model.FieldMap    `json:"fields"`
	}{t, fields})
	if err != nil {
		renderLogger.Warn().Err(err).Msg("Could not hash fields, skipping cache")
		return Render(t, fields)
	}

	return artifactCache.GetOrSet(key, func() (string, error) {
		renderLogger.Debug().Str("type", string(t)).Str("key", key).Msg("Cache miss for artifact")
		return Render(t, fields)
	})
}

func ClearCache() {
	artifactCache.Clear()
}
