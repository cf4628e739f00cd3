package repository

import (
	"fmt"
	"time"

	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/schema"
)

type draftMap map[model.ContentType]model.Draft

// DraftRepository holds at most one unvalidated draft per content type.
type DraftRepository struct {
	ks  *kv.Keyspace
	now clock
}

func NewDraftRepository(ks *kv.Keyspace) *DraftRepository {
	return &DraftRepository{ks: ks, now: time.Now}
}

func (r *DraftRepository) load() draftMap {
	m := kv.Load(r.ks, KeyDrafts, draftMap{})
	if m == nil {
		m = draftMap{}
	}
	return m
}

// Save overwrites the draft for t. Keys that are not fields of t are dropped.
func (r *DraftRepository) Save(t model.ContentType, fields model.FieldMap) error {
	s, ok := schema.Lookup(t)
	if !ok {
		return fmt.Errorf("saving draft: unknown content type %q", t)
	}

	d := model.Draft{
		ContentType: t,
		Fields:      fields.Subset(s.FieldNames()),
		SavedAt:     r.now(),
	}

	_, err := kv.Update(r.ks, KeyDrafts, draftMap{}, func(m draftMap) (draftMap, error) {
		if m == nil {
			m = draftMap{}
		}
		m[t] = d
		return m, nil
	})
	if err != nil {
		return fmt.Errorf("saving draft for %s: %w", t, err)
	}

	repoLogger.Debug().Str("type", string(t)).Int("fields", len(d.Fields)).Msg("Draft saved")
	return nil
}

// Restore returns the saved fields for t, or an empty map.
func (r *DraftRepository) Restore(t model.ContentType) model.FieldMap {
	d, ok := r.load()[t]
	if !ok || d.Fields == nil {
		return model.FieldMap{}
	}
	return d.Fields.Clone()
}

// Clear removes the draft for *t, or every draft when t is nil.
func (r *DraftRepository) Clear(t *model.ContentType) error {
	if t == nil {
		if err := r.ks.Delete(KeyDrafts); err != nil {
			return fmt.Errorf("clearing drafts: %w", err)
		}
		repoLogger.Info().Msg("All drafts cleared")
		return nil
	}

	_, err := kv.Update(r.ks, KeyDrafts, draftMap{}, func(m draftMap) (draftMap, error) {
		delete(m, *t)
		return m, nil
	})
	if err != nil {
		return fmt.Errorf("clearing draft for %s: %w", *t, err)
	}
	return nil
}

// LastSavedAt reports when the draft for t was saved; false means never.
func (r *DraftRepository) LastSavedAt(t model.ContentType) (time.Time, bool) {
	d, ok := r.load()[t]
	if !ok {
		return time.Time{}, false
	}
	return d.SavedAt, true
}

func (r *DraftRepository) All() map[model.ContentType]model.Draft {
	m := r.load()
	out := make(map[model.ContentType]model.Draft, len(m))
	for t, d := range m {
		d.Fields = d.Fields.Clone()
		out[t] = d
	}
	return out
}
