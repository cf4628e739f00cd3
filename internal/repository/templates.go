package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/render"
	"github.com/debemdeboas/postdesk/internal/schema"
)

const DefaultTemplateName = "Unnamed Template"

// Renderer produces the artifact stored with a template.
type Renderer func(t model.ContentType, fields model.FieldMap) (string, error)

type TemplateRepository struct {
	ks     *kv.Keyspace
	render Renderer
	now    clock
}

// NewTemplateRepository uses render.Render when renderer is nil.
func NewTemplateRepository(ks *kv.Keyspace, renderer Renderer) *TemplateRepository {
	if renderer == nil {
		renderer = render.Render
	}
	return &TemplateRepository{ks: ks, render: renderer, now: time.Now}
}

// List returns templates in insertion order.
func (r *TemplateRepository) List() []model.Template {
	list := kv.Load(r.ks, KeyTemplates, []model.Template{})
	if list == nil {
		list = []model.Template{}
	}
	return list
}

// Add renders fields and stores the result as a new template. A validation
// failure leaves the collection unchanged.
func (r *TemplateRepository) Add(t model.ContentType, name string, fields model.FieldMap) (model.Template, error) {
	text, err := r.render(t, fields)
	if err != nil {
		return model.Template{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTemplateName
	}

	tpl := model.Template{
		ContentType:  t,
		Name:         name,
		RenderedText: text,
		Fields:       fields.Subset(schema.MustLookup(t).FieldNames()),
	}

	_, err = kv.Update(r.ks, KeyTemplates, []model.Template{}, func(list []model.Template) ([]model.Template, error) {
		now := r.now()
		tpl.ID = nextID(list, now)
		tpl.CreatedAt = now
		return append(list, tpl), nil
	})
	if err != nil {
		return model.Template{}, fmt.Errorf("saving template %q: %w", name, err)
	}

	repoLogger.Info().Int64("id", int64(tpl.ID)).Str("type", string(t)).Str("name", name).Msg("Template saved")
	return tpl, nil
}

// nextID is the creation time in milliseconds, bumped past the largest
// existing id so ids stay unique within a millisecond.
func nextID(list []model.Template, now time.Time) model.TemplateID {
	id := model.TemplateID(now.UnixMilli())
	for _, t := range list {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	return id
}

func (r *TemplateRepository) Get(id model.TemplateID) (model.Template, error) {
	for _, t := range r.List() {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Template{}, fmt.Errorf("template %d: %w", id, model.ErrTemplateNotFound)
}

// Delete removes the template with id. Unknown ids are ignored.
func (r *TemplateRepository) Delete(id model.TemplateID) error {
	_, err := kv.Update(r.ks, KeyTemplates, []model.Template{}, func(list []model.Template) ([]model.Template, error) {
		out := list[:0:0]
		for _, t := range list {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	return nil
}
