// Package session owns the composing session: which content type is being
// edited, the visible form, the preview, the attached image and the launch
// parameters. Every user action goes through the Controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/postdesk/internal/delivery"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/render"
	"github.com/debemdeboas/postdesk/internal/repository"
	"github.com/debemdeboas/postdesk/internal/schema"
	"github.com/rs/zerolog"
)

var sessionLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	sessionLogger = l
}

const DefaultReadyTimeout = 2 * time.Second

var ErrUnknownField = errors.New("unknown field")

type Options struct {
	Form      Form
	Drafts    *repository.DraftRepository
	Templates *repository.TemplateRepository
	Stats     *repository.StatsRepository
	Deliverer delivery.Deliverer

	// ReadyTimeout bounds the wait for a form to accept values.
	ReadyTimeout time.Duration
	Launch       LaunchParams
}

type Controller struct {
	mu sync.Mutex

	current model.ContentType
	ready   <-chan struct{}
	// restored is false while the form may not hold current's draft.
	// Autosave is refused until a show succeeds again.
	restored bool
	preview string
	image   *delivery.Image
	launch  LaunchParams

	form         Form
	drafts       *repository.DraftRepository
	templates    *repository.TemplateRepository
	stats        *repository.StatsRepository
	deliverer    delivery.Deliverer
	readyTimeout time.Duration
}

type Status struct {
	Type        model.ContentType `json:"type"`
	DisplayName string            `json:"displayName"`
	Emoji       string            `json:"emoji"`
	LastSaved   string            `json:"lastSaved"`
	HasImage    bool              `json:"hasImage"`
	Preview     string            `json:"preview,omitempty"`
	Launch      LaunchParams      `json:"launch"`
}

// New starts a session on the General form with its draft restored, then
// applies the launch parameters.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Form == nil || opts.Drafts == nil || opts.Templates == nil || opts.Stats == nil || opts.Deliverer == nil {
		return nil, errors.New("session: form, repositories and deliverer are required")
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}

	c := &Controller{
		current:      model.General,
		form:         opts.Form,
		drafts:       opts.Drafts,
		templates:    opts.Templates,
		stats:        opts.Stats,
		deliverer:    opts.Deliverer,
		readyTimeout: opts.ReadyTimeout,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.showLocked(ctx, model.General); err != nil {
		return nil, err
	}
	c.applyLaunchLocked(opts.Launch)
	return c, nil
}

func (c *Controller) waitReady(ctx context.Context, t model.ContentType, ready <-chan struct{}) error {
	timer := time.NewTimer(c.readyTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-timer.C:
		return fmt.Errorf("%s form not ready after %s: %w", t, c.readyTimeout, model.ErrFormNotAvailable)
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s form: %w", t, ctx.Err())
	}
}

func (c *Controller) visibleFields() model.FieldMap {
	s := schema.MustLookup(c.current)
	fields := make(model.FieldMap, len(s.Fields))
	for _, name := range s.FieldNames() {
		fields[name] = c.form.FieldValue(name)
	}
	return fields
}

func (c *Controller) populate(fields model.FieldMap) {
	for _, name := range schema.MustLookup(c.current).FieldNames() {
		if v, ok := fields[name]; ok {
			c.form.SetFieldValue(name, v)
		}
	}
}

func (c *Controller) clearPreviewLocked() {
	c.preview = ""
	c.form.ClearPreview()
}

// showLocked shows the form for t and restores its draft. If the form never
// becomes ready the previous type is shown again with its draft.
func (c *Controller) showLocked(ctx context.Context, t model.ContentType) (model.FieldMap, error) {
	defer c.clearPreviewLocked()

	fields, err := c.restoreLocked(ctx, t)
	if err == nil {
		return fields, nil
	}

	c.restored = false
	if prev := c.current; prev != t {
		if _, rerr := c.restoreLocked(ctx, prev); rerr != nil {
			sessionLogger.Error().Err(rerr).Str("type", string(prev)).Msg("Could not show previous form, autosave paused")
		}
	}
	return nil, err
}

// restoreLocked makes t current only once its form is ready and holds its
// draft.
func (c *Controller) restoreLocked(ctx context.Context, t model.ContentType) (model.FieldMap, error) {
	ready := c.form.Show(t)
	if err := c.waitReady(ctx, t, ready); err != nil {
		return nil, err
	}
	c.current = t
	c.ready = ready
	fields := c.drafts.Restore(t)
	c.populate(fields)
	c.restored = true
	return fields, nil
}

func (c *Controller) errNotRestored() error {
	return fmt.Errorf("%s draft is not in the form: %w", c.current, model.ErrFormNotAvailable)
}

func (c *Controller) autosaveLocked() error {
	if !c.restored {
		return c.errNotRestored()
	}
	return c.drafts.Save(c.current, c.visibleFields())
}

func (c *Controller) switchLocked(ctx context.Context, t model.ContentType) (model.FieldMap, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("switching form: unknown content type %q", t)
	}
	if err := c.autosaveLocked(); err != nil {
		sessionLogger.Warn().Err(err).Str("type", string(c.current)).Msg("Autosave before switch failed")
	}

	from := c.current
	fields, err := c.showLocked(ctx, t)
	if err != nil {
		return nil, err
	}
	sessionLogger.Debug().Str("from", string(from)).Str("to", string(t)).Int("restored", len(fields)).Msg("Switched content type")
	return fields, nil
}

// SwitchTo saves the visible form, shows the form for t and restores its
// draft. The restored fields are returned.
func (c *Controller) SwitchTo(ctx context.Context, t model.ContentType) (model.FieldMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switchLocked(ctx, t)
}

func (c *Controller) Current() model.ContentType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Fields returns the values currently visible in the form.
func (c *Controller) Fields() model.FieldMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleFields()
}

// Edit writes values into the visible form and autosaves. Names that are
// not fields of the current type are rejected before anything changes.
func (c *Controller) Edit(values model.FieldMap) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.restored {
		return c.errNotRestored()
	}
	s := schema.MustLookup(c.current)
	for name := range values {
		if !s.Has(name) {
			return fmt.Errorf("%s has no field %q: %w", s.DisplayName, name, ErrUnknownField)
		}
	}
	for name, v := range values {
		c.form.SetFieldValue(name, v)
	}
	return c.autosaveLocked()
}

func (c *Controller) Autosave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autosaveLocked()
}

// Preview renders the visible form, shows the artifact and remembers it.
func (c *Controller) Preview() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, err := render.Cached(c.current, c.visibleFields())
	if err != nil {
		return "", err
	}
	c.preview = text
	c.form.ShowPreview(text)
	return text, nil
}

// LastPreview returns the artifact shown by the last successful Preview.
func (c *Controller) LastPreview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// Copy renders the visible form for the clipboard.
func (c *Controller) Copy() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return render.Cached(c.current, c.visibleFields())
}

func (c *Controller) SaveAsTemplate(name string) (model.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.autosaveLocked(); err != nil {
		sessionLogger.Warn().Err(err).Msg("Autosave before template save failed")
	}
	return c.templates.Add(c.current, name, c.visibleFields())
}

// ApplyTemplate switches to the template's type and replaces the form with
// the template's fields, which also become that type's draft.
func (c *Controller) ApplyTemplate(ctx context.Context, id model.TemplateID) (model.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tpl, err := c.templates.Get(id)
	if err != nil {
		return model.Template{}, err
	}
	if _, err := c.switchLocked(ctx, tpl.ContentType); err != nil {
		return model.Template{}, err
	}
	if err := c.waitReady(ctx, c.current, c.ready); err != nil {
		return model.Template{}, err
	}

	c.form.Reset()
	c.populate(tpl.Fields)
	if err := c.drafts.Save(tpl.ContentType, tpl.Fields); err != nil {
		return model.Template{}, err
	}

	sessionLogger.Info().Int64("id", int64(id)).Str("name", tpl.Name).Msg("Template applied")
	return tpl, nil
}

func (c *Controller) DeleteTemplate(id model.TemplateID) error {
	return c.templates.Delete(id)
}

func (c *Controller) Template(id model.TemplateID) (model.Template, error) {
	return c.templates.Get(id)
}

func (c *Controller) Templates() []model.Template {
	return c.templates.List()
}

func (c *Controller) Stats() model.StatsRecord {
	return c.stats.Snapshot()
}

// Send renders and delivers the visible form once. Statistics change only
// when delivery succeeds. The session lock is not held during delivery.
func (c *Controller) Send(ctx context.Context) (delivery.Response, error) {
	c.mu.Lock()
	t := c.current
	text, err := render.Cached(t, c.visibleFields())
	if err != nil {
		c.mu.Unlock()
		return delivery.Response{}, err
	}
	req := delivery.Request{Message: text, ChatID: c.launch.ChatID, Image: c.image}
	c.mu.Unlock()

	resp, err := c.deliverer.Deliver(ctx, req)
	if err != nil {
		sessionLogger.Error().Err(err).Str("type", string(t)).Msg("Send failed")
		return delivery.Response{}, err
	}

	if _, err := c.stats.Record(t); err != nil {
		sessionLogger.Error().Err(err).Str("type", string(t)).Msg("Post sent but stats not recorded")
	}
	return resp, nil
}

// QuickSave saves the current draft on demand.
func (c *Controller) QuickSave() error {
	return c.Autosave()
}

// QuickRestore replaces the visible form with the saved draft. It reports
// false when there is no draft.
func (c *Controller) QuickRestore() (model.FieldMap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.drafts.LastSavedAt(c.current); !ok {
		return model.FieldMap{}, false
	}
	fields := c.drafts.Restore(c.current)
	c.form.Reset()
	c.populate(fields)
	return fields, true
}

// QuickClear drops the current type's draft and empties the form.
func (c *Controller) QuickClear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.current
	if err := c.drafts.Clear(&t); err != nil {
		return err
	}
	c.form.Reset()
	return nil
}

// ClearAll drops every draft, empties the form, removes the image and
// clears the preview.
func (c *Controller) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.drafts.Clear(nil); err != nil {
		return err
	}
	c.form.Reset()
	c.image = nil
	c.clearPreviewLocked()
	sessionLogger.Info().Msg("Session cleared")
	return nil
}

func (c *Controller) AttachImage(img *delivery.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = img
}

func (c *Controller) RemoveImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
}

func (c *Controller) Image() *delivery.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// ApplyLaunch stores p and pre-fills the current type's primary field with
// the description. It reports whether a field was filled.
func (c *Controller) ApplyLaunch(p LaunchParams) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLaunchLocked(p)
}

func (c *Controller) applyLaunchLocked(p LaunchParams) bool {
	c.launch = p
	if p.Description == "" {
		return false
	}
	primary := schema.MustLookup(c.current).Primary
	if primary == "" {
		return false
	}
	c.form.SetFieldValue(primary, p.Description)
	sessionLogger.Debug().Str("field", primary).Msg("Description loaded from launch parameters")
	return true
}

func (c *Controller) Status(now time.Time) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, saved := c.drafts.LastSavedAt(c.current)
	return Status{
		Type:        c.current,
		DisplayName: schema.DisplayName(c.current),
		Emoji:       schema.Emoji(c.current),
		LastSaved:   model.SavedLabel(now, at, saved),
		HasImage:    c.image != nil,
		Preview:     c.preview,
		Launch:      c.launch,
	}
}
