package session

import (
	"sync"

	"github.com/debemdeboas/postdesk/internal/model"
)

// Form is the visible editing surface. Only one content type's form is
// shown at a time.
type Form interface {
	FieldValue(name string) string
	SetFieldValue(name, value string)
	// Show switches to the form for t. The returned channel is closed once
	// that form accepts values.
	Show(t model.ContentType) <-chan struct{}
	Reset()
	ShowPreview(text string)
	ClearPreview()
}

// FormEvent is emitted by MemoryForm on every visible change.
type FormEvent struct {
	Kind    string            `json:"kind"`
	Type    model.ContentType `json:"type,omitempty"`
	Field   string            `json:"field,omitempty"`
	Value   string            `json:"value,omitempty"`
	Preview string            `json:"preview,omitempty"`
}

const (
	EventShow         = "show"
	EventField        = "field"
	EventReset        = "reset"
	EventPreview      = "preview"
	EventClearPreview = "clear-preview"
)

// MemoryForm keeps form state in memory for a remote UI. It is ready as
// soon as it is shown.
type MemoryForm struct {
	mu      sync.RWMutex
	current model.ContentType
	values  model.FieldMap
	preview string

	notify func(FormEvent)
}

// NewMemoryForm calls notify, if set, after every change. notify must not
// call back into the form.
func NewMemoryForm(notify func(FormEvent)) *MemoryForm {
	return &MemoryForm{values: model.FieldMap{}, notify: notify}
}

func (f *MemoryForm) emit(e FormEvent) {
	if f.notify != nil {
		f.notify(e)
	}
}

func (f *MemoryForm) FieldValue(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[name]
}

func (f *MemoryForm) SetFieldValue(name, value string) {
	f.mu.Lock()
	f.values[name] = value
	t := f.current
	f.mu.Unlock()
	f.emit(FormEvent{Kind: EventField, Type: t, Field: name, Value: value})
}

func (f *MemoryForm) Show(t model.ContentType) <-chan struct{} {
	f.mu.Lock()
	f.current = t
	f.values = model.FieldMap{}
	f.mu.Unlock()
	f.emit(FormEvent{Kind: EventShow, Type: t})

	ready := make(chan struct{})
	close(ready)
	return ready
}

func (f *MemoryForm) Reset() {
	f.mu.Lock()
	f.values = model.FieldMap{}
	t := f.current
	f.mu.Unlock()
	f.emit(FormEvent{Kind: EventReset, Type: t})
}

func (f *MemoryForm) ShowPreview(text string) {
	f.mu.Lock()
	f.preview = text
	f.mu.Unlock()
	f.emit(FormEvent{Kind: EventPreview, Preview: text})
}

func (f *MemoryForm) ClearPreview() {
	f.mu.Lock()
	f.preview = ""
	f.mu.Unlock()
	f.emit(FormEvent{Kind: EventClearPreview})
}

// Values returns a copy of the visible values.
func (f *MemoryForm) Values() model.FieldMap {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.Clone()
}

func (f *MemoryForm) Current() model.ContentType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

func (f *MemoryForm) Preview() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.preview
}
