package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/delivery"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/render"
	"github.com/debemdeboas/postdesk/internal/schema"
	"github.com/debemdeboas/postdesk/internal/session"
	"github.com/debemdeboas/postdesk/internal/sse"
	"github.com/rs/zerolog"
)

const (
	templatePreviewLength = 100
	maxJSONBody           = 1 << 20
	emptyPreview          = "Fill in the form and generate a preview."
)

type server struct {
	ctrl    *session.Controller
	clients *sse.SSEClients
	log     zerolog.Logger
	now     func() time.Time
}

func newMux(s *server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/types", s.serveTypes)
	mux.HandleFunc("GET /api/session", s.serveSession)
	mux.HandleFunc("POST /api/session/switch", s.serveSwitch)
	mux.HandleFunc("POST /api/launch", s.serveLaunch)
	mux.HandleFunc("PUT /api/form", s.serveEdit)

	mux.HandleFunc("POST /api/drafts/save", s.serveQuickSave)
	mux.HandleFunc("POST /api/drafts/restore", s.serveQuickRestore)
	mux.HandleFunc("POST /api/drafts/clear", s.serveQuickClear)
	mux.HandleFunc("DELETE /api/drafts", s.serveClearAll)

	mux.HandleFunc("POST /api/preview", s.servePreview)
	mux.HandleFunc("GET /partials/preview", s.servePreviewPartial)
	mux.HandleFunc("GET /api/copy", s.serveCopy)

	mux.HandleFunc("GET /api/templates", s.serveTemplates)
	mux.HandleFunc("POST /api/templates", s.serveSaveTemplate)
	mux.HandleFunc("GET /api/templates/{id}", s.serveTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.serveDeleteTemplate)
	mux.HandleFunc("POST /api/templates/{id}/apply", s.serveApplyTemplate)

	mux.HandleFunc("POST /api/image", s.serveAttachImage)
	mux.HandleFunc("DELETE /api/image", s.serveRemoveImage)

	mux.HandleFunc("POST /api/send", s.serveSend)
	mux.HandleFunc("GET /api/stats", s.serveStats)
	mux.HandleFunc("GET /sse", s.eventsHandler)

	return withRequestLog(s.log, noCache(secureHeaders(mux.ServeHTTP)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func statusFor(err error) int {
	var verr *render.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrFormNotAvailable):
		return http.StatusConflict
	case errors.Is(err, model.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, delivery.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, delivery.ErrNotAnImage), errors.Is(err, session.ErrUnknownField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *render.ValidationError
	if errors.As(err, &verr) {
		body.Missing = verr.Missing
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
		body.Error = config.ErrInternalServerError
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: config.ErrInvalidJSON})
		return false
	}
	return true
}

func templateID(w http.ResponseWriter, r *http.Request) (model.TemplateID, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: config.ErrInvalidTemplateID})
		return 0, false
	}
	return model.TemplateID(id), true
}

func (s *server) serveTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schema.All())
}

type sessionBody struct {
	session.Status
	Fields model.FieldMap `json:"fields"`
}

func (s *server) sessionBody() sessionBody {
	return sessionBody{Status: s.ctrl.Status(s.now()), Fields: s.ctrl.Fields()}
}

func (s *server) serveSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionBody())
}

func (s *server) serveSwitch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type string `json:"type"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	t, err := model.ParseContentType(body.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	restored, err := s.ctrl.SwitchTo(r.Context(), t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": t, "restored": restored})
}

func (s *server) serveLaunch(w http.ResponseWriter, r *http.Request) {
	filled := s.ctrl.ApplyLaunch(session.FromValues(r.URL.Query()))
	writeJSON(w, http.StatusOK, map[string]any{"filled": filled, "session": s.sessionBody()})
}

func (s *server) serveEdit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields model.FieldMap `json:"fields"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.ctrl.Edit(body.Fields); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionBody())
}

func (s *server) serveQuickSave(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.QuickSave(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionBody())
}

func (s *server) serveQuickRestore(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.ctrl.QuickRestore()
	writeJSON(w, http.StatusOK, map[string]any{"restored": ok, "fields": fields})
}

func (s *server) serveQuickClear(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.QuickClear(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) serveClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ClearAll(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) servePreview(w http.ResponseWriter, r *http.Request) {
	text, err := s.ctrl.Preview()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *server) servePreviewPartial(w http.ResponseWriter, r *http.Request) {
	text := s.ctrl.LastPreview()
	if text == "" {
		text = emptyPreview
	}
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write(render.PreviewHTML(text))
}

func (s *server) serveCopy(w http.ResponseWriter, r *http.Request) {
	text, err := s.ctrl.Copy()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set(config.HCType, config.CTypeText)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

type templateSummary struct {
	ID          model.TemplateID  `json:"id"`
	Name        string            `json:"name"`
	ContentType model.ContentType `json:"contentType"`
	DisplayName string            `json:"displayName"`
	Emoji       string            `json:"emoji"`
	Preview     string            `json:"preview"`
	Created     string            `json:"created"`
}

func (s *server) serveTemplates(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	list := s.ctrl.Templates()
	out := make([]templateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			ContentType: t.ContentType,
			DisplayName: schema.DisplayName(t.ContentType),
			Emoji:       schema.Emoji(t.ContentType),
			Preview:     t.Preview(templatePreviewLength),
			Created:     model.TimeAgo(now, t.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) serveSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	tpl, err := s.ctrl.SaveAsTemplate(body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *server) serveTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	tpl, err := s.ctrl.Template(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *server) serveDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.DeleteTemplate(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) serveApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := templateID(w, r)
	if !ok {
		return
	}
	tpl, err := s.ctrl.ApplyTemplate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": tpl, "session": s.sessionBody()})
}

func (s *server) serveAttachImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, delivery.MaxImageSize+maxJSONBody)
	file, header, err := r.FormFile(config.FormImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, fmt.Errorf("%s: %w", config.ErrInvalidImage, delivery.ErrImageTooLarge))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: config.ErrInvalidImage})
		return
	}
	defer file.Close()

	img, err := delivery.ReadImage(header.Filename, header.Header.Get(config.HCType), file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.ctrl.AttachImage(img)
	writeJSON(w, http.StatusOK, map[string]any{"name": img.Name, "type": img.MIMEType, "size": len(img.Data)})
}

func (s *server) serveRemoveImage(w http.ResponseWriter, r *http.Request) {
	s.ctrl.RemoveImage()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) serveSend(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ctrl.Send(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": resp.Status, "response": resp.Body})
}

func (s *server) serveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Stats())
}

func (s *server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, config.CTypeEvents)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set(config.HConnection, "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := sse.NewClient()
	s.clients.Add(client)

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", client.ID)
	flusher.Flush()

	s.log.Debug().Str("client", client.ID).Msg("New SSE client connected")
	defer func() {
		s.clients.Delete(client)
		s.log.Debug().Str("client", client.ID).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg, open := <-client.Msg:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: form\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

// broadcastFormEvent pushes form changes to every SSE client.
func broadcastFormEvent(clients *sse.SSEClients) func(session.FormEvent) {
	return func(e session.FormEvent) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		clients.Broadcast(string(data))
	}
}

func noCache(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLog(log zerolog.Logger, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	})
}
