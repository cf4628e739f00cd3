package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/delivery"
	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/debemdeboas/postdesk/internal/repository"
	"github.com/debemdeboas/postdesk/internal/session"
	"github.com/debemdeboas/postdesk/internal/sse"
	"github.com/rs/zerolog"
)

type stubDeliverer struct {
	reqs []delivery.Request
	err  error
}

func (s *stubDeliverer) Deliver(_ context.Context, req delivery.Request) (delivery.Response, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return delivery.Response{}, s.err
	}
	return delivery.Response{Status: 200, Body: json.RawMessage(`{"ok":true}`)}, nil
}

func newTestServer(t *testing.T) (http.Handler, *stubDeliverer) {
	t.Helper()
	ks := kv.NewKeyspace(kv.NewMemoryStore(), "postdesk")
	deliverer := &stubDeliverer{}
	clients := sse.NewSSEClients()

	ctrl, err := session.New(context.Background(), session.Options{
		Form:      session.NewMemoryForm(broadcastFormEvent(clients)),
		Drafts:    repository.NewDraftRepository(ks),
		Templates: repository.NewTemplateRepository(ks, nil),
		Stats:     repository.NewStatsRepository(ks),
		Deliverer: deliverer,
	})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	return newMux(&server{ctrl: ctrl, clients: clients, log: zerolog.Nop(), now: time.Now}), deliverer
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return v
}

const listingForm = `{"fields":{"type":"House","status":"For Sale","price":"$450,000","beds":"3","baths":"2",
"address":"123 Main St","city":"Austin","state":"TX","zip":"78701","description":"Charming home","agent":"Jane Doe"}}`

func TestTypesAndSession(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/types", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	types := decode[[]map[string]any](t, rec)
	if len(types) != len(model.AllContentTypes()) {
		t.Errorf("Expected %d types, got %d", len(model.AllContentTypes()), len(types))
	}

	rec = do(t, h, http.MethodGet, "/api/session", "")
	st := decode[map[string]any](t, rec)
	if st["type"] != "general" || st["lastSaved"] != "Never" {
		t.Errorf("Unexpected session %v", st)
	}
	if rec.Header().Get("X-Frame-Options") != "deny" {
		t.Error("Expected secure headers")
	}
}

func TestComposeAndSend(t *testing.T) {
	h, deliverer := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/session/switch", `{"type":"Listing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Switch failed: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPut, "/api/form", listingForm)
	if rec.Code != http.StatusOK {
		t.Fatalf("Edit failed: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/preview", "")
	preview := decode[map[string]string](t, rec)
	if !strings.HasPrefix(preview["text"], "🏠 FOR SALE\n") {
		t.Errorf("Unexpected preview %q", preview["text"])
	}

	rec = do(t, h, http.MethodGet, "/partials/preview", "")
	if !strings.Contains(rec.Body.String(), "preview-message") || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Unexpected preview partial %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/copy", "")
	if rec.Body.String() != preview["text"] {
		t.Error("Copy differs from preview")
	}

	rec = do(t, h, http.MethodPost, "/api/send", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Send failed: %d %s", rec.Code, rec.Body)
	}
	if len(deliverer.reqs) != 1 || deliverer.reqs[0].Message != preview["text"] {
		t.Errorf("Unexpected deliveries %+v", deliverer.reqs)
	}

	stats := decode[model.StatsRecord](t, do(t, h, http.MethodGet, "/api/stats", ""))
	if stats.TotalPosts != 1 || stats.PerType[model.Listing] != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestErrorStatuses(t *testing.T) {
	h, deliverer := newTestServer(t)

	t.Run("validation", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/preview", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", rec.Code)
		}
		body := decode[errorBody](t, rec)
		if strings.Join(body.Missing, ",") != "title,content,author" {
			t.Errorf("Unexpected missing fields %v", body.Missing)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if rec := do(t, h, http.MethodPost, "/api/session/switch", `{"type":"poem"}`); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if rec := do(t, h, http.MethodPut, "/api/form", `{"fields":{"price":"1"}}`); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		if rec := do(t, h, http.MethodPut, "/api/form", `{`); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("template not found", func(t *testing.T) {
		if rec := do(t, h, http.MethodGet, "/api/templates/123", ""); rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodPost, "/api/templates/123/apply", ""); rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodGet, "/api/templates/abc", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("delivery failure", func(t *testing.T) {
		do(t, h, http.MethodPut, "/api/form", `{"fields":{"title":"t","content":"c","author":"a"}}`)
		deliverer.err = &delivery.DeliveryError{Status: 500, Body: "boom"}
		defer func() { deliverer.err = nil }()

		if rec := do(t, h, http.MethodPost, "/api/send", ""); rec.Code != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", rec.Code)
		}
		stats := decode[model.StatsRecord](t, do(t, h, http.MethodGet, "/api/stats", ""))
		if stats.TotalPosts != 0 {
			t.Error("Failed send changed stats")
		}
	})
}

func TestTemplateRoutes(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPut, "/api/form", `{"fields":{"title":"Weekly","content":"News","author":"Sam"}}`)

	rec := do(t, h, http.MethodPost, "/api/templates", `{"name":""}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", rec.Code, rec.Body)
	}
	tpl := decode[model.Template](t, rec)
	if tpl.Name != repository.DefaultTemplateName {
		t.Errorf("Expected default name, got %q", tpl.Name)
	}

	list := decode[[]templateSummary](t, do(t, h, http.MethodGet, "/api/templates", ""))
	if len(list) != 1 || list[0].ID != tpl.ID || list[0].Created != "Just now" {
		t.Errorf("Unexpected list %+v", list)
	}

	do(t, h, http.MethodPost, "/api/session/switch", `{"type":"news"}`)
	rec = do(t, h, http.MethodPost, "/api/templates/"+itoa(tpl.ID)+"/apply", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Apply failed: %d %s", rec.Code, rec.Body)
	}
	st := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/session", ""))
	if st["type"] != "general" {
		t.Errorf("Expected apply to switch back to general, got %v", st["type"])
	}

	if rec := do(t, h, http.MethodDelete, "/api/templates/"+itoa(tpl.ID), ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/templates/"+itoa(tpl.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func itoa(id model.TemplateID) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestDraftRoutes(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodPut, "/api/form", `{"fields":{"title":"Draft"}}`)

	if rec := do(t, h, http.MethodPost, "/api/drafts/save", ""); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	restored := decode[map[string]any](t, do(t, h, http.MethodPost, "/api/drafts/restore", ""))
	if restored["restored"] != true {
		t.Errorf("Expected draft to be restored, got %v", restored)
	}

	if rec := do(t, h, http.MethodPost, "/api/drafts/clear", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	restored = decode[map[string]any](t, do(t, h, http.MethodPost, "/api/drafts/restore", ""))
	if restored["restored"] != false {
		t.Errorf("Expected nothing to restore, got %v", restored)
	}

	if rec := do(t, h, http.MethodDelete, "/api/drafts", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}

func TestLaunchRoute(t *testing.T) {
	h, deliverer := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/launch?description=Sunny+loft&chat_id=-42", "")
	body := decode[map[string]any](t, rec)
	if body["filled"] != true {
		t.Errorf("Expected description to fill the primary field, got %v", body)
	}

	do(t, h, http.MethodPut, "/api/form", `{"fields":{"title":"t","author":"a"}}`)
	do(t, h, http.MethodPost, "/api/send", "")
	if len(deliverer.reqs) != 1 || deliverer.reqs[0].ChatID != "-42" {
		t.Errorf("Expected chat id from launch params, got %+v", deliverer.reqs)
	}
	if !strings.Contains(deliverer.reqs[0].Message, "Sunny loft") {
		t.Error("Expected launch description in the message")
	}
}

func imageUpload(t *testing.T, mime string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="house.png"`)
	hdr.Set("Content-Type", mime)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImageRoutes(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, imageUpload(t, "image/png", []byte("\x89PNG\r\n\x1a\n")))
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload failed: %d %s", rec.Code, rec.Body)
	}
	st := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/session", ""))
	if st["hasImage"] != true {
		t.Error("Expected image to be attached")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, imageUpload(t, "text/plain", []byte("hello")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-image, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, imageUpload(t, "image/jpeg", make([]byte, delivery.MaxImageSize+1)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for large image, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/api/image", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	st = decode[map[string]any](t, do(t, h, http.MethodGet, "/api/session", ""))
	if st["hasImage"] != false {
		t.Error("Expected image to be removed")
	}
}

func TestEventsStream(t *testing.T) {
	h, _ := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sse")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != config.CTypeEvents {
		t.Errorf("Unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 16)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				lines <- string(buf[:n])
			}
			if err != nil {
				close(lines)
				return
			}
		}
	}()

	// Wait for the connected event before triggering a change
	select {
	case got := <-lines:
		if !strings.Contains(got, "event: connected") {
			t.Fatalf("Unexpected first event %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for connection")
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/form", strings.NewReader(`{"fields":{"title":"Live"}}`))
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	putResp.Body.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-lines:
			if strings.Contains(got, `"value":"Live"`) {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for form event")
		}
	}
}

func TestNewDeliverer(t *testing.T) {
	if _, err := newDeliverer(config.DeliveryConfig{Mode: "http", Endpoint: "http://localhost"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := newDeliverer(config.DeliveryConfig{Mode: "telegram"}); err == nil {
		t.Error("Expected error without a bot token")
	}
	if _, err := newDeliverer(config.DeliveryConfig{Mode: "pigeon"}); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
