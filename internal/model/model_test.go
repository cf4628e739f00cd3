package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContentType
		wantErr bool
	}{
		{"general", General, false},
		{"Listing", Listing, false},
		{"  market ", Market, false},
		{"educational", Educational, false},
		{"", "", true},
		{"blog", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAllContentTypes(t *testing.T) {
	all := AllContentTypes()
	if len(all) != 7 {
		t.Fatalf("Expected 7 content types, got %d", len(all))
	}
	if all[0] != General {
		t.Errorf("Expected General first, got %q", all[0])
	}

	// Mutating the copy must not leak into the package table
	all[0] = "mutated"
	if AllContentTypes()[0] != General {
		t.Error("AllContentTypes returned a shared slice")
	}
}

func TestFieldMap(t *testing.T) {
	f := FieldMap{"title": "Hello", "content": "World", "extra": "x"}

	t.Run("Clone is independent", func(t *testing.T) {
		c := f.Clone()
		c["title"] = "Changed"
		if f["title"] != "Hello" {
			t.Error("Clone shares storage with the original")
		}
	})

	t.Run("Equal", func(t *testing.T) {
		if !f.Equal(f.Clone()) {
			t.Error("Expected clone to be equal")
		}
		if f.Equal(FieldMap{"title": "Hello"}) {
			t.Error("Expected maps of different length to differ")
		}
		if f.Equal(FieldMap{"title": "Hello", "content": "World", "other": "x"}) {
			t.Error("Expected maps with different keys to differ")
		}
	})

	t.Run("Subset drops unknown keys", func(t *testing.T) {
		got := f.Subset([]string{"title", "content", "missing"})
		want := FieldMap{"title": "Hello", "content": "World"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Subset mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestStatsRecord(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStatsRecord(now)

	if s.TotalPosts != 0 || s.Sum() != 0 {
		t.Errorf("Expected zeroed record, got total=%d sum=%d", s.TotalPosts, s.Sum())
	}
	for _, ct := range AllContentTypes() {
		if n, ok := s.PerType[ct]; !ok || n != 0 {
			t.Errorf("Expected explicit zero for %q, got %d (present=%v)", ct, n, ok)
		}
	}

	c := s.Clone()
	c.PerType[Listing] = 5
	if s.PerType[Listing] != 0 {
		t.Error("Clone shares the per-type map")
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back StatsRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(s, back); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplatePreview(t *testing.T) {
	tmpl := Template{RenderedText: "📢 Hello"}
	if got := tmpl.Preview(80); got != "📢 Hello" {
		t.Errorf("Expected full text, got %q", got)
	}
	if got := tmpl.Preview(3); got != "📢 H..." {
		t.Errorf("Expected rune-truncated preview, got %q", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{59 * time.Minute, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		if got := TimeAgo(now, now.Add(-tt.ago)); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestSavedLabel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := SavedLabel(now, time.Time{}, false); got != "Never" {
		t.Errorf("Expected Never, got %q", got)
	}
	if got := SavedLabel(now, now.Add(-30*time.Second), true); got != "Just now" {
		t.Errorf("Expected Just now, got %q", got)
	}
	if got := SavedLabel(now, now.Add(-12*time.Minute), true); got != "12m ago" {
		t.Errorf("Expected 12m ago, got %q", got)
	}
	old := now.Add(-2 * time.Hour)
	if got := SavedLabel(now, old, true); got != old.Local().Format(time.Kitchen) {
		t.Errorf("Expected clock time, got %q", got)
	}
}
