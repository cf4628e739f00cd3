package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/debemdeboas/postdesk/internal/db"
	"github.com/debemdeboas/postdesk/internal/util/compression"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	fsStore, err := NewFSStore(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	sqlite := db.NewSQLite(db.MemoryPath)
	if err := sqlite.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	zstd, err := compression.NewZstdCompressor()
	if err != nil {
		t.Fatalf("NewZstdCompressor failed: %v", err)
	}
	t.Cleanup(zstd.Close)

	m, err := mr.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"fs":     fsStore,
		"sqlite": NewSQLiteStore(sqlite, zstd),
		"redis":  NewRedisStore(client, "test:", 0),
		"s3":     newS3Store(newFakeS3(), "bucket", "drafts/", 0),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := store.Get("absent"); ok {
				t.Error("Expected absent key to report ok=false")
			}

			if err := store.Set("k", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, ok := store.Get("k")
			if !ok || string(got) != `{"a":1}` {
				t.Errorf("Expected stored value, got %q ok=%v", got, ok)
			}

			// Set fully overwrites
			if err := store.Set("k", []byte(`[]`)); err != nil {
				t.Fatalf("Overwrite failed: %v", err)
			}
			got, _ = store.Get("k")
			if string(got) != `[]` {
				t.Errorf("Expected overwritten value, got %q", got)
			}

			if err := store.Delete("k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok := store.Get("k"); ok {
				t.Error("Expected key to be gone after Delete")
			}
			if err := store.Delete("k"); err != nil {
				t.Errorf("Deleting a missing key should be a no-op, got %v", err)
			}
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	s.Set("k", buf)
	buf[0] = 'x'

	got, _ := s.Get("k")
	if string(got) != "abc" {
		t.Errorf("Store aliased caller's buffer: %q", got)
	}
	got[1] = 'y'
	again, _ := s.Get("k")
	if string(again) != "abc" {
		t.Errorf("Store aliased returned buffer: %q", again)
	}

	if diff := cmp.Diff([]string{"k"}, s.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStoreContentHash(t *testing.T) {
	sqlite := db.NewSQLite(db.MemoryPath)
	if err := sqlite.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer sqlite.Close()

	s := NewSQLiteStore(sqlite, compression.GzipCompressor{})
	s.Set("a", []byte("same"))
	s.Set("b", []byte("same"))

	ha, ok := s.ContentHash("a")
	hb, _ := s.ContentHash("b")
	if !ok || ha != hb {
		t.Errorf("Expected identical content hashes, got %q and %q", ha, hb)
	}
	if _, ok := s.ContentHash("missing"); ok {
		t.Error("Expected no hash for missing key")
	}
}

func TestKeyspaceNamespacing(t *testing.T) {
	mem := NewMemoryStore()
	a := NewKeyspace(mem, "a")
	b := NewKeyspace(mem, "b")

	a.Set("stats", []byte("1"))
	b.Set("stats", []byte("2"))

	if diff := cmp.Diff([]string{"a:stats", "b:stats"}, mem.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	got, _ := a.Get("stats")
	if string(got) != "1" {
		t.Errorf("Expected namespace a to read its own value, got %q", got)
	}

	a.Delete("stats")
	if _, ok := b.Get("stats"); !ok {
		t.Error("Deleting in one namespace removed the other")
	}

	if NewKeyspace(mem, "").key("x") != "x" {
		t.Error("Empty namespace must not prefix keys")
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	ks := NewKeyspace(NewMemoryStore(), "test")
	def := []string{"default"}

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"oops`},
		{"wrong shape", `{"a":1}`},
		{"null", `null`},
		{"blank", `   `},
	}

	if got := Load(ks, "missing", def); !cmp.Equal(got, def) {
		t.Errorf("Expected default for missing key, got %v", got)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks.Set("list", []byte(tt.raw))
			if got := Load(ks, "list", def); !cmp.Equal(got, def) {
				t.Errorf("Expected default, got %v", got)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	ks := NewKeyspace(NewMemoryStore(), "test")
	in := map[string]int{"a": 1, "b": 2}

	if err := Save(ks, "m", in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if diff := cmp.Diff(in, Load(ks, "m", map[string]int{})); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}

	if err := Save(ks, "bad", make(chan int)); err == nil {
		t.Error("Expected encoding error")
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Set(string, []byte) error { return errors.New("disk full") }

func TestUpdate(t *testing.T) {
	t.Run("Applies fn and persists", func(t *testing.T) {
		ks := NewKeyspace(NewMemoryStore(), "test")
		next, err := Update(ks, "n", 0, func(n int) (int, error) { return n + 1, nil })
		if err != nil || next != 1 {
			t.Fatalf("Expected 1, got %d err=%v", next, err)
		}
		if got := Load(ks, "n", -1); got != 1 {
			t.Errorf("Expected persisted 1, got %d", got)
		}
	})

	t.Run("fn error writes nothing", func(t *testing.T) {
		ks := NewKeyspace(NewMemoryStore(), "test")
		Save(ks, "n", 5)
		boom := errors.New("boom")
		cur, err := Update(ks, "n", 0, func(n int) (int, error) { return 99, boom })
		if !errors.Is(err, boom) || cur != 5 {
			t.Errorf("Expected boom and current 5, got %d %v", cur, err)
		}
		if got := Load(ks, "n", 0); got != 5 {
			t.Errorf("Expected value untouched, got %d", got)
		}
	})

	t.Run("store error is returned", func(t *testing.T) {
		ks := NewKeyspace(failingStore{NewMemoryStore()}, "test")
		if _, err := Update(ks, "n", 0, func(n int) (int, error) { return 1, nil }); err == nil {
			t.Error("Expected store error")
		}
	})

	t.Run("Serializes concurrent writers", func(t *testing.T) {
		ks := NewKeyspace(NewMemoryStore(), "test")
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				Update(ks, "counter", 0, func(n int) (int, error) { return n + 1, nil })
			}()
		}
		wg.Wait()

		if got := Load(ks, "counter", 0); got != 100 {
			t.Errorf("Expected 100 increments, got %d", got)
		}
	})

	t.Run("Different keys use different locks", func(t *testing.T) {
		ks := NewKeyspace(NewMemoryStore(), "test")
		_, err := Update(ks, "outer", 0, func(n int) (int, error) {
			// Would deadlock if keys shared a lock
			if err := Save(ks, "inner", fmt.Sprint(n)); err != nil {
				return n, err
			}
			return n + 1, nil
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	})
}
