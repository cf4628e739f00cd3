// Package kv is the durable key/value layer under drafts, templates and
// stats. Each logical store lives under one key and is always read and
// written as a whole value.
package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var kvLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	kvLogger = l
}

// Store is a raw byte store. Get reports absent keys with ok == false;
// backends log read failures and report them as absent.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Keyspace prefixes keys with a namespace and serializes writers per key.
type Keyspace struct {
	store Store
	ns    string
	locks sync.Map // key -> *sync.Mutex
}

func NewKeyspace(store Store, namespace string) *Keyspace {
	return &Keyspace{store: store, ns: namespace}
}

func (k *Keyspace) Namespace() string {
	return k.ns
}

func (k *Keyspace) key(name string) string {
	if k.ns == "" {
		return name
	}
	return k.ns + ":" + name
}

func (k *Keyspace) lock(name string) func() {
	m, _ := k.locks.LoadOrStore(name, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (k *Keyspace) Get(name string) ([]byte, bool) {
	unlock := k.lock(name)
	defer unlock()
	return k.store.Get(k.key(name))
}

func (k *Keyspace) Set(name string, value []byte) error {
	unlock := k.lock(name)
	defer unlock()
	return k.store.Set(k.key(name), value)
}

func (k *Keyspace) Delete(name string) error {
	unlock := k.lock(name)
	defer unlock()
	return k.store.Delete(k.key(name))
}

// Load decodes the JSON value under key. Missing, null and malformed values
// all yield def; malformed ones are logged and otherwise ignored.
func Load[T any](s Store, key string, def T) T {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}
	return decode(key, raw, def)
}

func decode[T any](key string, raw []byte, def T) T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		kvLogger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable value")
		return def
	}
	return v
}

func Save[T any](s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.Set(key, data); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Update runs a read-modify-write of key while holding its lock. Nothing is
// written if fn returns an error.
func Update[T any](k *Keyspace, name string, def T, fn func(T) (T, error)) (T, error) {
	unlock := k.lock(name)
	defer unlock()

	full := k.key(name)
	cur := def
	if raw, ok := k.store.Get(full); ok {
		cur = decode(full, raw, def)
	}

	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if err := Save(k.store, full, next); err != nil {
		return cur, err
	}
	return next, nil
}
