package kv

import (
	"slices"

	"github.com/debemdeboas/postdesk/internal/cache"
)

// MemoryStore keeps values for the lifetime of the process.
type MemoryStore struct {
	items *cache.Cache[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.NewCache[string, []byte]()}
}

func (m *MemoryStore) Get(key string) ([]byte, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.items.Set(key, slices.Clone(value))
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.items.Delete(key)
	return nil
}

func (m *MemoryStore) Keys() []string {
	keys := m.items.Keys()
	slices.Sort(keys)
	return keys
}
