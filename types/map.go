package types

import (
	"encoding/json"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Map is a thread-safe generic map, styled after Set, used for the
// socket-id/room indices the Adapter and Namespace keep.
type Map[KType comparable, VType any] struct {
	mu    sync.RWMutex
	cache map[KType]VType
}

func NewMap[KType comparable, VType any]() *Map[KType, VType] {
	return &Map[KType, VType]{cache: make(map[KType]VType)}
}

// Load returns the value stored for key, if any.
func (m *Map[KType, VType]) Load(key KType) (VType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cache[key]
	return v, ok
}

// Store sets the value for key.
func (m *Map[KType, VType]) Store(key KType, value VType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = make(map[KType]VType)
	}
	m.cache[key] = value
}

// LoadOrStore returns the existing value for key if present, otherwise
// stores and returns the given value.
func (m *Map[KType, VType]) LoadOrStore(key KType, value VType) (VType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = make(map[KType]VType)
	}
	if v, ok := m.cache[key]; ok {
		return v, true
	}
	m.cache[key] = value
	return value, false
}

// Delete removes key from the map.
func (m *Map[KType, VType]) Delete(key KType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
}

// LoadAndDelete removes key, returning its value if it was present.
func (m *Map[KType, VType]) LoadAndDelete(key KType) (VType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cache[key]
	if ok {
		delete(m.cache, key)
	}
	return v, ok
}

// Has reports whether key is present.
func (m *Map[KType, VType]) Has(key KType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[key]
	return ok
}

// Len returns the number of entries.
func (m *Map[KType, VType]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// Keys returns a snapshot slice of all keys, in no particular order.
func (m *Map[KType, VType]) Keys() []KType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]KType, 0, len(m.cache))
	for k := range m.cache {
		keys = append(keys, k)
	}
	return keys
}

// Range calls f for every entry, in no particular order. Stops early if f
// returns false.
func (m *Map[KType, VType]) Range(f func(key KType, value VType) bool) {
	m.mu.RLock()
	snapshot := make(map[KType]VType, len(m.cache))
	for k, v := range m.cache {
		snapshot[k] = v
	}
	m.mu.RUnlock()
	for k, v := range snapshot {
		if !f(k, v) {
			return
		}
	}
}

func (m *Map[KType, VType]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[KType]VType)
}

func (m *Map[KType, VType]) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(m.cache)
}

func (m *Map[KType, VType]) MarshalMsgpack() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return msgpack.Marshal(m.cache)
}
