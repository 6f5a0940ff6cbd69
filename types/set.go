package types

import (
	"encoding/json"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Set is a thread-safe unordered collection of comparable keys, used
// throughout this module for room membership and socket-id bookkeeping.
type Set[KType comparable] struct {
	mu    sync.RWMutex
	cache map[KType]Void
}

// NewSet creates a new Set, optionally pre-populated with keys.
func NewSet[KType comparable](keys ...KType) *Set[KType] {
	s := &Set[KType]{cache: make(map[KType]Void, len(keys))}
	for _, key := range keys {
		s.cache[key] = NULL
	}
	return s
}

// Add inserts the given keys into the set.
func (s *Set[KType]) Add(keys ...KType) bool {
	if len(keys) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.cache[key] = NULL
	}
	return true
}

// Delete removes the given keys from the set.
func (s *Set[KType]) Delete(keys ...KType) bool {
	if len(keys) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := false
	for _, key := range keys {
		if _, ok := s.cache[key]; ok {
			delete(s.cache, key)
			deleted = true
		}
	}
	return deleted
}

// Clear empties the set.
func (s *Set[KType]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = map[KType]Void{}
}

// Has reports whether key is a member of the set.
func (s *Set[KType]) Has(key KType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[key]
	return ok
}

// Len returns the number of members.
func (s *Set[KType]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Keys returns a snapshot slice of all members, in no particular order.
func (s *Set[KType]) Keys() []KType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]KType, 0, len(s.cache))
	for k := range s.cache {
		list = append(list, k)
	}
	return list
}

// Range calls f for every member, in no particular order. Stops early if f
// returns false.
func (s *Set[KType]) Range(f func(key KType) bool) {
	for _, k := range s.Keys() {
		if !f(k) {
			return
		}
	}
}

func (s *Set[KType]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

func (s *Set[KType]) UnmarshalJSON(data []byte) error {
	var keys []KType
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[KType]Void, len(keys))
	for _, key := range keys {
		s.cache[key] = NULL
	}
	return nil
}

func (s *Set[KType]) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(s.Keys())
}

func (s *Set[KType]) UnmarshalMsgpack(data []byte) error {
	var keys []KType
	if err := msgpack.Unmarshal(data, &keys); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[KType]Void, len(keys))
	for _, key := range keys {
		s.cache[key] = NULL
	}
	return nil
}
