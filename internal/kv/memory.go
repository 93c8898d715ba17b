package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     json.RawMessage
	updatedAt time.Time
	seq       uint64
}

// InMemory keeps values in process. Values are stored encoded so that readers
// never share mutable state with writers.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	seq     uint64
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]memoryEntry)}
}

func (s *InMemory) Get(_ context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.value, dst); err != nil {
		return true, fmt.Errorf("decode kv value %q: %w", key, err)
	}
	return true, nil
}

func (s *InMemory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode kv value %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[key] = memoryEntry{value: raw, updatedAt: time.Now(), seq: s.seq}
	return nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *InMemory) Keys(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	type keyed struct {
		key string
		seq uint64
	}
	matches := make([]keyed, 0, len(s.entries))
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			matches = append(matches, keyed{key: k, seq: e.seq})
		}
	}
	s.mu.RUnlock()

	// seq breaks ties between writes within the same clock tick
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })
	limit = effectiveLimit(limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.key
	}
	return keys, nil
}
