package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// KVStore is the foreground's synchronous key-value document. Every call
// reads the file again so separate processes sharing the document (the TUI
// and a CLI invocation) observe each other's writes on their next read.
type KVStore struct {
	mu   sync.Mutex
	path string
}

func NewKVStore(path string) *KVStore {
	return &KVStore{path: strings.TrimSpace(path)}
}

func (s *KVStore) Path() string {
	return s.path
}

func (s *KVStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, false, err
	}
	raw, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(raw), true, nil
}

// Set writes value under key. A corrupt document is replaced rather than
// blocking every future write.
func (s *KVStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("storage: value for %q is not valid json", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		doc = make(map[string]json.RawMessage)
	}
	doc[key] = json.RawMessage(value)
	return s.persist(doc)
}

// Update rewrites key under the store lock. fn gets the current value and
// returns the replacement, or nil to leave the document as it is.
func (s *KVStore) Update(key string, fn func(current []byte, ok bool) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		doc = make(map[string]json.RawMessage)
	}
	raw, ok := doc[key]
	next, err := fn([]byte(raw), ok)
	if err != nil || next == nil {
		return err
	}
	if !json.Valid(next) {
		return fmt.Errorf("storage: value for %q is not valid json", key)
	}
	doc[key] = json.RawMessage(next)
	return s.persist(doc)
}

func (s *KVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.persist(doc)
}

func (s *KVStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) load() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	if s.path == "" {
		return doc, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("read kv document: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return doc, nil
}

func (s *KVStore) persist(doc map[string]json.RawMessage) error {
	if s.path == "" {
		return fmt.Errorf("storage: kv store has no path")
	}
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
