package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"desktop-thumbnailer/internal/logging"
)

// ErrClosed is returned by backends after Close.
var ErrClosed = errors.New("settings store closed")

// Backend persists raw string values under hierarchical keys such as
// "/desktop/gnome/thumbnailers/image@png/command".
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	// Keys returns every stored key that starts with prefix.
	Keys(prefix string) ([]string, error)
	Close() error
}

type subscription struct {
	id     uint64
	prefix string
	fn     func(key string)
}

// Store is a typed view over a Backend with change notifications.
// Getters never fail: a missing, unreadable or unparsable value yields the
// caller's fallback.
type Store struct {
	backend Backend

	mu      sync.Mutex
	subs    []subscription
	nextID  uint64
	batches int
	pending []string
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// GetValue returns the raw value stored under key.
func (s *Store) GetValue(key string) (string, bool, error) {
	return s.backend.Get(key)
}

// SetValue stores a raw value and notifies subscribers.
func (s *Store) SetValue(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.backend.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	s.notify(key)
	return nil
}

// Unset removes key and notifies subscribers. Removing a missing key is not
// an error.
func (s *Store) Unset(key string) error {
	if err := s.backend.Delete(key); err != nil {
		return fmt.Errorf("failed to unset %s: %w", key, err)
	}
	s.notify(key)
	return nil
}

// GetString returns the value of key, or fallback.
func (s *Store) GetString(key, fallback string) string {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	return v
}

// GetBool returns the boolean value of key, or fallback.
func (s *Store) GetBool(key string, fallback bool) bool {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logging.Debug("settings: %s=%q is not a boolean, using %v", key, v, fallback)
		return fallback
	}
	return b
}

// GetInt returns the integer value of key, or fallback.
func (s *Store) GetInt(key string, fallback int) int {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Debug("settings: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// SetString stores a string value.
func (s *Store) SetString(key, value string) error {
	return s.SetValue(key, value)
}

// SetBool stores a boolean value.
func (s *Store) SetBool(key string, value bool) error {
	return s.SetValue(key, strconv.FormatBool(value))
}

// SetInt stores an integer value.
func (s *Store) SetInt(key string, value int) error {
	return s.SetValue(key, strconv.Itoa(value))
}

func (s *Store) lookup(key string) (string, bool) {
	v, ok, err := s.backend.Get(key)
	if err != nil {
		logging.Warn("settings: failed to read %s: %v", key, err)
		return "", false
	}
	return v, ok
}

// Dirs returns the immediate child directories of prefix, sorted. A child
// is a directory when at least one key lies below it.
func (s *Store) Dirs(prefix string) ([]string, error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"

	keys, err := s.backend.Keys(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	seen := make(map[string]struct{})
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.IndexByte(rest, '/'); i > 0 {
			seen[prefix+rest[:i]] = struct{}{}
		}
	}

	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Subscribe registers fn to be called with the changed key whenever a key at
// or below prefix is set or unset. Callbacks run synchronously on the
// goroutine that made the change, so they must not block. The returned
// function removes the subscription.
func (s *Store) Subscribe(prefix string, fn func(key string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, prefix: prefix, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Batch runs fn with change notifications held back. When the outermost
// batch returns, every subscriber whose prefix matched a changed key is
// called once, so readers never observe a half-applied batch.
func (s *Store) Batch(fn func() error) error {
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()

	err := fn()

	s.mu.Lock()
	s.batches--
	var keys []string
	if s.batches == 0 {
		keys, s.pending = s.pending, nil
	}
	s.mu.Unlock()

	s.deliver(keys)
	return err
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	if s.batches > 0 {
		s.pending = append(s.pending, key)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.deliver([]string{key})
}

// deliver calls each matching subscriber once, with the first changed key
// under its prefix.
func (s *Store) deliver(keys []string) {
	if len(keys) == 0 {
		return
	}

	type call struct {
		fn  func(string)
		key string
	}
	s.mu.Lock()
	var calls []call
	for _, sub := range s.subs {
		for _, key := range keys {
			if key == sub.prefix || strings.HasPrefix(key, strings.TrimSuffix(sub.prefix, "/")+"/") {
				calls = append(calls, call{fn: sub.fn, key: key})
				break
			}
		}
	}
	s.mu.Unlock()

	for _, c := range calls {
		c.fn(c.key)
	}
}

func validateKey(key string) error {
	if !strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") || strings.Contains(key, "//") {
		return fmt.Errorf("invalid settings key %q", key)
	}
	return nil
}
