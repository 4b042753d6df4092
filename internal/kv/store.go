package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/observability"
)

// Op is the kind of write a Change reports.
type Op string

const (
	OpSet    Op = "set"
	OpRemove Op = "remove"
)

// Change describes one completed write.
type Change struct {
	Op     Op        `json:"op"`
	Key    string    `json:"key"`
	Family string    `json:"family"`
	At     time.Time `json:"at"`
}

// Listener is notified after every write. Listeners run synchronously on
// the writing goroutine and must not write to the store.
type Listener func(Change)

type atomicKey struct{}

// Store is the typed JSON layer over a Backend. Reads never fail because
// of bad stored data: a value that does not decode is logged and replaced
// by the caller's fallback.
type Store struct {
	backend Backend
	log     zerolog.Logger

	// mu serializes logical operations that touch several keys.
	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		log:     logger.New("KVStore"),
	}
}

// Backend exposes the underlying substrate.
func (s *Store) Backend() Backend { return s.backend }

// Get reads key and decodes it into a T. A missing key or malformed JSON
// yields fallback with a nil error; only backend failures are returned.
func Get[T any](ctx context.Context, s *Store, key string, fallback T) (T, error) {
	raw, ok, err := s.read(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.corrupt(key, err)
		return fallback, nil
	}
	return out, nil
}

// Set encodes value as JSON and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.write(ctx, key, raw)
}

// GetString reads a value stored without JSON encoding.
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.read(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(raw), true, nil
}

// SetString stores a value without JSON encoding.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	return s.write(ctx, key, []byte(value))
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *Store) Remove(ctx context.Context, key string) (err error) {
	done := observability.TrackKV("delete", s.backend.Name())
	defer done(&err)

	if err = s.backend.Delete(ctx, key); err != nil {
		return err
	}
	s.emit(Change{Op: OpRemove, Key: key, Family: Family(key), At: time.Now()})
	return nil
}

// Keys lists stored keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	done := observability.TrackKV("keys", s.backend.Name())
	defer done(&err)
	return s.backend.Keys(ctx, prefix)
}

// Atomically runs fn while holding the store lock, so a multi-key update
// is never interleaved with another one from this process. Nested calls on
// the context passed to fn do not lock again. Other processes sharing the
// backend are not excluded: last write wins.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(atomicKey{}) == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, atomicKey{}, s))
}

// OnChange registers a listener for completed writes.
func (s *Store) OnChange(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) read(ctx context.Context, key string) (raw []byte, ok bool, err error) {
	done := observability.TrackKV("get", s.backend.Name())
	defer done(&err)
	return s.backend.Get(ctx, key)
}

func (s *Store) write(ctx context.Context, key string, raw []byte) (err error) {
	done := observability.TrackKV("set", s.backend.Name())
	defer done(&err)

	if err = s.backend.Set(ctx, key, raw); err != nil {
		return err
	}
	s.emit(Change{Op: OpSet, Key: key, Family: Family(key), At: time.Now()})
	return nil
}

func (s *Store) corrupt(key string, err error) {
	family := Family(key)
	observability.CorruptEntries.WithLabelValues(family).Inc()
	s.log.Warn().
		Err(fmt.Errorf("%w: %v", model.ErrStorageCorruption, err)).
		Str("key", key).
		Str("family", family).
		Msg("malformed stored value, using fallback")
}

func (s *Store) emit(c Change) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l(c)
	}
}
