package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"eltro-backend/internal/logger"
	"github.com/rs/zerolog"
)

// Store keeps one JSON document in memory and mirrors every mutation back
// to its backing file. Reads and writes go through the in-memory copy;
// the file is the durable form.
type Store[T any] struct {
	mu         sync.RWMutex
	path       string
	value      T
	newDefault func() T
	lastHash   [sha256.Size]byte
	log        zerolog.Logger
}

func New[T any](path string, newDefault func() T) *Store[T] {
	return &Store[T]{
		path:       path,
		value:      newDefault(),
		newDefault: newDefault,
		log:        logger.WithComponent("store").With().Str("file", filepath.Base(path)).Logger(),
	}
}

func (s *Store[T]) Path() string { return s.path }

// Load reads the backing file into memory. A missing file yields the
// typed default; a corrupt file is logged and replaced by the default so
// the server always starts.
func (s *Store[T]) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info().Msg("file not found, using default value")
		} else {
			s.log.Error().Err(err).Msg("read failed, using default value")
		}
		s.value = s.newDefault()
		return
	}

	value := s.newDefault()
	if err := json.Unmarshal(data, &value); err != nil {
		s.log.Error().Err(err).Msg("parse failed, using default value")
		s.value = s.newDefault()
		return
	}
	s.value = value
	s.lastHash = sha256.Sum256(data)
	s.log.Info().Msg("loaded")
}

// View runs fn under the read lock. fn must not retain the value.
func (s *Store[T]) View(fn func(value T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.value)
}

// Update runs fn under the write lock and persists when fn succeeds.
// An error from fn leaves the file untouched; the in-memory value may
// have been mutated, so fn should fail before mutating.
func (s *Store[T]) Update(fn func(value *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.value); err != nil {
		return err
	}
	return s.saveLocked()
}

// JSON marshals the current document under the read lock. Marshalling
// inside the lock keeps concurrent mutations from racing the encoder.
func (s *Store[T]) JSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.value)
}

// Mutate runs fn under the write lock without persisting. Used for
// in-memory normalization that should not touch the file.
func (s *Store[T]) Mutate(fn func(value *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
}

// saveLocked writes the document to a temp file and renames it over the
// target, so a crash mid-write never leaves a truncated file behind.
func (s *Store[T]) saveLocked() error {
	data, err := json.MarshalIndent(s.value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(s.path), err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	s.lastHash = sha256.Sum256(data)
	return nil
}

// ReloadIfChanged re-reads the backing file when its content differs from
// the last self-written state. Used by the data-dir watcher to pick up
// out-of-band edits without looping on our own writes.
func (s *Store[T]) ReloadIfChanged() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	hash := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if hash == s.lastHash {
		return
	}

	value := s.newDefault()
	if err := json.Unmarshal(data, &value); err != nil {
		s.log.Warn().Err(err).Msg("external change is not valid JSON, keeping current value")
		return
	}
	s.value = value
	s.lastHash = hash
	s.log.Info().Msg("reloaded after external change")
}
