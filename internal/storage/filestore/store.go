package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"newsflash-bot/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type counter struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type document struct {
	Interactions []storage.Interaction `json:"interactions"`
	Counters     map[string]counter    `json:"counters"`
}

// Store keeps usage data in a single JSON file. Every write rewrites the
// file through a temp file and rename, under one mutex.
type Store struct {
	filePath string
	doc      document
	mu       sync.Mutex
}

func Open(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		doc:      document{Counters: make(map[string]counter)},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read usage file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return fmt.Errorf("failed to unmarshal usage file: %w", err)
	}
	if s.doc.Counters == nil {
		s.doc.Counters = make(map[string]counter)
	}
	return nil
}

// save must be called with mu held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create usage dir: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write usage file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace usage file: %w", err)
	}
	return nil
}

func (s *Store) RecordInteraction(ctx context.Context, in *storage.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Interactions = append(s.doc.Interactions, *in)
	if err := s.save(); err != nil {
		s.doc.Interactions = s.doc.Interactions[:len(s.doc.Interactions)-1]
		return err
	}
	return nil
}

func (s *Store) ListInteractions(ctx context.Context) ([]storage.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]storage.Interaction(nil), s.doc.Interactions...), nil
}

func (s *Store) IncrementUsage(ctx context.Context, key string, day time.Time, limit int) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dayKey := storage.Day(day).Format(time.DateOnly)
	prev, existed := s.doc.Counters[key]
	c := prev
	if c.Day != dayKey {
		c = counter{Day: dayKey}
	}
	if limit > 0 && c.Count >= limit {
		return c.Count, false, nil
	}
	c.Count++

	s.doc.Counters[key] = c
	if err := s.save(); err != nil {
		if existed {
			s.doc.Counters[key] = prev
		} else {
			delete(s.doc.Counters, key)
		}
		return 0, false, err
	}
	return c.Count, true, nil
}

func (s *Store) Close() error {
	return nil
}
