package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"RallyScope/internal/model"
)

// Store keeps fetched instrument inputs on disk, one JSON file per symbol,
// so scheduled re-runs do not hit the data provider again within the TTL.
type Store struct {
	mu  sync.Mutex
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewStore creates the cache directory if needed.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Get returns a cached copy of the symbol's inputs if present and fresh.
func (s *Store) Get(symbol string) (*model.InstrumentData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := loadEntry(s.path(symbol))
	if err != nil || e == nil {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(e.SavedAt) > s.ttl {
		return nil, false
	}
	return e.data(), true
}

// Put stores the symbol's inputs, replacing any previous entry.
func (s *Store) Put(data *model.InstrumentData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := saveEntry(s.path(data.Instrument.Symbol), newEntry(data, s.now())); err != nil {
		return fmt.Errorf("save cache entry %s: %w", data.Instrument.Symbol, err)
	}
	return nil
}

// Invalidate removes the symbol's entry.
func (s *Store) Invalidate(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(symbol))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) path(symbol string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, symbol)
	return filepath.Join(s.dir, safe+".json")
}
