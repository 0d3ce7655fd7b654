package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kozihq/kozi/core"
)

var ErrMissingEmailColumn = errors.New(`roster is missing an "email" column`)

// LoadError wraps any failure to load the roster file. It is fatal to the
// whole page: the message is instructor-facing, not student-actionable.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading roster %s: %v", e.Path, e.Err)
}

// Cause satisfies pkg/errors unwrapping.
func (e *LoadError) Cause() error { return e.Err }

func (e *LoadError) Unwrap() error { return e.Err }

// Roster is the set of normalized enrolled-student emails. It is immutable
// once loaded; the Store replaces it wholesale, never edits it in place.
type Roster map[string]struct{}

// Contains reports enrollment; the test is case/whitespace-insensitive.
func (r Roster) Contains(email string) bool {
	_, ok := r[core.CleanString(email, true /* lower */)]
	return ok
}

func (r Roster) Len() int { return len(r) }

// Load reads a roster CSV. The header row must include an `email` column;
// additional columns are ignored. Emails are trimmed, lowered and
// de-duplicated; blank rows are dropped.
func Load(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are fine; we only want one column

	header, err := reader.Read()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	emailIdx := -1
	for i, col := range header {
		col = strings.TrimPrefix(col, "\uFEFF") // Excel exports sneak a BOM in
		if core.CleanString(col, true /* lower */) == "email" {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 {
		return nil, &LoadError{Path: path, Err: ErrMissingEmailColumn}
	}

	r := make(Roster)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		if emailIdx >= len(row) {
			continue
		}
		email := core.CleanString(row[emailIdx], true /* lower */)
		if email == "" {
			continue
		}
		r[email] = struct{}{}
	}
	return r, nil
}

// Store caches the loaded roster with a TTL so repeated checks within one
// run do not re-read the file, while a changed file is eventually observed.
type Store struct {
	path    string
	ttl     time.Duration
	nowFunc func() time.Time // mockable

	mu       sync.RWMutex
	cached   Roster
	loadedAt time.Time
}

func NewStore(path string, ttl time.Duration) *Store {
	return &Store{path: path, ttl: ttl, nowFunc: time.Now}
}

// Roster returns the cached roster, reloading it when the cache has
// expired. Concurrent readers get either the old roster or the fully-loaded
// new one, never a partially-parsed one. On reload failure the previous
// cache is left untouched and the error is returned.
func (s *Store) Roster() (Roster, error) {
	s.mu.RLock()
	if s.cached != nil && s.nowFunc().Sub(s.loadedAt) <= s.ttl {
		r := s.cached
		s.mu.RUnlock()
		return r, nil
	}
	s.mu.RUnlock()
	return s.refresh()
}

// Refresh forces a reload regardless of TTL.
func (s *Store) Refresh() (Roster, error) {
	s.Invalidate()
	return s.refresh()
}

// Invalidate drops the cached roster so the next read reloads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cached)
}

func (s *Store) refresh() (Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// another session may have refreshed while we waited for the lock
	if s.cached != nil && s.nowFunc().Sub(s.loadedAt) <= s.ttl {
		return s.cached, nil
	}

	r, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.cached = r
	s.loadedAt = s.nowFunc()
	return r, nil
}
