package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defines how session contexts are stored and retrieved between
// requests. Implementations must be safe for concurrent use.
type Store interface {
	New() *Context
	Get(id string) (*Context, bool)
	Save(ctx *Context)
	Delete(id string)
}

type memEntry struct {
	ctx       *Context
	expiresAt time.Time
}

// memStore keeps sessions in process memory. Good enough for a single
// classroom on a single process; swap the Store out before scaling past that.
type memStore struct {
	ttl     time.Duration
	nowFunc func() time.Time

	mu       sync.Mutex
	sessions map[string]*memEntry
}

var _ Store = (*memStore)(nil)

func NewMemStore(ttl time.Duration) Store {
	return &memStore{
		ttl:      ttl,
		nowFunc:  time.Now,
		sessions: make(map[string]*memEntry),
	}
}

func (s *memStore) New() *Context {
	ctx := &Context{
		ID:     uuid.New().String(),
		Values: make(map[string]string),
	}
	s.Save(ctx)
	return ctx
}

func (s *memStore) Get(id string) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.nowFunc().After(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return entry.ctx, true
}

func (s *memStore) Save(ctx *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ctx.ID] = &memEntry{ctx: ctx, expiresAt: s.nowFunc().Add(s.ttl)}
	s.sweep()
}

func (s *memStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// sweep drops expired sessions; callers must hold s.mu.
func (s *memStore) sweep() {
	now := s.nowFunc()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
