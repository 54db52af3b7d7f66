package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

// SessionStore maps a sender identity to its conversation state.
// Callers hold Lock for a sender while they read, change and write its session.
type SessionStore interface {
	Get(sender string) (*models.Session, bool)
	Put(session *models.Session)
	Delete(sender string)
	Lock(ctx context.Context, sender string) (unlock func(), err error)
}

// keyLock is a per-sender mutex that can be abandoned on context cancellation
type keyLock struct {
	ch   chan struct{}
	refs int
}

// MemorySessionStore keeps sessions in process memory.
// Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	locks    map[string]*keyLock

	ttl      time.Duration
	onExpire func(ctx context.Context, session *models.Session)
	now      func() time.Time
}

// SessionOption configures a MemorySessionStore
type SessionOption func(*MemorySessionStore)

// WithSessionTTL expires sessions idle for longer than ttl. Zero keeps them forever.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *MemorySessionStore) {
		s.ttl = ttl
	}
}

// WithExpiryHook is called for every session removed by the sweeper
func WithExpiryHook(fn func(ctx context.Context, session *models.Session)) SessionOption {
	return func(s *MemorySessionStore) {
		s.onExpire = fn
	}
}

// WithSessionClock overrides time.Now
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *MemorySessionStore) {
		s.now = now
	}
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore(opts ...SessionOption) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions: make(map[string]*models.Session),
		locks:    make(map[string]*keyLock),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the sender's session
func (s *MemorySessionStore) Get(sender string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sender]
	if !ok {
		return nil, false
	}
	if s.expired(session) {
		delete(s.sessions, sender)
		return nil, false
	}
	return session.Clone(), true
}

// Put stores a copy of the session and marks it active
func (s *MemorySessionStore) Put(session *models.Session) {
	if session == nil {
		return
	}
	cp := session.Clone()
	cp.LastActive = s.now()

	s.mu.Lock()
	s.sessions[cp.Sender] = cp
	s.mu.Unlock()
}

// Delete removes the sender's session if any
func (s *MemorySessionStore) Delete(sender string) {
	s.mu.Lock()
	delete(s.sessions, sender)
	s.mu.Unlock()
}

// Lock blocks until the caller owns the sender, or ctx is done.
// The returned unlock func is safe to call more than once.
func (s *MemorySessionStore) Lock(ctx context.Context, sender string) (func(), error) {
	s.mu.Lock()
	kl, ok := s.locks[sender]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[sender] = kl
	}
	kl.refs++
	s.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(sender, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			s.release(sender, kl)
		})
	}, nil
}

func (s *MemorySessionStore) release(sender string, kl *keyLock) {
	s.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(s.locks, sender)
	}
	s.mu.Unlock()
}

// Count returns the number of tracked sessions
func (s *MemorySessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CountByStep returns the number of sessions at each step
func (s *MemorySessionStore) CountByStep() map[models.Step]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.Step]int)
	for _, session := range s.sessions {
		counts[session.Step]++
	}
	return counts
}

func (s *MemorySessionStore) expired(session *models.Session) bool {
	return s.ttl > 0 && s.now().Sub(session.LastActive) > s.ttl
}

// SweepExpired removes idle sessions whose sender is not currently locked
func (s *MemorySessionStore) SweepExpired(ctx context.Context) []*models.Session {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	var expired []*models.Session
	for sender, session := range s.sessions {
		if _, busy := s.locks[sender]; busy {
			continue
		}
		if s.expired(session) {
			expired = append(expired, session)
			delete(s.sessions, sender)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		slog.Info("Session expired", "sender", session.Sender, "step", session.Step)
		if s.onExpire != nil {
			s.onExpire(ctx, session)
		}
	}
	return expired
}

// StartSweeper runs SweepExpired every interval until ctx is done
func (s *MemorySessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpired(ctx)
			}
		}
	}()
}
