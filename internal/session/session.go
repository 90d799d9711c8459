package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"go.uber.org/zap"
)

type State string

const (
	Anonymous     State = "anonymous"
	Authenticated State = "authenticated"
)

// Session holds the signed-in profile for one client, mirrored to a durable
// cache entry. It trusts whatever it is given: nothing here talks to the
// identity provider or the profile store.
type Session struct {
	mu       sync.Mutex
	cache    Cache
	key      string
	log      *zap.Logger
	user     *profile.Profile
	hydrated bool
}

func New(cache Cache, key string, log *zap.Logger) *Session {
	return &Session{cache: cache, key: key, log: log}
}

// Hydrate restores a previously cached profile. It only runs once; a cache
// entry that does not decode is removed and the session stays anonymous.
func (s *Session) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return
	}
	s.hydrated = true

	data, err := s.cache.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("session cache read failed", zap.String("key", s.key), zap.Error(err))
		}
		return
	}

	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil || p.ID == "" {
		s.log.Warn("discarding unreadable session cache entry", zap.String("key", s.key), zap.Error(err))
		if err := s.cache.Remove(ctx, s.key); err != nil {
			s.log.Warn("session cache remove failed", zap.String("key", s.key), zap.Error(err))
		}
		return
	}
	s.user = &p
}

// Login replaces the current profile. The in-memory state changes even if
// the cache write fails.
func (s *Session) Login(ctx context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrated = true
	s.user = &p
	return s.persist(ctx)
}

// Logout clears the session. It is safe to call when already anonymous.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrated = true
	s.user = nil
	if err := s.cache.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

// UpdateProfile shallow-merges patch onto the current profile and
// re-persists it. It reports false and does nothing when anonymous.
func (s *Session) UpdateProfile(ctx context.Context, patch profile.Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return false, nil
	}
	merged := patch.Apply(*s.user)
	s.user = &merged
	return true, s.persist(ctx)
}

// Current returns a copy of the signed-in profile.
func (s *Session) Current() (profile.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return profile.Profile{}, false
	}
	return *s.user, true
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// IsLoading is true until the first hydration has completed.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.hydrated
}

func (s *Session) State() State {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

func (s *Session) persist(ctx context.Context) error {
	data, err := json.Marshal(s.user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.cache.Store(ctx, s.key, data); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}
