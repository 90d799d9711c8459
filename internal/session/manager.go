package session

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	CookieName = "sid"
	localsKey  = "sid"
	userSuffix = ":user"
)

// DefaultCapacity bounds how many sessions a Manager keeps in memory.
const DefaultCapacity = 10000

// Manager hands out one hydrated Session per session id. The least recently
// used sessions are dropped from memory once capacity is reached; their state
// stays in the cache and is hydrated again on the next request.
type Manager struct {
	mu       sync.Mutex
	cache    Cache
	log      *zap.Logger
	sessions *lru.Cache[string, *Session]
}

func NewManager(cache Cache, log *zap.Logger) *Manager {
	sessions, _ := lru.New[string, *Session](DefaultCapacity)
	return &Manager{cache: cache, log: log, sessions: sessions}
}

// WithCapacity changes how many sessions are kept in memory. Values below
// one are ignored.
func (m *Manager) WithCapacity(n int) *Manager {
	if n > 0 {
		m.sessions.Resize(n)
	}
	return m
}

// Get returns the session for sid, hydrating it from the cache the first
// time it is seen by this process.
func (m *Manager) Get(ctx context.Context, sid string) *Session {
	m.mu.Lock()
	s, ok := m.sessions.Get(sid)
	if !ok {
		s = New(m.cache, sid+userSuffix, m.log.With(zap.String("sid", sid)))
		m.sessions.Add(sid, s)
	}
	m.mu.Unlock()

	s.Hydrate(ctx)
	return s
}

// Len reports how many sessions are held in memory.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// FromCtx returns the session bound to the request by Middleware.
func (m *Manager) FromCtx(c *fiber.Ctx) *Session {
	return m.Get(c.UserContext(), SIDFromCtx(c))
}

// Middleware makes sure every request carries a session id cookie.
func Middleware(secure bool, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(CookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			cookie := &fiber.Cookie{
				Name:     CookieName,
				Value:    sid,
				Path:     "/",
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			}
			if ttl > 0 {
				cookie.Expires = time.Now().Add(ttl)
			}
			c.Cookie(cookie)
		}
		c.Locals(localsKey, sid)
		return c.Next()
	}
}

// SIDFromCtx returns the id assigned by Middleware, or "" outside it.
func SIDFromCtx(c *fiber.Ctx) string {
	sid, _ := c.Locals(localsKey).(string)
	return sid
}
