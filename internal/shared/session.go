package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/listing"
)

// SessionManager orchestrates cookie based console sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// UpstreamCookie is a cookie issued by the business API, held on behalf of
// the browser.
type UpstreamCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	user      *capability.User
	upstream  []UpstreamCookie
	screens   map[string]listing.Descriptor
	manager   *SessionManager
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values   map[string]string             `json:"values"`
	User     *capability.User              `json:"user,omitempty"`
	Upstream []UpstreamCookie              `json:"upstream,omitempty"`
	Screens  map[string]listing.Descriptor `json:"screens,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown or expired id: never adopt an id chosen by the client.
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.user = stored.User
	sess.upstream = stored.Upstream
	if stored.Screens != nil {
		sess.screens = stored.Screens
	}
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{
			Values:   sess.values,
			User:     sess.user,
			Upstream: sess.upstream,
			Screens:  sess.screens,
		})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Renew moves the session to a fresh id, dropping the old one. Called on
// login so a pre-authentication id is never reused.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if !sess.isNew {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	sess.ID = sm.generateSessionID()
	sess.isNew = true
	sess.dirty = true
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with the authenticated user.
func (s *Session) SetUser(user *capability.User) {
	s.user = user
	s.dirty = true
}

// User returns the authenticated user, nil when anonymous.
func (s *Session) User() *capability.User {
	return s.user
}

// SetUpstreamCookies replaces the business API cookies when they changed.
func (s *Session) SetUpstreamCookies(cookies []*http.Cookie) {
	next := make([]UpstreamCookie, 0, len(cookies))
	for _, c := range cookies {
		next = append(next, UpstreamCookie{Name: c.Name, Value: c.Value})
	}
	if sameCookies(s.upstream, next) {
		return
	}
	s.upstream = next
	s.dirty = true
}

// UpstreamCookies returns the business API cookies to replay.
func (s *Session) UpstreamCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.upstream))
	for _, c := range s.upstream {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Screen returns the stored criteria of a screen.
func (s *Session) Screen(name string) (listing.Descriptor, bool) {
	d, ok := s.screens[name]
	return d, ok
}

// SetScreen stores the criteria of a screen.
func (s *Session) SetScreen(name string, d listing.Descriptor) {
	s.screens[name] = d
	s.dirty = true
}

// ClearScreen forgets the criteria of a screen.
func (s *Session) ClearScreen(name string) {
	if _, ok := s.screens[name]; !ok {
		return
	}
	delete(s.screens, name)
	s.dirty = true
}

func sameCookies(a, b []UpstreamCookie) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:      sm.generateSessionID(),
		values:  make(map[string]string),
		screens: make(map[string]listing.Descriptor),
		manager: sm,
		isNew:   true,
		dirty:   true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
