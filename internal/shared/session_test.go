package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/listing"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	client, _ := newTestRedis(t)
	sm := NewSessionManager(client, "backoffice_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(&capability.User{ID: 7, Nombre: "Ana", RolID: capability.RoleTesoreria})
	sess.SetUpstreamCookies([]*http.Cookie{{Name: "connect.sid", Value: "abc"}})
	sess.SetScreen("agenda", listing.Descriptor{Filters: map[string]string{"estado": "pendiente"}, Page: 2, PageSize: 20})
	cookie := commitAndCookie(t, sm, sess)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, int64(7), loaded.User().ID)
	assert.Equal(t, "abc", loaded.UpstreamCookies()[0].Value)
	d, ok := loaded.Screen("agenda")
	require.True(t, ok)
	assert.Equal(t, 2, d.Page)
	assert.Equal(t, "pendiente", d.Filters["estado"])
}

func TestUnknownSessionIDIsNotAdopted(t *testing.T) {
	client, _ := newTestRedis(t)
	sm := NewSessionManager(client, "backoffice_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "backoffice_session", Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
	assert.Nil(t, sess.User())
}

func TestRenewAndDestroy(t *testing.T) {
	client, mr := newTestRedis(t)
	sm := NewSessionManager(client, "backoffice_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	commitAndCookie(t, sm, sess)
	oldID := sess.ID
	require.True(t, mr.Exists("session:"+oldID))

	require.NoError(t, sm.Renew(ctx, sess))
	commitAndCookie(t, sm, sess)
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, mr.Exists("session:"+oldID))

	sm.Destroy(sess)
	cookie := commitAndCookie(t, sm, sess)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.False(t, mr.Exists("session:"+sess.ID))
}

func TestUnchangedUpstreamCookiesKeepSessionClean(t *testing.T) {
	client, _ := newTestRedis(t)
	sm := NewSessionManager(client, "s", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUpstreamCookies([]*http.Cookie{{Name: "a", Value: "1"}})
	commitAndCookie(t, sm, sess)

	sess.SetUpstreamCookies([]*http.Cookie{{Name: "a", Value: "1"}})
	assert.False(t, sess.dirty)
	sess.SetUpstreamCookies([]*http.Cookie{{Name: "a", Value: "2"}})
	assert.True(t, sess.dirty)
}

func TestCSRF(t *testing.T) {
	client, _ := newTestRedis(t)
	sm := NewSessionManager(client, "s", "secret", time.Hour, false)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "nope"), ErrCSRFTokenMismatch)

	rotated := csrf.Rotate(sess)
	assert.NotEqual(t, token, rotated)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
}
