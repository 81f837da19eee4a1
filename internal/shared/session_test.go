package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "agency_session", "secret", time.Hour, false)
}

func TestSessionIdentityRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, sess.Principal())

	sess.SetIdentity(7, "ops@agency.test", RoleOperations)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "hola"})
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sm.CookieValue(sess)})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)

	p := loaded.Principal()
	require.NotNil(t, p)
	require.Equal(t, int64(7), p.UserID)
	require.Equal(t, RoleOperations, p.Role)

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "hola", flash.Message)
	require.Nil(t, loaded.PopFlash())
}

func TestSessionTamperedCookieStartsFresh(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetIdentity(9, "boss@agency.test", RoleManagement)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID + ".bogus"})
	loaded, err := sm.Load(ctx, forged)
	require.NoError(t, err)
	require.NotEqual(t, sess.ID, loaded.ID)
	require.Nil(t, loaded.Principal())

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err = sm.Load(ctx, bare)
	require.NoError(t, err)
	require.Nil(t, loaded.Principal())
}

func TestSessionRenewDropsOldID(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))
	oldCookie := sm.CookieValue(sess)
	oldID := sess.ID

	sm.Renew(sess)
	require.NotEqual(t, oldID, sess.ID)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	require.Contains(t, rec.Header().Get("Set-Cookie"), sm.CookieValue(sess))

	replay := httptest.NewRequest(http.MethodGet, "/", nil)
	replay.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldCookie})
	loaded, err := sm.Load(ctx, replay)
	require.NoError(t, err)
	require.Empty(t, loaded.Get("k"))

	renewed := httptest.NewRequest(http.MethodGet, "/", nil)
	renewed.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sm.CookieValue(sess)})
	loaded, err = sm.Load(ctx, renewed)
	require.NoError(t, err)
	require.Equal(t, "v", loaded.Get("k"))
}

func TestSessionDestroyClearsCookie(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil, sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestSessionUnknownRoleIsAnonymous(t *testing.T) {
	sess := &Session{}
	sess.SetIdentity(3, "x@agency.test", Role("GUEST"))
	require.Nil(t, sess.Principal())
}

func TestCSRFVerify(t *testing.T) {
	m := NewCSRFManager("k")
	sess := &Session{ID: "abc"}
	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NoError(t, m.VerifyToken(context.Background(), sess, token))
	require.ErrorIs(t, m.VerifyToken(context.Background(), sess, "other"), ErrCSRFTokenMismatch)

	m.Rotate(sess)
	require.ErrorIs(t, m.VerifyToken(context.Background(), sess, token), ErrCSRFTokenMissing)
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	m := NewCSRFManager("k")
	sess := &Session{ID: "abc"}
	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	other := &Session{ID: "xyz"}
	other.Set(CSRFSessionKey, token)
	require.ErrorIs(t, m.VerifyToken(context.Background(), other, token), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)
}

func TestAllScopesDeduplicated(t *testing.T) {
	all := AllScopes()
	seen := map[string]bool{}
	for _, p := range all {
		require.False(t, seen[p], p)
		seen[p] = true
	}
	require.True(t, seen[PermSummaryView])
	require.True(t, seen[PermSaleView])
}
