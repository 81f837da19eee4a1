package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "agency:session:"

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps sessions in Redis behind an HMAC-signed cookie.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session is the per-request view of the stored session.
type Session struct {
	ID        string
	values    map[string]string
	userID    int64
	email     string
	role      Role
	flashes   []FlashMessage
	previous  string
	stored    bool
	dirty     bool
	destroyed bool
}

type storedSession struct {
	Values  map[string]string `json:"values,omitempty"`
	UserID  int64             `json:"user_id,omitempty"`
	Email   string            `json:"email,omitempty"`
	Role    Role              `json:"role,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager. secret signs the cookie.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure, secret: []byte(secret)}
}

// Load returns the stored session for the request cookie. A missing,
// tampered or expired cookie yields a fresh anonymous session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return sm.fresh(), nil
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.fresh(), nil
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", ErrBackendUnavailable, err)
	}
	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return sm.fresh(), nil
	}
	sess := &Session{
		ID:      id,
		values:  stored.Values,
		userID:  stored.UserID,
		email:   stored.Email,
		role:    stored.Role,
		flashes: stored.Flashes,
		stored:  true,
	}
	if sess.values == nil {
		sess.values = map[string]string{}
	}
	return sess, nil
}

// Commit writes the session back and refreshes the cookie. Unchanged sessions
// only get their expiry extended.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, _ *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.previous != "" {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.previous).Err(); err != nil {
			return fmt.Errorf("%w: drop renewed session: %v", ErrBackendUnavailable, err)
		}
		sess.previous = ""
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil {
			return fmt.Errorf("%w: destroy session: %v", ErrBackendUnavailable, err)
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	key := sessionKeyPrefix + sess.ID
	switch {
	case sess.dirty || !sess.stored:
		data, err := json.Marshal(storedSession{
			Values:  sess.values,
			UserID:  sess.userID,
			Email:   sess.email,
			Role:    sess.role,
			Flashes: sess.flashes,
		})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, key, data, sm.ttl).Err(); err != nil {
			return fmt.Errorf("%w: save session: %v", ErrBackendUnavailable, err)
		}
		sess.stored, sess.dirty = true, false
	default:
		if err := sm.client.Expire(ctx, key, sm.ttl).Err(); err != nil {
			return fmt.Errorf("%w: touch session: %v", ErrBackendUnavailable, err)
		}
	}
	http.SetCookie(w, sm.cookie(sm.CookieValue(sess), int(sm.ttl.Seconds())))
	return nil
}

// Renew moves the session to a new id, keeping its data. Called on login so a
// pre-login cookie cannot be replayed as the authenticated session.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if sess.stored && sess.previous == "" {
		sess.previous = sess.ID
	}
	sess.ID = newSessionID()
	sess.stored = false
	sess.dirty = true
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// CookieValue returns the signed cookie payload for sess.
func (sm *SessionManager) CookieValue(sess *Session) string {
	return sess.ID + "." + sm.sign(sess.ID)
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.sign(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) fresh() *Session {
	return &Session{ID: newSessionID(), values: map[string]string{}, dirty: true}
}

func newSessionID() string {
	return uuid.NewString()
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetIdentity binds the session to an authenticated user and role.
func (s *Session) SetIdentity(userID int64, email string, role Role) {
	s.userID = userID
	s.email = email
	s.role = role
	s.dirty = true
}

// Principal returns the signed-in user, or nil when the session is anonymous
// or carries a role outside the four back-office roles.
func (s *Session) Principal() *Principal {
	if s == nil || s.userID == 0 {
		return nil
	}
	p := &Principal{UserID: s.userID, Email: s.email, Role: s.role}
	if !p.Authenticated() {
		return nil
	}
	return p
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if s == nil || len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
