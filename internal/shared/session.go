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

	"github.com/paylite-technologies/payng/internal/identity"
)

// SessionManager orchestrates cookie based sessions backed by Redis. A
// session carries a snapshot of the authenticated identity plus its linked
// students; computed ability rules are never stored here, they are rebuilt
// from the snapshot whenever it changes.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data.
type Session struct {
	ID        string
	ident     *identity.Identity
	students  []identity.Student
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Identity *identity.Identity `json:"identity,omitempty"`
	Students []identity.Student `json:"students,omitempty"`
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
			sess := sm.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	sess.ident = stored.Identity
	sess.students = stored.Students
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

	if sess.isNew && sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Identity: sess.ident, Students: sess.students})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}

	if sess.ID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  time.Now().Add(sm.ttl),
		})
	}

	return nil
}

// RefreshStudents rewrites the student snapshot of a stored session without
// touching its identity or shortening its remaining lifetime. Unknown session
// ids are a no-op: the session may have expired between enqueue and run.
func (sm *SessionManager) RefreshStudents(ctx context.Context, sessionID string, students []identity.Student) error {
	key := sm.redisKey(sessionID)
	data, err := sm.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	stored.Students = students

	out, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	ttl, err := sm.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = sm.ttl
	}
	return sm.client.Set(ctx, key, out, ttl).Err()
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// SetIdentity replaces the identity snapshot. Used at login; a role change
// always arrives here as a freshly authenticated identity.
func (s *Session) SetIdentity(ident *identity.Identity) {
	s.ident = ident
	s.dirty = true
}

// SetStudents replaces the linked-student snapshot. Used at login and
// whenever a guardian link changes.
func (s *Session) SetStudents(students []identity.Student) {
	s.students = students
	s.dirty = true
}

// Identity returns the stored identity, or the anonymous sentinel when the
// session is unauthenticated.
func (s *Session) Identity() *identity.Identity {
	if s == nil || s.ident == nil {
		return identity.Anonymous()
	}
	return s.ident
}

// Students returns the linked students for this session.
func (s *Session) Students() []identity.Student {
	if s == nil {
		return nil
	}
	return s.students
}

// Authenticated reports whether the session carries a real login.
func (s *Session) Authenticated() bool {
	return s != nil && s.ident != nil && s.ident.Authenticated()
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:    sm.generateSessionID(),
		isNew: true,
		dirty: true,
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
