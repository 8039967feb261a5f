// Package session tracks the authenticated admin identity: credential
// sign-in against the admins file, HMAC-signed session tokens carried
// in a cookie, and change notifications for live views.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"babysteps/internal/model"
	"babysteps/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is the only failure detail exposed for a bad
// sign-in attempt; it deliberately does not distinguish unknown email
// from wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

const DefaultTokenTTL = 30 * 24 * time.Hour

type subscriber struct {
	id int
	fn func(*model.Identity)
}

// Manager is the session facade. It holds no persistent state of its
// own; identities live in signed tokens and the admins file.
type Manager struct {
	dir string

	mu     sync.Mutex
	secret []byte
	subs   []subscriber
	nextID int
}

func NewManager(dir string) *Manager {
	return &Manager{dir: strings.TrimSpace(dir)}
}

func (m *Manager) secretKey() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.secret) > 0 {
		return m.secret, nil
	}
	sec, err := loadOrInitSecretKey(m.dir)
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}
	m.secret = sec
	return sec, nil
}

// UserIDForEmail derives the opaque, stable user id for an admin email.
func UserIDForEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return "usr-" + strings.ToLower(enc.EncodeToString(sum[:5]))
}

// SignIn checks the credentials against the admins file and notifies
// subscribers on success. Failures come back as errors with a
// user-readable message; nothing is retried.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	admins, _, err := store.LoadAdmins(m.dir)
	if err != nil {
		return nil, fmt.Errorf("load admins: %w", err)
	}
	ref, ok := admins.Find(email)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ref.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	id := &model.Identity{UserID: UserIDForEmail(email), Email: email}
	m.notify(id)
	return id, nil
}

// SignOut invalidates the current session. Token revocation is cookie
// clearing at the web layer; the manager's job is telling subscribers
// the identity is gone.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.notify(nil)
	return nil
}

// Current resolves a session token to its identity, or nil when the
// token is absent, malformed or expired.
func (m *Manager) Current(token string) *model.Identity {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	secret, err := m.secretKey()
	if err != nil {
		return nil
	}
	sp, err := verifyToken(secret, token)
	if err != nil || sp.Typ != "session" {
		return nil
	}
	return &model.Identity{UserID: sp.Sub, Email: sp.Email}
}

// IssueToken mints a signed session token for the identity.
func (m *Manager) IssueToken(id model.Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", errors.New("issue token: missing user id")
	}
	secret, err := m.secretKey()
	if err != nil {
		return "", err
	}
	n, err := newNonce()
	if err != nil {
		return "", err
	}
	return signToken(secret, signedPayload{
		Typ:   "session",
		Sub:   id.UserID,
		Email: id.Email,
		N:     n,
		Exp:   time.Now().Add(ttl).Unix(),
	})
}

// Subscribe registers a listener for session transitions. Callbacks
// fire in registration order, synchronously with respect to each other,
// from the goroutine performing the transition. The returned func
// removes the subscription and must be called on teardown so a
// discarded view never receives updates.
func (m *Manager) Subscribe(fn func(*model.Identity)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) notify(id *model.Identity) {
	m.mu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(id)
	}
}

// HashPassword produces the bcrypt hash stored in the admins file.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
