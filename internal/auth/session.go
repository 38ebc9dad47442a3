package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/LeventeLantos/wa-relay/internal/config"
	"github.com/LeventeLantos/wa-relay/internal/model"
)

const CookieName = "relay_session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrRevokedSession = errors.New("session revoked")
)

// Revoker is implemented by cache.RedisSessionRevoker.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NoopRevoker is used when Redis is disabled. Logout then only clears the
// cookie.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// Session is what a valid cookie proves about the caller.
type Session struct {
	ID        string
	UserID    int64
	Email     string
	Staff     bool
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	Staff bool   `json:"staff"`
	jwt.RegisteredClaims
}

type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	secure  bool
	revoker Revoker
	now     func() time.Time
}

func NewSessionManager(cfg config.SessionConfig, revoker Revoker) *SessionManager {
	if revoker == nil {
		revoker = NoopRevoker{}
	}
	return &SessionManager{
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		secure:  cfg.SecureCookie,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue signs a token for u and sets it as the session cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, u *model.User) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Staff:     u.IsStaff,
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: s.Email,
		Staff: s.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   strconv.FormatInt(s.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Read returns the session carried by r. Missing, malformed, expired and
// revoked tokens are all errors.
func (m *SessionManager) Read(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	var cl claims
	_, err = jwt.ParseWithClaims(c.Value, &cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidSession
	}

	uid, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil || cl.ID == "" {
		return nil, ErrInvalidSession
	}

	revoked, err := m.revoker.IsRevoked(r.Context(), cl.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedSession
	}

	return &Session{
		ID:        cl.ID,
		UserID:    uid,
		Email:     cl.Email,
		Staff:     cl.Staff,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

// Clear revokes the current session, if any, and expires the cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	var err error
	if s, readErr := m.Read(r); readErr == nil {
		err = m.revoker.Revoke(r.Context(), s.ID, s.ExpiresAt)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}
