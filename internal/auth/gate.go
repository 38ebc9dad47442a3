package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/LeventeLantos/wa-relay/internal/repo"
)

type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictUnauthenticated
	VerdictNotPrivileged
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictUnauthenticated:
		return "unauthenticated"
	case VerdictNotPrivileged:
		return "not_privileged"
	default:
		return "unknown"
	}
}

// Login page reasons used by the gate redirect.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
)

// Authorize maps a session to a verdict. A nil session is unauthenticated.
func Authorize(s *Session) Verdict {
	switch {
	case s == nil:
		return VerdictUnauthenticated
	case !s.Staff:
		return VerdictNotPrivileged
	default:
		return VerdictAllowed
	}
}

type ctxKey struct{}

// SessionFromContext returns the session the gate let through.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// Gate admits only sessions whose user still exists, is active and is staff.
// The staff flag comes from the store, not from the token.
func Gate(sessions *SessionManager, users repo.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := currentSession(r, sessions, users)

			switch Authorize(s) {
			case VerdictAllowed:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
			case VerdictNotPrivileged:
				slog.Info("gate rejected non-staff session", "user_id", s.UserID, "path", r.URL.Path)
				http.Redirect(w, r, "/login/?reason="+ReasonForbidden, http.StatusFound)
			default:
				target := "/login/?reason=" + ReasonUnauthenticated + "&next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
			}
		})
	}
}

func currentSession(r *http.Request, sessions *SessionManager, users repo.UserRepository) *Session {
	s, err := sessions.Read(r)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSession):
		case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrRevokedSession):
			slog.Debug("session rejected", "err", err)
		default:
			slog.Error("session check failed", "path", r.URL.Path, "err", err)
		}
		return nil
	}

	u, err := users.FindByID(r.Context(), s.UserID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			slog.Error("gate user lookup failed", "user_id", s.UserID, "err", err)
		}
		return nil
	}
	if !u.IsActive {
		return nil
	}

	s.Staff = u.IsStaff
	s.Email = u.Email
	return s
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
