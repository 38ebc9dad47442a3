package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticator_Login(t *testing.T) {
	t.Parallel()

	users := newMemUsers()
	staff := users.add(t, "admin@example.com", "pw-admin", true, true)
	users.add(t, "clerk@example.com", "pw-clerk", true, false)
	users.add(t, "gone@example.com", "pw-gone", false, true)

	a := NewAuthenticator(users)
	ctx := context.Background()

	u, err := a.Login(ctx, "  Admin@Example.com ", "pw-admin")
	require.NoError(t, err)
	require.Equal(t, staff.ID, u.ID)

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "nobody@example.com", "x", ErrInvalidCredentials},
		{"wrong password", "admin@example.com", "wrong", ErrInvalidCredentials},
		{"inactive user", "gone@example.com", "pw-gone", ErrInvalidCredentials},
		{"not staff", "clerk@example.com", "pw-clerk", ErrNotPrivileged},
	}
	for _, tc := range cases {
		_, err := a.Login(ctx, tc.email, tc.password)
		require.Truef(t, errors.Is(err, tc.want), "%s: expected %v, got %v", tc.name, tc.want, err)
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))

	_, err = HashPassword("")
	require.Error(t, err)
}
