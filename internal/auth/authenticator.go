package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotPrivileged      = errors.New("account is not allowed to access the dashboard")
)

type Authenticator struct {
	users repo.UserRepository
}

func NewAuthenticator(users repo.UserRepository) *Authenticator {
	return &Authenticator{users: users}
}

// Login checks the credentials and the staff flag. Unknown, inactive and
// mismatched accounts all yield ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsStaff {
		return u, ErrNotPrivileged
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
