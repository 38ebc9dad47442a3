package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LeventeLantos/wa-relay/internal/model"
)

type SQLUserStore struct {
	db *sqlx.DB
}

var _ UserRepository = (*SQLUserStore)(nil)

func NewSQLUserStore(db *sqlx.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

const userColumns = `id, email, password_hash, is_active, is_staff, created_at`

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
}

func (s *SQLUserStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *SQLUserStore) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" || u.PasswordHash == "" {
		return errors.New("user needs an email and a password hash")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO users (email, password_hash, is_active, is_staff, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), u.Email, u.PasswordHash, u.IsActive, u.IsStaff, u.CreatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func (s *SQLUserStore) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
