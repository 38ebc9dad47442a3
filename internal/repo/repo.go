package repo

import (
	"context"
	"errors"

	"github.com/LeventeLantos/wa-relay/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// RecordRepository is the append-only message log. Records have no update
// or delete path.
type RecordRepository interface {
	Create(ctx context.Context, r *model.Record) error
	ListNewestFirst(ctx context.Context) ([]model.Record, error)
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}
