// Command relayctl administers a relay database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/LeventeLantos/wa-relay/internal/auth"
	"github.com/LeventeLantos/wa-relay/internal/config"
	"github.com/LeventeLantos/wa-relay/internal/logger"
	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

const usage = `usage: relayctl create-user -email EMAIL -password PASSWORD [-staff]`

func main() {
	_ = godotenv.Load()
	slog.SetDefault(logger.New(os.Getenv("LOG_LEVEL")))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "create-user":
		return runCreateUser(ctx, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runCreateUser(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	staff := fs.Bool("staff", false, "allow dashboard access")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	db, err := repo.Open(ctx, dbCfg.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Migrate(ctx, db); err != nil {
		return err
	}

	u, err := createUser(ctx, repo.NewSQLUserStore(db), *email, *password, *staff)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created user %d (%s, staff=%t)\n", u.ID, u.Email, u.IsStaff)
	return nil
}

func createUser(ctx context.Context, users repo.UserRepository, email, password string, staff bool) (*model.User, error) {
	if email == "" {
		return nil, errors.New("-email is required")
	}
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user %s already exists", email)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      staff,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("user created", "user_id", u.ID, "staff", u.IsStaff)
	return u, nil
}
