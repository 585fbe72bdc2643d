package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userTracer  = "user-repository"
	userColumns = `id, email, password_hash, name, bio, location, avatar_url, created_at, updated_at`

	uniqueViolation = "23505"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, finish := observe(ctx, userTracer, "CreateUser")
	defer func() { finish(err) }()

	if user == nil {
		err = pkgerrors.ErrNilUser
		return err
	}
	if user.Email == "" || user.PasswordHash == "" {
		err = fmt.Errorf("%w: email and password are required", pkgerrors.ErrInvalidInput)
		return err
	}

	query := `INSERT INTO profiles (email, password_hash, name) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.Name).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			slog.Warn("email already registered", "method", "Create", "email", user.Email)
			return pkgerrors.ErrUserAlreadyExists
		}
		slog.Error("failed to create user", "method", "Create", "email", user.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "method", "Create", "user_id", user.ID)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (_ *models.User, err error) {
	ctx, finish := observe(ctx, userTracer, "GetUserByID", attribute.String("user_id", id))
	defer func() { finish(err) }()

	query := `SELECT ` + userColumns + ` FROM profiles WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to get user by id", "method", "GetByID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := observe(ctx, userTracer, "GetUserByEmail")
	defer func() { finish(err) }()

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM profiles WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to get user by email", "method", "GetByEmail", "error", err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) (err error) {
	ctx, finish := observe(ctx, userTracer, "UpdateProfile")
	defer func() { finish(err) }()

	if user == nil {
		err = pkgerrors.ErrNilUser
		return err
	}

	query := `UPDATE profiles SET name = $1, bio = $2, location = $3, avatar_url = $4, updated_at = NOW() WHERE id = $5 RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query, user.Name, user.Bio, user.Location, user.AvatarURL, user.ID).Scan(&user.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to update profile", "method", "UpdateProfile", "user_id", user.ID, "error", err)
		return fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", "method", "UpdateProfile", "user_id", user.ID)
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio, &u.Location, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
