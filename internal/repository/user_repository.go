package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/query"
)

const userColumns = "id, first_name, last_name, username, password_hash, role, is_active, refresh_token_hash, created_at, updated_at"

func userDefinition() query.Definition {
	return query.Definition{
		Table: "users",
		SelectColumns: []string{
			"id", "first_name", "last_name", "username", "password_hash",
			"role", "is_active", "refresh_token_hash", "created_at", "updated_at",
		},
		FuzzyFields: map[string]string{
			"firstName": "first_name",
			"lastName":  "last_name",
			"username":  "username",
		},
		// role is an enumerated value, matched by equality only.
		ExactFields: map[string]string{
			"role": "role",
		},
		FixedOrder: "first_name ASC, last_name ASC",
	}
}

// UserRepository provides database access for user management.
type UserRepository struct {
	db     *sqlx.DB
	engine *query.Engine[models.User]
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db:     db,
		engine: query.NewEngine[models.User](db, userDefinition()),
	}
}

// List returns a page of users matching the spec filters.
func (r *UserRepository) List(ctx context.Context, spec query.Spec) (*query.Result[models.User], error) {
	return r.engine.List(ctx, spec)
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	queryStr := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, queryStr, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByUsername returns a user by username. The lookup is case-sensitive,
// matching the unique constraint.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	queryStr := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, queryStr, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const queryStr = `INSERT INTO users (id, first_name, last_name, username, password_hash, role, is_active, refresh_token_hash, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :username, :password_hash, :role, :is_active, :refresh_token_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, queryStr, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const queryStr = `UPDATE users SET first_name = :first_name, last_name = :last_name, username = :username,
        password_hash = :password_hash, role = :role, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, queryStr, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// SetRefreshTokenHash stores the hashed refresh token; nil clears it.
func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	const queryStr = `UPDATE users SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, queryStr, id, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

// Delete removes a user record.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const queryStr = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, queryStr, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
