package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

type postgresRepository struct {
	db database.DBTX
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db database.DBTX) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, store_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, strings.ToLower(user.Email), user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.StoreID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT id, email, password_hash, first_name, last_name, role, store_id, created_at, updated_at
	FROM users
`

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(r.db.QueryRowContext(ctx, selectUser+`WHERE email = $1`, strings.ToLower(email)))
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.scan(r.db.QueryRowContext(ctx, selectUser+`WHERE id = $1`, parsedID))
}

func (r *postgresRepository) scan(row *sql.Row) (*User, error) {
	user := &User{}
	var storeID uuid.NullUUID
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&storeID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if storeID.Valid {
		user.StoreID = &storeID.UUID
	}
	return user, nil
}
