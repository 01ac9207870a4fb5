package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskflow/internal/models"

	"github.com/lib/pq"
)

// uniqueViolation adalah kode error Postgres untuk pelanggaran unique constraint.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const userColumns = "id, username, email, contact, password, role, profile_picture, refresh_token, created_at, updated_at"

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		refreshToken sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Contact, &u.Password, &u.Role,
		&u.ProfilePicture, &refreshToken, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if refreshToken.Valid {
		u.RefreshToken = &refreshToken.String
	}
	return &u, nil
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, contact, password, role, profile_picture, refresh_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.Contact, u.Password, u.Role, u.ProfilePicture, u.RefreshToken,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, err
}

func (s *PostgresUserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return u, err
}

func (s *PostgresUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser hanya mengubah field yang dikirim (COALESCE dengan nilai lama).
func (s *PostgresUserStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
			email = COALESCE($3, email),
			contact = COALESCE($4, contact),
			password = COALESCE($5, password),
			profile_picture = COALESCE($6, profile_picture),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING `+userColumns,
		id, patch.Username, patch.Email, patch.Contact, patch.Password, patch.ProfilePicture,
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, err
}

func (s *PostgresUserStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1", id, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	return expectAffected(res)
}

func (s *PostgresUserStore) FindRefreshToken(ctx context.Context, id string) (*string, error) {
	var token sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT refresh_token FROM users WHERE id = $1", id).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	if !token.Valid {
		return nil, nil
	}
	return &token.String, nil
}

func (s *PostgresUserStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
