/*
users.go - Back-office login accounts

Passwords are stored as bcrypt hashes. EnsureAdmin seeds the first admin
account on an empty users table so a fresh database is usable.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User is a back-office login account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
}

// UserStore is the accounts view of the database.
type UserStore struct {
	db *DB
	q  querier
}

// Users returns the accounts store view.
func (d *DB) Users() *UserStore {
	return &UserStore{db: d, q: d.db}
}

// SaveUser inserts or updates an account.
func (s *UserStore) SaveUser(ctx context.Context, u User) error {
	query := `
		INSERT INTO users (id, username, password_hash, role, full_name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			password_hash = excluded.password_hash,
			role = excluded.role,
			full_name = excluded.full_name,
			is_active = excluded.is_active
	`
	_, err := s.q.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.Role,
		nullString(u.FullName), u.IsActive, u.CreatedAt.Format(time.RFC3339))
	return err
}

// GetUserByUsername retrieves an account by username, or nil if absent.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var (
		u         User
		fullName  sql.NullString
		createdAt string
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, full_name, is_active, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &fullName, &u.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// EnsureAdmin creates the admin account if no user with that username
// exists. The caller supplies the bcrypt hash so this package stays free
// of the hashing dependency.
func (s *UserStore) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.SaveUser(ctx, User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "admin",
		FullName:     "Administrator",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
}
