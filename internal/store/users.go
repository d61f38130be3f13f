package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const userColumns = `id, name, surname, email, contact_number, role`

const (
	userByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	userByEmailQuery = `SELECT ` + userColumns + `, password_hash FROM users WHERE email = $1`
	listUsersQuery   = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	insertUserQuery  = `
		INSERT INTO users (name, surname, email, contact_number, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// UserByID loads a user.
func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// UserCredentials loads the user with email together with their password hash.
func (s *Store) UserCredentials(ctx context.Context, email string) (core.User, string, error) {
	var (
		u    core.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, userByEmailQuery, email).Scan(
		&u.ID, &u.Name, &u.Surname, &u.Email, &u.ContactNumber, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	return u, hash, nil
}

// Users lists every user by id.
func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts u. A taken email is reported as core.ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	if u.Role == "" {
		u.Role = core.RoleUser
	}
	err := s.db.QueryRowContext(ctx, insertUserQuery,
		u.Name, u.Surname, u.Email, u.ContactNumber, u.Role, passwordHash,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, core.ErrEmailExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user. Their mapping rules go with them; their
// products are kept without an owner.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func scanUser(row scanner) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.ContactNumber, &u.Role)
	return u, err
}
