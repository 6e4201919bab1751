// Package store persists users and their roles in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const RoleUser = "user"
const RoleAdmin = "admin"

// User is a chat user as seen by the bot. ID is the platform-assigned
// sender id and is stable for the lifetime of the account.
type User struct {
	ID       int64
	Username string
	Lang     string
	Roles    []string
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserStore is a SQLite-backed user/role store.
type UserStore struct {
	db *sql.DB
}

func Open(dbPath string) (*UserStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &UserStore{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *UserStore) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *UserStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	id       INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	lang     TEXT NOT NULL,
	roles    TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Find returns the user with the given id, or nil when unknown.
func (s *UserStore) Find(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, username, lang, roles FROM users WHERE id = ?", id)
	return scanUser(row)
}

// Create inserts the user unless the id already exists, then returns
// the stored record. The insert-or-fetch shape makes concurrent first
// sightings of the same sender converge on one row.
func (s *UserStore) Create(ctx context.Context, u *User) (*User, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, lang, roles) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
		u.ID, u.Username, u.Lang, strings.Join(u.Roles, ","),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user %d: %w", u.ID, err)
	}

	created, err := s.Find(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("user %d vanished after insert", u.ID)
	}
	return created, nil
}

// SetLang updates the user's preferred language; no-op when the user
// does not exist.
func (s *UserStore) SetLang(ctx context.Context, id int64, lang string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE users SET lang = ? WHERE id = ?", lang, id); err != nil {
		return fmt.Errorf("set lang for %d: %w", id, err)
	}
	return nil
}

// GrantRole adds a role to an existing user; no-op when already held
// or when the user does not exist.
func (s *UserStore) GrantRole(ctx context.Context, id int64, role string) error {
	u, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	if u == nil || u.HasRole(role) {
		return nil
	}
	roles := strings.Join(append(u.Roles, role), ",")
	if _, err := s.db.ExecContext(ctx, "UPDATE users SET roles = ? WHERE id = ?", roles, id); err != nil {
		return fmt.Errorf("grant role %s to %d: %w", role, id, err)
	}
	return nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var roles string
	err := row.Scan(&u.ID, &u.Username, &u.Lang, &roles)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if roles != "" {
		u.Roles = strings.Split(roles, ",")
	}
	return &u, nil
}
