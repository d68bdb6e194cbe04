package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/metrics"
)

// SQLiteStore reads and updates accounts in a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const accountColumns = "id, username, email, full_name, password_hash, is_active, created_at, updated_at"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    full_name TEXT,
    password_hash TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_email_nocase ON accounts (email COLLATE NOCASE);
CREATE TABLE IF NOT EXISTS account_preferences (
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (account_id, key)
);
`

// OpenSQLite connects to the accounts database at path and ensures the schema
// exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FindByUsernameOrEmail implements Store. The email clause compares without
// case; the username clause is exact. A LIMIT 2 probe distinguishes a unique
// match from an ambiguous one without counting the whole table.
func (s *SQLiteStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*Account, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ? OR email = ? COLLATE NOCASE ORDER BY id LIMIT 2`,
		username,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	defer rows.Close()

	var matches []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// UpdateEmail implements Store.
func (s *SQLiteStore) UpdateEmail(ctx context.Context, id int64, newEmail string) (*Account, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE accounts SET email = ?, updated_at = ? WHERE id = ?`,
		newEmail,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	account, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.EmailsUpdated.WithLabelValues(config.DriverSQLite).Inc()
	return account, nil
}

func (s *SQLiteStore) findByID(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`,
		id,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

// LanguagePreference implements Store.
func (s *SQLiteStore) LanguagePreference(ctx context.Context, id int64) (string, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT value FROM account_preferences WHERE account_id = ? AND key = ?`,
		id,
		languagePreferenceKey,
	)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query language preference: %w", err)
	}
	return value, nil
}

func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	var (
		id           int64
		username     string
		email        string
		fullName     sql.NullString
		passwordHash string
		isActive     int64
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&username,
		&email,
		&fullName,
		&passwordHash,
		&isActive,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account := &Account{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     fullName.String,
		PasswordHash: passwordHash,
		Active:       isActive != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		account.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		account.UpdatedAt = updated
	}
	return account, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
