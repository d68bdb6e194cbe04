package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/account-recovery/pkg/config"
)

// Account is one identity record in the platform user store.
type Account struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     string    `bson:"full_name,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	Active       bool      `bson:"is_active"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

var (
	// ErrNotFound means no account matched the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrAmbiguous means more than one account matched the lookup.
	ErrAmbiguous = errors.New("multiple accounts match")
)

// languagePreferenceKey is the platform preference key holding an account's
// chosen locale.
const languagePreferenceKey = "pref-lang"

// Store abstracts the platform account database the recovery tool operates on.
type Store interface {
	// FindByUsernameOrEmail returns the single account whose username equals
	// username exactly, or whose email equals email ignoring case. It returns
	// ErrNotFound when nothing matches and ErrAmbiguous when the match is not
	// unique. An account matching both clauses counts once.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*Account, error)

	// UpdateEmail durably sets the account's email address and bumps its
	// updated timestamp. The refreshed record is returned because reset
	// tokens are bound to the post-update account state. Returns ErrNotFound
	// when the account is gone.
	UpdateEmail(ctx context.Context, id int64, newEmail string) (*Account, error)

	// LanguagePreference returns the account's stored locale, or "" when the
	// account has no language preference.
	LanguagePreference(ctx context.Context, id int64) (string, error)

	Close() error
}

// New opens the store backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.Store, log *zap.SugaredLogger) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case config.DriverMongoDB:
		return OpenMongo(ctx, cfg.MongoDB, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
