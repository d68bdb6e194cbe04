package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/store"
)

// purposePasswordReset scopes tokens to the password reset flow so they
// cannot be replayed against other token-consuming endpoints.
const purposePasswordReset = "password-reset"

var (
	// ErrWrongPurpose means the token was valid but not a reset token.
	ErrWrongPurpose = errors.New("token purpose is not password-reset")
	// ErrStateMismatch means the account changed since the token was issued.
	ErrStateMismatch = errors.New("token no longer matches account state")
)

// ResetClaims are the claims carried by a password reset token. State binds
// the token to the account's credentials at issue time, which invalidates the
// link as soon as the password is reset once.
type ResetClaims struct {
	Purpose string `json:"purpose"`
	State   string `json:"state"`
	jwt.StandardClaims
}

// Issuer mints and verifies time-bounded password reset tokens and builds the
// reset links embedded in notification messages.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	scheme   string
	siteName string

	now func() time.Time
}

// NewIssuer builds an Issuer for the given site. secret is the HMAC signing
// key, ttl the validity window of issued links.
func NewIssuer(site config.Site, secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		ttl:      ttl,
		scheme:   site.Scheme,
		siteName: site.SiteName,
		now:      time.Now,
	}
}

// EncodeID renders an account id in base36 for use in reset links.
func EncodeID(id int64) string {
	return strconv.FormatInt(id, 36)
}

// DecodeID parses a base36-encoded account id.
func DecodeID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("decode account id %q: %w", s, err)
	}
	return id, nil
}

// accountState fingerprints the parts of the account a completed password
// reset changes. Both the hash and the update timestamp feed in, so updating
// the email during recovery already rotates outstanding tokens.
func accountState(account *store.Account) string {
	h := sha256.New()
	h.Write([]byte(account.PasswordHash))
	h.Write([]byte("|"))
	h.Write([]byte(account.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

// Issue mints a signed reset token for the account.
func (i *Issuer) Issue(account *store.Account) (string, error) {
	now := i.now()
	claims := ResetClaims{
		Purpose: purposePasswordReset,
		State:   accountState(account),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(i.ttl).Unix(),
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			Issuer:    i.siteName,
			Subject:   EncodeID(account.ID),
			Id:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("unable to generate token: %v", err)
	}
	return token, nil
}

// Verify parses and validates a reset token, returning its claims.
func (i *Issuer) Verify(raw string) (*ResetClaims, error) {
	var claims ResetClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposePasswordReset {
		return nil, ErrWrongPurpose
	}
	return &claims, nil
}

// VerifyFor validates a reset token against the account's current state. It
// fails with ErrStateMismatch once the password or email changed after issue.
func (i *Issuer) VerifyFor(raw string, account *store.Account) (*ResetClaims, error) {
	claims, err := i.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.State != accountState(account) {
		return nil, ErrStateMismatch
	}
	return claims, nil
}

// ResetLink issues a token for the account and embeds it in the confirmation
// URL the platform serves. The path carries the base36 account id joined to
// the token with a dash; the id never contains a dash, so the first dash
// always terminates it.
func (i *Issuer) ResetLink(account *store.Account) (string, error) {
	token, err := i.Issue(account)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s/password_reset_confirm/%s-%s?track=pwreset",
		i.scheme, i.siteName, EncodeID(account.ID), token), nil
}
