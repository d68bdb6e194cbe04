package recovery

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/mail"
	"github.com/telekom/account-recovery/pkg/metrics"
	"github.com/telekom/account-recovery/pkg/store"
	"github.com/telekom/account-recovery/pkg/system"
	"github.com/telekom/account-recovery/pkg/token"
)

type sentMail struct {
	to      mail.Recipient
	subject string
	body    string
}

type fakeSender struct {
	sent     []sentMail
	failWith error
}

func (f *fakeSender) Send(_ context.Context, to mail.Recipient, subject, body string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeSender) GetHost() string { return "fake-smtp" }
func (f *fakeSender) GetPort() int    { return 25 }

type recordingAuditor struct {
	startedSources  []string
	updatedAccounts []int64
	failedKinds     []string
	notifiedTo      []string
	completedCalls  int
	lastSucceeded   int
	lastFailed      int
}

func (a *recordingAuditor) RunStarted(_ context.Context, source string) {
	a.startedSources = append(a.startedSources, source)
}

func (a *recordingAuditor) EmailUpdated(_ context.Context, accountID int64, _, _, _ string) {
	a.updatedAccounts = append(a.updatedAccounts, accountID)
}

func (a *recordingAuditor) RecoveryFailed(_ context.Context, _, _, kind string, _ error) {
	a.failedKinds = append(a.failedKinds, kind)
}

func (a *recordingAuditor) NotificationSent(_ context.Context, _ int64, _, recipient, _ string) {
	a.notifiedTo = append(a.notifiedTo, recipient)
}

func (a *recordingAuditor) RunCompleted(_ context.Context, succeeded, failed int, _ time.Duration) {
	a.completedCalls++
	a.lastSucceeded = succeeded
	a.lastFailed = failed
}

type runnerFixture struct {
	store   *store.SQLiteStore
	db      *sql.DB
	sender  *fakeSender
	auditor *recordingAuditor
	runner  *Runner
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "accounts.db")
	s, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	site := config.Site{
		SiteName:        "accounts.example.com",
		PlatformName:    "Example Learning",
		Scheme:          "https",
		DefaultLanguage: "en",
	}
	issuer := token.NewIssuer(site, "runner-test-secret", 72*time.Hour)
	composer := mail.NewComposer(site, issuer, 72*time.Hour)
	sender := &fakeSender{}
	auditor := &recordingAuditor{}

	return &runnerFixture{
		store:   s,
		db:      db,
		sender:  sender,
		auditor: auditor,
		runner:  NewRunner(s, composer, sender, auditor, system.NewTestLogger()),
	}
}

func (f *runnerFixture) seedAccount(t *testing.T, id int64, username, email string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := f.db.Exec(
		`INSERT INTO accounts (id, username, email, full_name, password_hash, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		id, username, email, username+" Example", "pbkdf2_sha256$"+username, now, now,
	)
	require.NoError(t, err)
}

func (f *runnerFixture) seedLanguage(t *testing.T, id int64, lang string) {
	t.Helper()
	_, err := f.db.Exec(
		`INSERT INTO account_preferences (account_id, key, value) VALUES (?, 'pref-lang', ?)`,
		id, lang,
	)
	require.NoError(t, err)
}

func (f *runnerFixture) accountEmail(t *testing.T, username string) string {
	t.Helper()
	account, err := f.store.FindByUsernameOrEmail(context.Background(), username, "")
	require.NoError(t, err)
	return account.Email
}

func TestRunSuccessScenario(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 1295, "alice", "alice@old.com")

	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "alice", Email: "alice@old.com", NewEmail: "alice@new.com"},
	})

	assert.Equal(t, []string{"alice@new.com"}, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "alice@new.com", f.accountEmail(t, "alice"))

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "alice@old.com", msg.to.Address, "Reset notice goes to the old address")
	assert.Equal(t, "alice", msg.to.Name)
	assert.Equal(t, "Password reset on Example Learning", msg.subject)
	assert.Contains(t, msg.body, "https://accounts.example.com/password_reset_confirm/zz-",
		"Link embeds the base36 account id")

	assert.Equal(t, []string{"updates.csv"}, f.auditor.startedSources)
	assert.Equal(t, []int64{1295}, f.auditor.updatedAccounts)
	assert.Equal(t, []string{"alice@old.com"}, f.auditor.notifiedTo)
	assert.Equal(t, 1, f.auditor.completedCalls)
	assert.Equal(t, 1, f.auditor.lastSucceeded)
	assert.Equal(t, 0, f.auditor.lastFailed)
}

func TestRunNonexistentAccount(t *testing.T) {
	f := newRunnerFixture(t)

	before := testutil.ToFloat64(metrics.RowsFailed.WithLabelValues("account_not_found"))
	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "ghost", Email: "ghost@example.com", NewEmail: "ghost@new.example.com"},
	})
	after := testutil.ToFloat64(metrics.RowsFailed.WithLabelValues("account_not_found"))

	assert.Empty(t, result.Succeeded)
	assert.Equal(t, []string{"ghost@example.com"}, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, FailureAccountNotFound, result.Errors[0].Kind)
	assert.ErrorIs(t, result.Errors[0], store.ErrNotFound)

	assert.Empty(t, f.sender.sent, "No message for an unresolvable row")
	assert.Equal(t, []string{"account_not_found"}, f.auditor.failedKinds)
	assert.Equal(t, before+1, after)
}

func TestRunAmbiguousMatch(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 1, "bob", "bob@example.com")
	f.seedAccount(t, 2, "bobby", "BOB@EXAMPLE.COM")

	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "nosuchuser", Email: "bob@example.com", NewEmail: "bob@new.example.com"},
	})

	assert.Equal(t, []string{"bob@example.com"}, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, FailureAmbiguousMatch, result.Errors[0].Kind)

	assert.Equal(t, "bob@example.com", f.accountEmail(t, "bob"), "Ambiguity leaves both accounts untouched")
	assert.Equal(t, "BOB@EXAMPLE.COM", f.accountEmail(t, "bobby"))
	assert.Empty(t, f.sender.sent)
}

func TestRunAlreadyMigratedRows(t *testing.T) {
	f := newRunnerFixture(t)
	// carol was already migrated in an earlier run
	f.seedAccount(t, 3, "carol", "carol@new.com")

	t.Run("email no longer matches and username is wrong", func(t *testing.T) {
		result := f.runner.Run(context.Background(), "updates.csv", []Row{
			{Username: "carol@old.com", Email: "carol@old.com", NewEmail: "carol@new.com"},
		})
		assert.Equal(t, []string{"carol@old.com"}, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, FailureAccountNotFound, result.Errors[0].Kind)
	})

	t.Run("username still matches", func(t *testing.T) {
		result := f.runner.Run(context.Background(), "updates.csv", []Row{
			{Username: "carol", Email: "carol@old.com", NewEmail: "carol@new.com"},
		})
		assert.Equal(t, []string{"carol@new.com"}, result.Succeeded,
			"Username match re-runs the row successfully")
		assert.Equal(t, "carol@new.com", f.accountEmail(t, "carol"))
	})
}

func TestRunNotificationFailureKeepsMutation(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 4, "dave", "dave@old.com")
	f.sender.failWith = errors.New("smtp relay down")

	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "dave", Email: "dave@old.com", NewEmail: "dave@new.com"},
	})

	assert.Empty(t, result.Succeeded)
	assert.Equal(t, []string{"dave@old.com"}, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, FailureNotification, result.Errors[0].Kind)

	assert.Equal(t, "dave@new.com", f.accountEmail(t, "dave"),
		"Committed email change is kept when notification fails")
	assert.Equal(t, []int64{4}, f.auditor.updatedAccounts)
	assert.Empty(t, f.auditor.notifiedTo)
}

func TestRunDuplicateRowsProcessedTwice(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 5, "erin", "erin@old.com")

	row := Row{Username: "erin", Email: "erin@old.com", NewEmail: "erin@new.com"}
	result := f.runner.Run(context.Background(), "updates.csv", []Row{row, row})

	assert.Equal(t, []string{"erin@new.com", "erin@new.com"}, result.Succeeded,
		"Duplicates are processed twice, not deduplicated")
	assert.Len(t, f.sender.sent, 2, "Two sends are two independent deliveries")
}

func TestRunOrderPreserved(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 6, "frank", "frank@old.com")
	f.seedAccount(t, 7, "grace", "grace@old.com")

	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "frank", Email: "frank@old.com", NewEmail: "frank@new.com"},
		{Username: "ghost1", Email: "ghost1@example.com", NewEmail: "x@example.com"},
		{Username: "grace", Email: "grace@old.com", NewEmail: "grace@new.com"},
		{Username: "ghost2", Email: "ghost2@example.com", NewEmail: "y@example.com"},
	})

	assert.Equal(t, []string{"frank@new.com", "grace@new.com"}, result.Succeeded)
	assert.Equal(t, []string{"ghost1@example.com", "ghost2@example.com"}, result.Failed)
	require.Len(t, result.Errors, 2)
	for i, rowErr := range result.Errors {
		assert.Equal(t, result.Failed[i], rowErr.Row.Email, "Errors align with the failed list")
	}
}

func TestRunEmptyBatch(t *testing.T) {
	f := newRunnerFixture(t)

	result := f.runner.Run(context.Background(), "empty.csv", nil)

	assert.Empty(t, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, f.auditor.completedCalls, "Summary still recorded for an empty batch")
}

func TestRunLocalizedNotification(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 8, "hans", "hans@old.example")
	f.seedLanguage(t, 8, "de-DE")

	result := f.runner.Run(context.Background(), "updates.csv", []Row{
		{Username: "hans", Email: "hans@old.example", NewEmail: "hans@new.example"},
	})

	require.Equal(t, []string{"hans@new.example"}, result.Succeeded)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Zurücksetzen des Passworts auf Example Learning", f.sender.sent[0].subject)
	assert.Contains(t, f.sender.sent[0].body, "Hallo hans,")
}

type faultyStore struct {
	store.Store
	findErr   error
	updateErr error
}

func (f *faultyStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*store.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Store.FindByUsernameOrEmail(ctx, username, email)
}

func (f *faultyStore) UpdateEmail(ctx context.Context, id int64, newEmail string) (*store.Account, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.Store.UpdateEmail(ctx, id, newEmail)
}

func TestRunPersistErrors(t *testing.T) {
	t.Run("update failure", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seedAccount(t, 9, "iris", "iris@old.com")
		broken := &faultyStore{Store: f.store, updateErr: errors.New("disk I/O error")}
		runner := NewRunner(broken, f.runner.composer, f.sender, f.auditor, system.NewTestLogger())

		result := runner.Run(context.Background(), "updates.csv", []Row{
			{Username: "iris", Email: "iris@old.com", NewEmail: "iris@new.com"},
		})

		assert.Equal(t, []string{"iris@old.com"}, result.Failed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, FailurePersist, result.Errors[0].Kind)
		assert.Equal(t, "iris@old.com", f.accountEmail(t, "iris"), "Failed update leaves the account untouched")
		assert.Empty(t, f.sender.sent)
	})

	t.Run("resolution failure", func(t *testing.T) {
		f := newRunnerFixture(t)
		broken := &faultyStore{Store: f.store, findErr: errors.New("database is locked")}
		runner := NewRunner(broken, f.runner.composer, f.sender, f.auditor, system.NewTestLogger())

		result := runner.Run(context.Background(), "updates.csv", []Row{
			{Username: "jude", Email: "jude@old.com", NewEmail: "jude@new.com"},
		})

		require.Len(t, result.Errors, 1)
		assert.Equal(t, FailurePersist, result.Errors[0].Kind,
			"Store faults during resolution are persistence failures, not lookup misses")
	})
}

func TestDryRun(t *testing.T) {
	f := newRunnerFixture(t)
	f.seedAccount(t, 10, "kate", "kate@old.com")

	result := f.runner.DryRun(context.Background(), "updates.csv", []Row{
		{Username: "kate", Email: "kate@old.com", NewEmail: "kate@new.com"},
		{Username: "ghost", Email: "ghost@example.com", NewEmail: "ghost@new.com"},
	})

	assert.Equal(t, []string{"kate@new.com"}, result.Succeeded)
	assert.Equal(t, []string{"ghost@example.com"}, result.Failed)

	assert.Equal(t, "kate@old.com", f.accountEmail(t, "kate"), "Dry run never mutates")
	assert.Empty(t, f.sender.sent, "Dry run never sends")
	assert.Empty(t, f.auditor.startedSources, "Dry run never audits")
	assert.Zero(t, f.auditor.completedCalls)
}
