package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/account-recovery/pkg/mail"
	"github.com/telekom/account-recovery/pkg/metrics"
	"github.com/telekom/account-recovery/pkg/store"
)

// FailureKind classifies why a row could not be fully processed.
type FailureKind string

const (
	FailureAccountNotFound FailureKind = "account_not_found"
	FailureAmbiguousMatch  FailureKind = "ambiguous_match"
	FailurePersist         FailureKind = "persist_error"
	FailureNotification    FailureKind = "notification_error"
)

// RowError is a failed row together with its failure class and cause.
type RowError struct {
	Kind FailureKind
	Row  Row
	Err  error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *RowError) Unwrap() error { return e.Err }

// Result is the outcome bookkeeping of one run. Succeeded holds the new
// email addresses of fully processed rows, Failed the original addresses of
// rows that failed anywhere in resolve, mutate or notify. Both keep input
// order. Errors carries the failure detail for each entry of Failed.
type Result struct {
	Succeeded []string
	Failed    []string
	Errors    []*RowError
}

// Auditor receives the run's audit events. audit.Recorder satisfies it.
type Auditor interface {
	RunStarted(ctx context.Context, source string)
	EmailUpdated(ctx context.Context, accountID int64, username, oldEmail, newEmail string)
	RecoveryFailed(ctx context.Context, username, email, kind string, cause error)
	NotificationSent(ctx context.Context, accountID int64, username, recipient, language string)
	RunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration)
}

// Runner processes recovery rows one by one, in input order: resolve the
// account, persist the new address, send the reset message to the old
// address. A failing row is recorded and skipped, it never stops the run.
type Runner struct {
	store    store.Store
	composer *mail.Composer
	sender   mail.Sender
	auditor  Auditor
	log      *zap.SugaredLogger
}

// NewRunner builds a Runner. All collaborators are passed in explicitly so
// nothing is read from process-global state.
func NewRunner(s store.Store, composer *mail.Composer, sender mail.Sender, auditor Auditor, log *zap.SugaredLogger) *Runner {
	return &Runner{
		store:    s,
		composer: composer,
		sender:   sender,
		auditor:  auditor,
		log:      log.Named("recovery"),
	}
}

// Run processes all rows and reports the outcome summary. Per-row failures
// are contained; Run itself cannot fail.
func (r *Runner) Run(ctx context.Context, source string, rows []Row) *Result {
	return r.run(ctx, source, rows, false)
}

// DryRun resolves every row without mutating or notifying, reporting which
// rows a real run would accept. Nothing is persisted, sent, audited or
// counted in metrics.
func (r *Runner) DryRun(ctx context.Context, source string, rows []Row) *Result {
	return r.run(ctx, source, rows, true)
}

func (r *Runner) run(ctx context.Context, source string, rows []Row, dryRun bool) *Result {
	start := time.Now()
	result := &Result{}

	if !dryRun {
		r.auditor.RunStarted(ctx, source)
	}
	r.log.Infow("Starting account recovery run", "source", source, "rows", len(rows), "dryRun", dryRun)

	for _, row := range rows {
		rowErr := r.processRow(ctx, row, dryRun)
		if rowErr != nil {
			result.Failed = append(result.Failed, row.Email)
			result.Errors = append(result.Errors, rowErr)
			r.log.Errorw("Unable to recover account",
				"username", row.Username, "email", row.Email,
				"kind", rowErr.Kind, "error", rowErr.Err)
			if !dryRun {
				metrics.RowsProcessed.WithLabelValues("failure").Inc()
				metrics.RowsFailed.WithLabelValues(string(rowErr.Kind)).Inc()
				r.auditor.RecoveryFailed(ctx, row.Username, row.Email, string(rowErr.Kind), rowErr.Err)
			}
			continue
		}

		result.Succeeded = append(result.Succeeded, row.NewEmail)
		if !dryRun {
			metrics.RowsProcessed.WithLabelValues("success").Inc()
		}
	}

	if !dryRun {
		r.auditor.RunCompleted(ctx, len(result.Succeeded), len(result.Failed), time.Since(start))
	}
	r.log.Infow(
		fmt.Sprintf("Successfully updated %d accounts. Failed to update %d accounts",
			len(result.Succeeded), len(result.Failed)),
		"succeededEmails", result.Succeeded,
		"failedEmails", result.Failed,
		"dryRun", dryRun,
	)
	return result
}

// processRow runs resolve, mutate and notify for one row. In dry-run mode it
// stops after a successful resolve. The returned RowError is nil on success.
func (r *Runner) processRow(ctx context.Context, row Row, dryRun bool) *RowError {
	account, err := r.store.FindByUsernameOrEmail(ctx, row.Username, row.Email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return &RowError{Kind: FailureAccountNotFound, Row: row, Err: err}
		case errors.Is(err, store.ErrAmbiguous):
			return &RowError{Kind: FailureAmbiguousMatch, Row: row, Err: err}
		default:
			return &RowError{Kind: FailurePersist, Row: row, Err: err}
		}
	}

	if dryRun {
		r.log.Debugw("Row resolves to a unique account",
			"username", row.Username, "accountID", account.ID)
		return nil
	}

	// The refreshed record is what the reset token must bind to: the update
	// bumps the account state the token fingerprints.
	updated, err := r.store.UpdateEmail(ctx, account.ID, row.NewEmail)
	if err != nil {
		return &RowError{Kind: FailurePersist, Row: row, Err: err}
	}
	r.auditor.EmailUpdated(ctx, updated.ID, updated.Username, row.Email, row.NewEmail)

	if err := r.notify(ctx, updated, row.Email); err != nil {
		return &RowError{Kind: FailureNotification, Row: row, Err: err}
	}
	return nil
}

// notify sends the localized password reset message to the row's old address.
func (r *Runner) notify(ctx context.Context, account *store.Account, oldEmail string) error {
	preferredLanguage, err := r.store.LanguagePreference(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("reading language preference: %w", err)
	}

	msg, err := r.composer.Compose(account, oldEmail, preferredLanguage)
	if err != nil {
		return err
	}

	if err := r.sender.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("sending password reset message: %w", err)
	}

	r.auditor.NotificationSent(ctx, account.ID, account.Username, oldEmail, msg.Language)
	r.log.Debugw("Password reset message sent",
		"username", account.Username, "to", oldEmail, "language", msg.Language)
	return nil
}
