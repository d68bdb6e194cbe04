package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/telekom/account-recovery/pkg/audit"
	"github.com/telekom/account-recovery/pkg/mail"
	"github.com/telekom/account-recovery/pkg/recovery"
	"github.com/telekom/account-recovery/pkg/store"
	"github.com/telekom/account-recovery/pkg/token"
)

// batchDeps holds the wired collaborators a batch command runs against.
type batchDeps struct {
	runner   *recovery.Runner
	runID    string
	store    store.Store
	recorder *audit.Recorder
	rt       *runtimeState
}

// buildBatchDeps connects the account store and audit trail and assembles the
// runner from loaded config. Any error here is a bootstrap failure that must
// abort before the first row.
func buildBatchDeps(ctx context.Context, rt *runtimeState) (*batchDeps, error) {
	cfg := rt.cfg

	st, err := store.New(ctx, cfg.Store, rt.log)
	if err != nil {
		return nil, fmt.Errorf("connecting account store: %w", err)
	}

	runID := uuid.NewString()
	recorder, err := audit.NewRecorder(cfg.Audit, runID, rt.log)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("setting up audit trail: %w", err)
	}

	issuer := token.NewIssuer(cfg.Site, cfg.Token.Secret, cfg.TokenTTL())
	composer := mail.NewComposer(cfg.Site, issuer, cfg.TokenTTL())
	sender := mail.NewSender(cfg.Mail, cfg.Site, rt.log)

	return &batchDeps{
		runner:   recovery.NewRunner(st, composer, sender, recorder, rt.log),
		runID:    runID,
		store:    st,
		recorder: recorder,
		rt:       rt,
	}, nil
}

func (d *batchDeps) Close() {
	if err := d.recorder.Close(); err != nil {
		d.rt.log.Warnw("Closing audit trail", "error", err)
	}
	if err := d.store.Close(); err != nil {
		d.rt.log.Warnw("Closing account store", "error", err)
	}
}
