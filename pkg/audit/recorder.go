// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/metrics"
)

const toolName = "recoverctl"

// Recorder is the audit entry point for a single batch run. It fans events
// out to all configured sinks. Sink failures are logged and swallowed so
// auditing can never change the outcome of a row.
type Recorder struct {
	sinks []Sink
	actor Actor
	runID string
	log   *zap.SugaredLogger
}

// NewRecorder builds a Recorder for one run. The structured log sink is
// always attached; a Kafka sink is added when the audit config enables it
// and names at least one broker. A broken Kafka configuration is returned
// as an error so the run aborts before any row is touched.
func NewRecorder(cfg config.Audit, runID string, log *zap.SugaredLogger) (*Recorder, error) {
	sinks := []Sink{NewLogSink(log.Desugar())}

	if cfg.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg, err := kafkaSinkConfig(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		kafkaSink, err := NewKafkaSink(kafkaCfg, log.Desugar())
		if err != nil {
			return nil, fmt.Errorf("building Kafka audit sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
	}

	return &Recorder{
		sinks: sinks,
		actor: localActor(),
		runID: runID,
		log:   log.Named("audit"),
	}, nil
}

func kafkaSinkConfig(cfg config.Kafka) (KafkaSinkConfig, error) {
	out := KafkaSinkConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	}
	if cfg.WriteTimeout != "" {
		d, err := time.ParseDuration(cfg.WriteTimeout)
		if err != nil {
			return out, fmt.Errorf("parsing audit kafka writeTimeout %q: %w", cfg.WriteTimeout, err)
		}
		out.WriteTimeout = d
	}
	if cfg.TLS.Enabled {
		out.TLS = &KafkaTLSConfig{
			Enabled:            true,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		}
	}
	if cfg.SASL.Mechanism != "" {
		out.SASL = &KafkaSASLConfig{
			Mechanism: cfg.SASL.Mechanism,
			Username:  cfg.SASL.Username,
			Password:  cfg.SASL.Password,
		}
	}
	return out, nil
}

// localActor identifies the operator running the tool.
func localActor() Actor {
	a := Actor{Tool: toolName}
	if u, err := user.Current(); err == nil {
		a.User = u.Username
	} else {
		a.User = os.Getenv("USER")
	}
	if h, err := os.Hostname(); err == nil {
		a.Host = h
	}
	return a
}

func (r *Recorder) newEvent(eventType EventType) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Severity:  SeverityForEventType(eventType),
		Timestamp: time.Now().UTC(),
		Actor:     r.actor,
		RunID:     r.runID,
	}
}

func (r *Recorder) emit(ctx context.Context, event *Event) {
	for _, sink := range r.sinks {
		if err := sink.Write(ctx, event); err != nil {
			metrics.AuditPublishFailures.WithLabelValues(sink.Name()).Inc()
			r.log.Warnw("Audit sink write failed",
				"sink", sink.Name(), "eventType", event.Type, "error", err)
			continue
		}
		metrics.AuditEventsPublished.WithLabelValues(sink.Name()).Inc()
	}
}

// RunStarted records the beginning of a batch run over the given input file.
func (r *Recorder) RunStarted(ctx context.Context, source string) {
	event := r.newEvent(EventRunStarted)
	event.Details = map[string]interface{}{"source": source}
	r.emit(ctx, event)
}

// EmailUpdated records a durably persisted address change.
func (r *Recorder) EmailUpdated(ctx context.Context, accountID int64, username, oldEmail, newEmail string) {
	event := r.newEvent(EventEmailUpdated)
	event.Target = Target{Kind: "account", Name: username, AccountID: accountID}
	event.Details = map[string]interface{}{
		"oldEmail": oldEmail,
		"newEmail": newEmail,
	}
	r.emit(ctx, event)
}

// RecoveryFailed records a row that could not be fully processed. The kind
// names the failure class, cause carries the underlying error if any.
func (r *Recorder) RecoveryFailed(ctx context.Context, username, email, kind string, cause error) {
	event := r.newEvent(EventRecoveryFailed)
	event.Target = Target{Kind: "account", Name: username}
	details := map[string]interface{}{
		"email": email,
		"kind":  kind,
	}
	if cause != nil {
		details["error"] = cause.Error()
	}
	event.Details = details
	r.emit(ctx, event)
}

// NotificationSent records a delivered password reset message.
func (r *Recorder) NotificationSent(ctx context.Context, accountID int64, username, recipient, language string) {
	event := r.newEvent(EventNotificationSent)
	event.Target = Target{Kind: "account", Name: username, AccountID: accountID}
	event.Details = map[string]interface{}{
		"recipient": recipient,
		"language":  language,
	}
	r.emit(ctx, event)
}

// RunCompleted records the final tally of a batch run.
func (r *Recorder) RunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) {
	event := r.newEvent(EventRunCompleted)
	event.Details = map[string]interface{}{
		"succeeded": succeeded,
		"failed":    failed,
		"duration":  duration.String(),
	}
	r.emit(ctx, event)
}

// Close releases all sinks.
func (r *Recorder) Close() error {
	var lastErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			r.log.Warnw("Closing audit sink failed", "sink", sink.Name(), "error", err)
			lastErr = err
		}
	}
	return lastErr
}
