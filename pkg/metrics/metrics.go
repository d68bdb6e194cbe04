package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Row processing metrics
	RowsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_rows_processed_total",
		Help: "Total number of input rows processed, by outcome (success or failure)",
	}, []string{"outcome"})
	RowsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_rows_failed_total",
		Help: "Total number of failed input rows, by failure kind",
	}, []string{"kind"})

	// Account store metrics
	EmailsUpdated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_email_updates_total",
		Help: "Total number of account email addresses durably updated",
	}, []string{"store"})

	// Reset token metrics
	ResetTokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_reset_tokens_issued_total",
		Help: "Total number of password reset tokens issued",
	}, []string{"site"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	// Audit trail metrics
	AuditEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_audit_events_published_total",
		Help: "Total number of audit events handed to a sink",
	}, []string{"sink"})
	AuditPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_recovery_audit_publish_failures_total",
		Help: "Total number of audit events a sink failed to write",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(RowsProcessed)
	prometheus.MustRegister(RowsFailed)
	prometheus.MustRegister(EmailsUpdated)
	prometheus.MustRegister(ResetTokensIssued)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(AuditEventsPublished)
	prometheus.MustRegister(AuditPublishFailures)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
