// Package metrics defines Prometheus metrics for the account recovery tool,
// covering row processing, email updates, reset tokens, mail delivery, and
// audit publishing.
package metrics
