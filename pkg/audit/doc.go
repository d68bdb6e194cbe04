// Package audit records an audit trail for account recovery runs. Events go
// to the structured log and optionally to a Kafka topic; publishing is
// best-effort and never influences row processing.
package audit
