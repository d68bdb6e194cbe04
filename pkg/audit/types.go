// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// === Run lifecycle events ===
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"

	// === Account events ===
	EventEmailUpdated   EventType = "account.email_updated"
	EventRecoveryFailed EventType = "account.recovery_failed"

	// === Notification events ===
	EventNotificationSent EventType = "notification.sent"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event represents a single audit event
type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id"`

	// Type is the type of event
	Type EventType `json:"type"`

	// Severity indicates the importance of the event
	Severity Severity `json:"severity"`

	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// Actor is who triggered the event
	Actor Actor `json:"actor"`

	// Target is what was affected by the event
	Target Target `json:"target"`

	// Details contains event-specific information
	Details map[string]interface{} `json:"details,omitempty"`

	// RunID correlates all events of one batch run
	RunID string `json:"runId,omitempty"`
}

// Actor represents who triggered an audit event
type Actor struct {
	// User is the operating system user running the tool
	User string `json:"user"`

	// Host is the machine the tool ran on
	Host string `json:"host,omitempty"`

	// Tool is the binary name
	Tool string `json:"tool,omitempty"`
}

// Target represents what was affected by an audit event
type Target struct {
	// Kind of the affected object, "account" for account events
	Kind string `json:"kind,omitempty"`

	// Name identifies the target, the username for account events
	Name string `json:"name,omitempty"`

	// AccountID is the numeric account identifier when resolved
	AccountID int64 `json:"accountId,omitempty"`
}

// SeverityForEventType returns the default severity for an event type
func SeverityForEventType(eventType EventType) Severity {
	switch eventType {
	case EventRecoveryFailed:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
