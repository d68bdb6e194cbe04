/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKafkaSinkConfig_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		cfg     KafkaSinkConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid minimal config",
			cfg: KafkaSinkConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "audit-events",
			},
			wantErr: false,
		},
		{
			name: "missing brokers",
			cfg: KafkaSinkConfig{
				Topic: "audit-events",
			},
			wantErr: true,
			errMsg:  "at least one Kafka broker is required",
		},
		{
			name: "missing topic",
			cfg: KafkaSinkConfig{
				Brokers: []string{"localhost:9092"},
			},
			wantErr: true,
			errMsg:  "Kafka topic is required",
		},
		{
			name: "valid with TLS",
			cfg: KafkaSinkConfig{
				Brokers: []string{"kafka:9093"},
				Topic:   "audit-events",
				TLS: &KafkaTLSConfig{
					Enabled:            true,
					InsecureSkipVerify: true,
				},
			},
			wantErr: false,
		},
		{
			name: "valid with SASL PLAIN",
			cfg: KafkaSinkConfig{
				Brokers: []string{"kafka:9092"},
				Topic:   "audit-events",
				SASL: &KafkaSASLConfig{
					Mechanism: "PLAIN",
					Username:  "audit-writer",
					Password:  "secret",
				},
			},
			wantErr: false,
		},
		{
			name: "valid with SCRAM-SHA-512",
			cfg: KafkaSinkConfig{
				Brokers: []string{"kafka:9092"},
				Topic:   "audit-events",
				SASL: &KafkaSASLConfig{
					Mechanism: "SCRAM-SHA-512",
					Username:  "audit-writer",
					Password:  "secret",
				},
			},
			wantErr: false,
		},
		{
			name: "unsupported SASL mechanism",
			cfg: KafkaSinkConfig{
				Brokers: []string{"kafka:9092"},
				Topic:   "audit-events",
				SASL: &KafkaSASLConfig{
					Mechanism: "GSSAPI",
				},
			},
			wantErr: true,
			errMsg:  "unsupported SASL mechanism",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink, err := NewKafkaSink(tc.cfg, logger)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, sink)
			assert.NoError(t, sink.Close())
		})
	}
}

func TestKafkaSinkName(t *testing.T) {
	logger := zaptest.NewLogger(t)

	sink, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "audit-events",
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())
	assert.NoError(t, sink.Close())

	named, err := NewKafkaSink(KafkaSinkConfig{
		Name:    "audit-primary",
		Brokers: []string{"localhost:9092"},
		Topic:   "audit-events",
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "audit-primary", named.Name())
	assert.NoError(t, named.Close())
}

func TestKafkaSinkWriteAfterClose(t *testing.T) {
	sink, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "audit-events",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	// Closing twice is fine
	require.NoError(t, sink.Close())

	err = sink.Write(context.Background(), &Event{ID: "x", Type: EventRunStarted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestKafkaMessage(t *testing.T) {
	event := &Event{
		ID:        "evt-1",
		Type:      EventEmailUpdated,
		Severity:  SeverityInfo,
		Timestamp: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Actor:     Actor{User: "admin", Tool: "recoverctl"},
		Target:    Target{Kind: "account", Name: "jdoe", AccountID: 42},
		RunID:     "run-abc",
	}

	msg, err := kafkaMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("evt-1"), msg.Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.Target.AccountID, decoded.Target.AccountID)
	assert.Equal(t, event.RunID, decoded.RunID)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(EventEmailUpdated), headers["event-type"])
	assert.Equal(t, string(SeverityInfo), headers["severity"])
	assert.Equal(t, "admin", headers["actor"])
	assert.Equal(t, "run-abc", headers["run-id"])
	assert.Equal(t, "2025-03-14T09:26:53Z", headers["timestamp"])
}

func TestClassifyKafkaError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"cancelled", context.Canceled, "cancelled"},
		{"dns", &net.DNSError{Err: "no such host", Name: "kafka"}, "network"},
		{"sasl", errors.New("SASL handshake failed"), "auth"},
		{"refused", errors.New("dial tcp: connection refused"), "network"},
		{"tls", fmt.Errorf("wrapping: %w", errors.New("TLS handshake error")), "tls"},
		{"topic", errors.New("unknown topic or partition"), "topic"},
		{"other", errors.New("something else entirely"), "other"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifyKafkaError(tc.err))
		})
	}
}
