package mail

import (
	"context"
	"crypto/tls"
	"math"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/metrics"
)

// Recipient is a named mail recipient, display name plus address.
type Recipient struct {
	Name    string
	Address string
}

type Sender interface {
	Send(ctx context.Context, to Recipient, subject, body string) error
	GetHost() string
	GetPort() int
}

type sender struct {
	dialer         *gomail.Dialer
	senderAddress  string
	senderName     string
	retryCount     int
	retryBackoffMs int
	log            *zap.SugaredLogger
}

// NewSender builds an SMTP sender from the mail configuration. Sender address
// and display name fall back to values derived from the site when unset.
func NewSender(cfg config.Mail, site config.Site, log *zap.SugaredLogger) Sender {
	log = log.Named("mail")
	log.Infow("Initializing mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.Username)
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = "noreply@" + site.SiteName
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = site.PlatformName
	}

	// Guard against zero values when the caller skipped config defaults
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryBackoffMs := cfg.RetryBackoffMs
	if retryBackoffMs <= 0 {
		retryBackoffMs = 100
	}

	log.Debugw("Retry configuration", "count", retryCount, "initialBackoffMs", retryBackoffMs)

	return &sender{
		dialer:         d,
		senderAddress:  senderAddr,
		senderName:     senderName,
		retryCount:     retryCount,
		retryBackoffMs: retryBackoffMs,
		log:            log,
	}
}

func (s *sender) Send(ctx context.Context, to Recipient, subject, body string) error {
	s.log.Debugw("Preparing to send mail", "to", to.Address, "subject", subject)
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetAddressHeader("To", to.Address, to.Name)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
			return err
		}

		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.log.Debugw("Mail sent", "to", to.Address, "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.log.Warnw("Send attempt failed, retrying", "attempt", attempt+1, "error", err, "backoffMs", backoffMs)
			select {
			case <-ctx.Done():
				metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
				return ctx.Err()
			case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			}
			backoffMs = int(math.Min(float64(backoffMs)*2, 32000)) // Cap at ~32 seconds
		} else {
			s.log.Errorw("Failed to send mail", "attempts", s.retryCount+1, "error", err)
		}
	}

	metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
	return lastErr
}

func (s *sender) GetHost() string {
	return s.dialer.Host
}

func (s *sender) GetPort() int {
	return s.dialer.Port
}
