package mail

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/telekom/account-recovery/pkg/config"
	"github.com/telekom/account-recovery/pkg/i18n"
	"github.com/telekom/account-recovery/pkg/metrics"
	"github.com/telekom/account-recovery/pkg/store"
	"github.com/telekom/account-recovery/pkg/token"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To       Recipient
	Subject  string
	Body     string
	Language string
}

// Composer builds localized password reset messages for accounts. It resolves
// the message language, mints the reset link, and renders the HTML body.
type Composer struct {
	site   config.Site
	issuer *token.Issuer
	ttl    time.Duration
}

// NewComposer builds a Composer. ttl is the reset link validity window shown
// in the message text and must match what the issuer signs.
func NewComposer(site config.Site, issuer *token.Issuer, ttl time.Duration) *Composer {
	return &Composer{site: site, issuer: issuer, ttl: ttl}
}

// Compose renders the password reset message for account in its preferred
// language, addressed to the given address with the account's username as
// display name. preferredLanguage may be empty; the site default applies then.
func (c *Composer) Compose(account *store.Account, address, preferredLanguage string) (*Message, error) {
	tag := i18n.Match(preferredLanguage, c.site.DefaultLanguage)
	p := i18n.Printer(tag)

	link, err := c.issuer.ResetLink(account)
	if err != nil {
		return nil, fmt.Errorf("build reset link: %w", err)
	}
	metrics.ResetTokensIssued.WithLabelValues(c.site.SiteName).Inc()

	hours := int(c.ttl.Hours())
	if hours < 1 {
		hours = 1
	}

	params := PasswordResetParams{
		Subject:      i18n.Subject(p, c.site.PlatformName),
		Greeting:     i18n.Greeting(p, account.Username),
		Intro:        i18n.Intro(p, c.site.PlatformName),
		ActionPrompt: i18n.ActionPrompt(p),
		ResetLink:    link,
		ButtonLabel:  i18n.ButtonLabel(p),
		Validity:     i18n.Validity(p, hours),
		IgnoreNote:   i18n.IgnoreNote(p),
		SignOff:      i18n.SignOff(p, c.site.PlatformName),
		PlatformName: c.site.PlatformName,
		Dir:          textDirection(tag),
	}

	body, err := RenderPasswordReset(params)
	if err != nil {
		return nil, fmt.Errorf("render password reset message: %w", err)
	}

	return &Message{
		To:       Recipient{Name: account.Username, Address: address},
		Subject:  params.Subject,
		Body:     body,
		Language: tag.String(),
	}, nil
}

func textDirection(tag language.Tag) string {
	if tag == language.Arabic {
		return "rtl"
	}
	return "ltr"
}
