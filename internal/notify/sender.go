// Package notify delivers reservation status mails to guests through SMTP
// or the SendGrid API.
package notify

import (
	"fmt"
	"strings"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(toName, to, subject, content string) error
}

// Provider names accepted by NewSender.
const (
	ProviderNone     = ""
	ProviderSMTP     = "smtp"
	ProviderSendgrid = "sendgrid"
)

// Options carries the mail settings needed by every provider.
type Options struct {
	Provider string
	From     string
	FromName string

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPAuth       string
	SMTPEncryption string
	SMTPNoTLSCheck bool

	SendgridAPIKey string
}

// NewSender builds the Sender for opts.Provider. It returns a nil Sender and
// no error when mail is disabled.
func NewSender(opts Options) (Sender, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderNone, "none":
		return nil, nil
	case ProviderSMTP:
		if opts.SMTPHost == "" {
			return nil, fmt.Errorf("mail.smtp.host is required for the smtp provider")
		}
		return NewSmtpMail(opts.SMTPHost, opts.SMTPPort, opts.SMTPUsername, opts.SMTPPassword,
			opts.SMTPNoTLSCheck, opts.SMTPAuth, opts.FromName, opts.From, opts.SMTPEncryption), nil
	case ProviderSendgrid:
		if opts.SendgridAPIKey == "" {
			return nil, fmt.Errorf("mail.sendgrid.api_key is required for the sendgrid provider")
		}
		return NewSendgridApiMail(opts.SendgridAPIKey, opts.FromName, opts.From), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q (supported: smtp, sendgrid)", opts.Provider)
	}
}
