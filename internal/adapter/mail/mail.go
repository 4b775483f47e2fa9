// Package mail implements domain.Mailer over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"

	"marketplace/internal/domain"
)

// Config holds the SMTP settings. Mail is disabled when Host, User or
// Password is empty.
type Config struct {
	Host     string
	User     string
	Password string
	// From is the sender address, optionally with a display name.
	From string
	// SkipVerify disables TLS certificate verification of the SMTP server.
	SkipVerify bool
}

// Enabled reports whether c carries the credentials required to send.
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

// Client sends email from a preset address.
type Client struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
}

var _ domain.Mailer = (*Client)(nil)

// NewClient returns an SMTP client for cfg.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(fmt.Sprintf("smtps://%v:%v@%v", url.PathEscape(cfg.User), url.PathEscape(cfg.Password), cfg.Host))
	if err != nil {
		return nil, fmt.Errorf("mail host: %w", err)
	}
	a, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mail address: %w", err)
	}

	smtp, err := goemail.NewSMTP(u.String(), &tls.Config{InsecureSkipVerify: cfg.SkipVerify})
	if err != nil {
		return nil, err
	}
	return &Client{smtp: smtp, mailName: a.Name, mailAddress: a.Address}, nil
}

// Send delivers one message to a single recipient. Recipients are always
// addressed as BCC. The SMTP library does not
// take a context, so ctx only short-circuits an already cancelled send.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := goemail.NewMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)
	msg.AddBCC(to)
	return c.smtp.Send(msg)
}

// LogMailer logs messages instead of sending them. It is used when SMTP is
// not configured.
type LogMailer struct {
	log *slog.Logger
}

var _ domain.Mailer = (*LogMailer)(nil)

// NewLogMailer returns a mailer that writes every message to log.
func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send implements domain.Mailer.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.InfoContext(ctx, "mail disabled, message not sent", "to", to, "subject", subject, "body", body)
	return nil
}

// New returns an SMTP client when cfg is enabled and a LogMailer otherwise.
func New(cfg Config, log *slog.Logger) (domain.Mailer, error) {
	if !cfg.Enabled() {
		log.Info("mail: disabled")
		return NewLogMailer(log), nil
	}
	log.Info("mail: enabled", "host", cfg.Host, "from", cfg.From)
	return NewClient(cfg)
}
