// Package mailer sends transactional mail over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"html"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/ride-accounts/internal/config"
)

// Mailer represents an email sender.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
	logger *zerolog.Logger
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// New returns a Mailer for cfg, or nil when cfg does not enable mail.
func New(cfg config.MailConfig, logger *zerolog.Logger) *Mailer {
	if !cfg.Enabled() {
		logger.Info().Msg("SMTP_HOST/SMTP_FROM not set; mail disabled")
		return nil
	}
	return &Mailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return errors.New("no recipients specified")
	}
	return m.dialer.DialAndSend(m.message(email))
}

// SendWelcome greets a freshly registered account.  Failures are returned
// to the caller, which decides how to log them.
func (m *Mailer) SendWelcome(to, firstName, role string) error {
	if err := m.Send(welcomeEmail(to, firstName, role)); err != nil {
		return err
	}
	m.logger.Debug().Str("to", to).Msg("welcome mail sent")
	return nil
}

func welcomeEmail(to, firstName, role string) Email {
	kind := "rider"
	if role == "Captain" {
		kind = "captain"
	}
	return Email{
		To:       []string{to},
		Subject:  "Welcome aboard",
		Body:     fmt.Sprintf("Hi %s,\n\nyour %s account is ready. You can sign in with %s.\n", firstName, kind, to),
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>your %s account is ready. You can sign in with <b>%s</b>.</p>", html.EscapeString(firstName), kind, html.EscapeString(to)),
	}
}

func (m *Mailer) message(email Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
	return msg
}
