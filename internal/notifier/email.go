package notifier

import (
	mail "gopkg.in/mail.v2"

	"github.com/solwatch/solwatch/internal/types"
)

// EmailSender delivers alerts over SMTP.
type EmailSender struct {
	name     string
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
}

// NewEmailSender creates an email sender for the given SMTP account.
func NewEmailSender(name, smtpHost string, smtpPort int, username, password, from, to string) *EmailSender {
	return &EmailSender{
		name:     name,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (s *EmailSender) Name() string { return s.name }

// Send delivers the alert as a plain-text email.
func (s *EmailSender) Send(alert *types.Alert) error {
	message := mail.NewMessage()

	message.SetHeader("From", s.from)
	message.SetHeader("To", s.to)
	message.SetHeader("Subject", "SolWatch: "+alert.Title)

	message.SetBody("text/plain", FormatMessage(alert))

	dialer := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)

	return dialer.DialAndSend(message)
}
