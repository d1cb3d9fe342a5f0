package notify

import (
	"fmt"
	"net/smtp"

	logrus "github.com/sirupsen/logrus"
)

// Mailer delivers a single HTML email. Implementations must be safe for
// concurrent use; ledger callers treat failures as log-and-continue.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, Username: username, Password: password, From: from}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.From, to, subject, htmlBody,
	)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, []byte(msg))
}

// LogMailer is the fallback when no SMTP relay is configured: notices are
// written to the application log instead of delivered.
type LogMailer struct{}

func (LogMailer) Send(to, subject, htmlBody string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail (not delivered, no SMTP configured)")
	return nil
}

// Dispatch sends in the background and logs failures. Delivery is never
// allowed to affect the ledger operation that triggered it.
func Dispatch(m Mailer, to, subject, htmlBody string) {
	if m == nil || to == "" {
		return
	}
	go func() {
		if err := m.Send(to, subject, htmlBody); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("mail dispatch failed")
		}
	}()
}
