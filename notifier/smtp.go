package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTP delivers notification emails directly over SMTP, for deployments
// without the Kafka notification pipeline.
type SMTP struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTP builds a mailer for addr ("host:port"). username may be empty for
// unauthenticated relays.
func NewSMTP(addr, from, username, password string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{addr: addr, from: from, auth: auth}
}

func (m *SMTP) Send(ctx context.Context, address, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		m.from, address, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{address}, []byte(msg)); err != nil {
		return fmt.Errorf("notifier: send mail to %s: %w", address, err)
	}
	return nil
}
