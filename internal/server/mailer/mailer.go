// Package mailer delivers one-time codes and other notices by e-mail.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/logging"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

var errNoRecipient = errors.New("mailer: recipient is empty")

var sendMail = smtp.SendMail

// SMTPSender relays through a submission server. net/smtp upgrades to
// STARTTLS when the server offers it.
type SMTPSender struct {
	addr string
	host string
	user string
	pass string
	from string
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		user: user,
		pass: pass,
		from: from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	to := strings.TrimSpace(m.To)
	if to == "" {
		return errNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	if err := sendMail(s.addr, auth, s.from, []string{to}, buildMessage(s.from, to, m.Subject, m.Body)); err != nil {
		return fmt.Errorf("mailer: sendmail: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

// LogSender writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return errNoRecipient
	}
	s.log.Info(ctx, "mail not sent, smtp disabled", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

// CodeMessage renders the mail carrying a one-time code.
func CodeMessage(to, purpose, code string) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your %s code is %s.\nIt expires shortly; do not share it.\n", purpose, code),
	}
}
