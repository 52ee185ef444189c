// Package email envía los links de sign-in por correo vía SMTP.
package email

import (
	"crypto/tls"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
)

// Sender es la interfaz para enviar emails.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, TLSMode: "auto"}
}

// Send envía un email multipart (texto + HTML).
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.Named("smtp").With(
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
	)
	log.Debug("sending email", logger.String("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("send failed", logger.Err(err))
		return err
	}
	return nil
}
