// Package email sends transactional mail over SMTP. When no SMTP user is
// configured the sender logs the message instead, which keeps local
// development working without credentials.
package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/pkg/logger"
)

// Sender delivers transactional mail.
type Sender interface {
	SendClaimCode(toEmail, businessName, code string) error
}

// SMTPSender sends mail through a STARTTLS SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendClaimCode sends the one-time verification code for a listing claim.
// Delivery failures are returned to the caller so the claim flow can surface
// them instead of leaving the requester waiting for mail that never comes.
func (s *SMTPSender) SendClaimCode(toEmail, businessName, code string) error {
	subject := fmt.Sprintf("Your verification code for %s", businessName)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Verify your business ownership</h2>
        <p>Hello,</p>
        <p>Someone requested to claim <strong>%s</strong> on Nearify. Enter this code to verify ownership:</p>
        <div style="background-color: #f4f4f4; padding: 20px; border-radius: 5px; text-align: center; margin: 20px 0;">
            <h1 style="color: #2563eb; font-size: 36px; margin: 0; letter-spacing: 5px;">%s</h1>
        </div>
        <p>The code is valid for <strong>10 minutes</strong>.</p>
        <p>If you did not request this, you can safely ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
        <p style="color: #999; font-size: 12px;">
            This email was sent automatically by Nearify.
        </p>
    </div>
</body>
</html>
`, businessName, code)

	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	if s.cfg.User == "" {
		logger.Warn("SMTP not configured, logging email instead of sending", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return nil
	}

	from := s.cfg.User
	displayFrom := from
	if s.cfg.FromEmail != "" {
		displayFrom = s.cfg.FromEmail
	}

	headers := map[string]string{
		"From":                      displayFrom,
		"To":                        to,
		"Subject":                   subject,
		"MIME-Version":              "1.0",
		"Content-Type":              "text/html; charset=UTF-8",
		"Content-Transfer-Encoding": "quoted-printable",
	}

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	return s.sendMailTLS(addr, auth, from, []string{to}, []byte(message))
}

// sendMailTLS sends email with STARTTLS
func (s *SMTPSender) sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: s.cfg.Host,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
