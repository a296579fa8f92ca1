// internal/service/email/service.go
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"wardpulse-service/internal/domain/notification"
	"wardpulse-service/internal/domain/subscription"
)

// Sender delivers notifications over SMTP. It implements
// broker.ChannelSender for the email side channel. Staff mailboxes are
// addressed as identity@domain; a real directory integration would
// replace addressFor.
type Sender struct {
	smtpHost    string
	smtpPort    string
	username    string
	password    string
	fromName    string
	staffDomain string
	secure      bool
}

func NewSender(host, port, user, pass, fromName, staffDomain string, secure bool) *Sender {
	return &Sender{
		smtpHost:    host,
		smtpPort:    port,
		username:    user,
		password:    pass,
		fromName:    fromName,
		staffDomain: staffDomain,
		secure:      secure,
	}
}

func (s *Sender) Channel() subscription.Channel {
	return subscription.ChannelEmail
}

// Send renders and mails one notification. No retries; the dispatcher
// records the outcome either way.
func (s *Sender) Send(ctx context.Context, identity string, msg *notification.Message) error {
	if s.smtpHost == "" {
		return fmt.Errorf("smtp not configured")
	}

	to := s.addressFor(identity)
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(msg.Priority)), msg.Title)
	body := []byte(
		fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.username) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			renderHTML(msg),
	)

	done := make(chan error, 1)
	go func() { done <- s.deliver(to, body) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *Sender) deliver(to string, body []byte) error {
	serverAddr := s.smtpHost + ":" + s.smtpPort
	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)

	if !s.secure {
		// Port 587 - STARTTLS
		if err := smtp.SendMail(serverAddr, auth, s.username, []string{to}, body); err != nil {
			return fmt.Errorf("send mail failed: %w", err)
		}
		return nil
	}

	// Port 465 - implicit TLS
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: s.smtpHost})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	if err := client.Mail(s.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

func (s *Sender) addressFor(identity string) string {
	return fmt.Sprintf("%s@%s", identity, s.staffDomain)
}

func renderHTML(msg *notification.Message) string {
	return fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif; color: #333;">
		<h2 style="margin-bottom:4px;">%s</h2>
		<p style="color:#777; margin-top:0;">%s &middot; priority %s</p>
		<p>%s</p>
	</body>
	</html>
	`, msg.Title, msg.Type, msg.Priority, msg.Body)
}
