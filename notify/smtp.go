package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// SMTPConfig configures the outbound mail relay.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	// BaseURL is the tenant-facing app origin used to build links, e.g.
	// "https://%s.shepherdcrm.com" with the subdomain substituted by the
	// caller before sending.
	BaseURL string
}

// SMTP sends mail over a plain-auth SMTP relay.
type SMTP struct {
	config SMTPConfig
	logger *zap.Logger
}

// NewSMTP builds an SMTP mailer. Port defaults to 587.
func NewSMTP(cfg SMTPConfig, logger *zap.Logger) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromName == "" {
		cfg.FromName = "ShepherdCRM"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTP{config: cfg, logger: logger}
}

func (s *SMTP) SendWelcome(ctx context.Context, m WelcomeMail) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nAn account has been created for you at %s.\r\n\r\n"+
			"Temporary password: %s\r\n\r\n"+
			"Verify your email with this code: %s\r\n\r\n"+
			"Please sign in and change your password.\r\n",
		m.FirstName, m.TenantName, m.TempPassword, m.VerificationToken)
	return s.send(ctx, m.To, fmt.Sprintf("Welcome to %s", m.TenantName), body)
}

func (s *SMTP) SendPasswordReset(ctx context.Context, m ResetMail) error {
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nA password reset was requested for your %s account.\r\n\r\n"+
			"Reset code: %s\r\n\r\n"+
			"The code expires in one hour. If you did not request this, ignore this email.\r\n",
		m.FirstName, m.TenantName, m.ResetToken)
	return s.send(ctx, m.To, "Password reset", body)
}

func (s *SMTP) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	from := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err := smtp.SendMail(addr, auth, s.config.FromAddress, []string{to}, []byte(msg.String())); err != nil {
		s.logger.Error("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	s.logger.Debug("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
