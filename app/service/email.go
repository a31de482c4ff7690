package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lumeo-studio/site-auth/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// EmailSender dispatches transactional mail. Failures never block the
// primary operation; callers log and continue.
type EmailSender interface {
	SendWelcomeEmail(toEmail, name string) error
	SendPasswordResetEmail(toEmail, resetLink string) error
	SendAccountDisabledEmail(toEmail, reason string) error
}

// NewEmailSender returns the SendGrid sender when an API key is
// configured, otherwise a sender that only logs. Keeps local
// development working without credentials.
func NewEmailSender(cfg *config.Config) EmailSender {
	if cfg.SendGridKey == "" {
		logrus.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return &logEmailSender{}
	}
	return &SendGridSender{
		key:      cfg.SendGridKey,
		from:     cfg.EmailFrom,
		fromName: cfg.EmailFromName,
	}
}

type SendGridSender struct {
	key      string
	from     string
	fromName string
}

func (s *SendGridSender) SendWelcomeEmail(toEmail, name string) error {
	if name == "" {
		name = "there"
	}
	plain := fmt.Sprintf("Hi %s,\n\nYour account has been created. Welcome aboard!", name)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your account has been created. Welcome aboard!</p>", name)
	return s.send(toEmail, "Welcome", plain, html)
}

func (s *SendGridSender) SendPasswordResetEmail(toEmail, resetLink string) error {
	plain := fmt.Sprintf("A password reset was requested for your account.\n\nReset link: %s\n\nIf you did not request this, you can ignore this email.", resetLink)
	html := fmt.Sprintf("<p>A password reset was requested for your account.</p><p><a href=%q>Reset your password</a></p><p>If you did not request this, you can ignore this email.</p>", resetLink)
	return s.send(toEmail, "Reset your password", plain, html)
}

func (s *SendGridSender) SendAccountDisabledEmail(toEmail, reason string) error {
	plain := fmt.Sprintf("Your account has been disabled.\n\nReason: %s\n\nContact support if you believe this is a mistake.", reason)
	html := fmt.Sprintf("<p>Your account has been disabled.</p><p>Reason: %s</p><p>Contact support if you believe this is a mistake.</p>", reason)
	return s.send(toEmail, "Your account has been disabled", plain, html)
}

func (s *SendGridSender) send(toEmail, subject, plain, html string) error {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(s.key)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode != 202 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	logrus.WithFields(logrus.Fields{
		"to":      toEmail,
		"subject": subject,
	}).Debug("Email sent")
	return nil
}

type logEmailSender struct{}

func (l *logEmailSender) SendWelcomeEmail(toEmail, name string) error {
	logrus.WithField("to", toEmail).Info("Welcome email (not sent)")
	return nil
}

func (l *logEmailSender) SendPasswordResetEmail(toEmail, resetLink string) error {
	logrus.WithFields(logrus.Fields{"to": toEmail, "link": resetLink}).Info("Password reset email (not sent)")
	return nil
}

func (l *logEmailSender) SendAccountDisabledEmail(toEmail, reason string) error {
	logrus.WithFields(logrus.Fields{"to": toEmail, "reason": reason}).Info("Account disabled email (not sent)")
	return nil
}
