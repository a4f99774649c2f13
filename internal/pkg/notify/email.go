// Package notify delivers the e-mail confirmation code over SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smart-check/internal/config"

	"gopkg.in/gomail.v2"
)

// ErrMissingCredentials is returned when EMAIL_USER or EMAIL_PASS is unset.
var ErrMissingCredentials = errors.New("As credenciais do e-mail não estão configuradas corretamente.")

const (
	subject    = "Confirmação de Cadastro"
	senderName = "Smart Check Mobile"
)

// Dialer is the part of gomail.Dialer the notifier uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	cfg    config.EmailConfig
	logger *slog.Logger
	dial   func(cfg config.EmailConfig) Dialer
}

func NewEmailNotifier(cfg config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		dial: func(cfg config.EmailConfig) Dialer {
			return gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.User, cfg.Pass)
		},
	}
}

// SendConfirmationCode mails the six-digit code to the address.
func (n *EmailNotifier) SendConfirmationCode(ctx context.Context, toEmail, code string) error {
	if n.cfg.User == "" || n.cfg.Pass == "" {
		return ErrMissingCredentials
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.from(), senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", "Seu código de confirmação é: "+code)

	if err := n.dial(n.cfg).DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	n.logger.Info("email.code.sent", slog.String("to", toEmail))
	return nil
}

func (n *EmailNotifier) from() string {
	if n.cfg.From != "" {
		return n.cfg.From
	}
	return n.cfg.User
}
