package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

const (
	errorMessageMissingHost = "notifications: missing smtp host"
	errorMessageMissingFrom = "notifications: missing smtp from address"
	errorMessageBadRecipient = "notifications: recipient must be an email address"

	defaultSMTPPort = "587"
)

var (
	// ErrMissingSMTPHost indicates the relay host configuration was omitted.
	ErrMissingSMTPHost = errors.New(errorMessageMissingHost)
	// ErrMissingFromAddress indicates the sender address configuration was omitted.
	ErrMissingFromAddress = errors.New(errorMessageMissingFrom)
)

// SMTPConfig captures connection settings for the mail relay.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPMailer dispatches notification emails through an external SMTP relay.
type SMTPMailer struct {
	logger        *zap.Logger
	serverAddress string
	auth          smtp.Auth
	fromAddress   string
	fromHeader    string
}

// NewSMTPMailer creates a mailer from relay configuration.
func NewSMTPMailer(logger *zap.Logger, configuration SMTPConfig) (*SMTPMailer, error) {
	host := strings.TrimSpace(configuration.Host)
	if host == "" {
		return nil, ErrMissingSMTPHost
	}
	fromAddress := strings.TrimSpace(configuration.FromAddress)
	if fromAddress == "" {
		return nil, ErrMissingFromAddress
	}

	port := strings.TrimSpace(configuration.Port)
	if port == "" {
		port = defaultSMTPPort
	}

	var auth smtp.Auth
	if strings.TrimSpace(configuration.Username) != "" {
		auth = smtp.PlainAuth("", configuration.Username, configuration.Password, host)
	}

	fromHeader := fromAddress
	if trimmedName := strings.TrimSpace(configuration.FromName); trimmedName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", trimmedName, fromAddress)
	}

	return &SMTPMailer{
		logger:        logger,
		serverAddress: host + ":" + port,
		auth:          auth,
		fromAddress:   fromAddress,
		fromHeader:    fromHeader,
	}, nil
}

// SendEmail sends a plain-text message to one recipient.
func (mailer *SMTPMailer) SendEmail(ctx context.Context, recipient string, subject string, message string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	normalizedRecipient := strings.TrimSpace(recipient)
	if !strings.Contains(normalizedRecipient, "@") {
		return errors.New(errorMessageBadRecipient)
	}

	body := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		normalizedRecipient,
		mailer.fromHeader,
		strings.TrimSpace(subject),
		message,
	))

	if sendErr := smtp.SendMail(mailer.serverAddress, mailer.auth, mailer.fromAddress, []string{normalizedRecipient}, body); sendErr != nil {
		mailer.logger.Warn("smtp_send_failed", zap.String("recipient", normalizedRecipient), zap.Error(sendErr))
		return fmt.Errorf("notifications: send mail: %w", sendErr)
	}
	return nil
}
