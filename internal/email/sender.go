package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envío de correos de cuenta.
type Sender interface {
	SendConfirmationEmail(ctx context.Context, toEmail string, link string) error
	SendPasswordResetEmail(ctx context.Context, toEmail string, link string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendConfirmationEmail(_ context.Context, _ string, _ string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordResetEmail(_ context.Context, _ string, _ string) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
