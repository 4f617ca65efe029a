package mailing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/praiagrande/sst-portal/internal/webhook"
)

const opSend = "email_send"

// Service posts dispatches to the e-mail webhook.
type Service struct {
	caller *webhook.Caller
	url    string
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(caller *webhook.Caller, url string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{caller: caller, url: url, logger: logger}
}

// Send forwards d after dropping incomplete recipients.
func (s *Service) Send(ctx context.Context, d Dispatch) error {
	d.Destinatarios = completeOnly(d.Destinatarios)
	if len(d.Destinatarios) == 0 {
		return ErrNoRecipients
	}
	resp, err := s.caller.PostJSON(ctx, opSend, s.url, d)
	if err != nil {
		return fmt.Errorf("send e-mails: %w", err)
	}
	defer webhook.Drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Body: webhook.ReadError(resp)}
	}
	s.logger.Info("e-mails dispatched", slog.Int("recipients", len(d.Destinatarios)))
	return nil
}
