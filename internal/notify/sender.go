package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/meditrack/pkg/logging"
)

// Config selects and configures the e-mail provider.
type Config struct {
	Provider string
	SendGrid SendGridConfig
	SES      SESConfig
	AWS      AWSConfig
}

// NewSender builds the configured sender. A provider missing its
// credentials degrades to the stub with a warning; an unknown provider is
// an error.
func NewSender(ctx context.Context, cfg Config, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderStub:
		return NewStubEmailSender(logger), nil
	case ProviderSendGrid:
		if sender := NewSendGridSender(cfg.SendGrid, logger); sender != nil {
			return sender, nil
		}
		logger.Warn("sendgrid selected without API key, using stub sender")
		return NewStubEmailSender(logger), nil
	case ProviderSES:
		if strings.TrimSpace(cfg.SES.FromEmail) == "" {
			logger.Warn("ses selected without from address, using stub sender")
			return NewStubEmailSender(logger), nil
		}
		client, err := NewSESClient(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewSESSender(client, cfg.SES, logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown email provider %q", cfg.Provider)
	}
}
