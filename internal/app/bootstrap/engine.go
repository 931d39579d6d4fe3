package bootstrap

import (
	"context"

	"github.com/wolfman30/meditrack/internal/assistant"
	appconfig "github.com/wolfman30/meditrack/internal/config"
	"github.com/wolfman30/meditrack/internal/forecast"
	"github.com/wolfman30/meditrack/internal/intent"
	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/internal/notify"
	"github.com/wolfman30/meditrack/internal/observability/metrics"
	"github.com/wolfman30/meditrack/internal/scheduling"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// BuildAssistantDeps configures the engine components from cfg. The caller
// fills in Repo and QueryLog.
func BuildAssistantDeps(cfg *appconfig.Config, m *metrics.EngineMetrics, logger *logging.Logger) assistant.Deps {
	if logger == nil {
		logger = logging.Default()
	}

	opts := []scheduling.Option{
		scheduling.WithGrid(scheduling.GridConfig{
			StartHour:   cfg.ClinicOpenHour,
			EndHour:     cfg.ClinicCloseHour,
			SlotMinutes: cfg.SlotMinutes,
		}),
		scheduling.WithMaxSuggestions(cfg.MaxSuggestions),
		scheduling.WithMinTrainingSamples(cfg.MinTrainingSamples),
		scheduling.WithLogger(logger.Component("scheduling")),
	}
	if !cfg.EnableLearnedScoring {
		opts = append(opts, scheduling.WithoutLearning())
	}

	return assistant.Deps{
		Suggester: scheduling.NewSuggester(opts...),
		Forecaster: forecast.New(forecast.Config{
			OpenHour:      cfg.ClinicOpenHour,
			CloseHour:     cfg.ClinicCloseHour,
			PeakThreshold: cfg.PeakHourThreshold,
			BusyThreshold: cfg.BusyHourThreshold,
			NoShowRate:    cfg.NoShowRate,
		}),
		Router:  intent.New(),
		Alerter: inventory.NewAlerter(inventory.Policy{LowStock: cfg.LowStockThreshold, Critical: cfg.CriticalStockThreshold}),
		Metrics: m,
		Logger:  logger.Component("assistant"),
	}
}

// BuildStockNotifier returns the e-mail notifier for stock alerts, or nil
// when no recipients are configured.
func BuildStockNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*notify.StockAlertMailer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if len(cfg.StockAlertRecipients) == 0 {
		logger.Info("no stock alert recipients configured, e-mail alerts disabled")
		return nil, nil
	}
	sender, err := notify.NewSender(ctx, notify.Config{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.ClinicName,
		},
		AWS: notify.AWSConfig{
			Region:           cfg.AWSRegion,
			AccessKeyID:      cfg.AWSAccessKeyID,
			SecretAccessKey:  cfg.AWSSecretAccessKey,
			EndpointOverride: cfg.AWSEndpointOverride,
		},
	}, logger.Component("notify"))
	if err != nil {
		return nil, err
	}
	return notify.NewStockAlertMailer(sender, cfg.StockAlertRecipients, cfg.ClinicName, logger.Component("notify")), nil
}
