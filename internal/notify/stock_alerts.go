package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// StockAlertMailer e-mails inventory alerts to a fixed recipient list.
type StockAlertMailer struct {
	email      EmailSender
	recipients []string
	clinicName string
	logger     *logging.Logger
}

// NewStockAlertMailer creates a mailer. With no recipients it only logs.
func NewStockAlertMailer(email EmailSender, recipients []string, clinicName string, logger *logging.Logger) *StockAlertMailer {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = defaultFromName
	}
	return &StockAlertMailer{
		email:      email,
		recipients: recipients,
		clinicName: clinicName,
		logger:     logger,
	}
}

// NotifyStockAlerts sends one digest per recipient. It keeps going after a
// failed recipient and reports how many failed. When at least one recipient
// was reached the error wraps inventory.ErrPartialDelivery.
func (m *StockAlertMailer) NotifyStockAlerts(ctx context.Context, alerts []inventory.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if m.email == nil || len(m.recipients) == 0 {
		m.logger.Debug("notify: no stock alert recipients configured", "alerts", len(alerts))
		return nil
	}

	subject, body, htmlBody := m.compose(alerts)

	var failed int
	for _, recipient := range m.recipients {
		msg := EmailMessage{To: recipient, Subject: subject, Body: body, HTML: htmlBody}
		if err := m.email.Send(ctx, msg); err != nil {
			m.logger.Error("notify: failed to send stock alert", "error", err, "to", recipient)
			failed++
			continue
		}
		m.logger.Info("notify: stock alert sent", "to", recipient, "alerts", len(alerts))
	}

	switch {
	case failed == 0:
		return nil
	case failed < len(m.recipients):
		return fmt.Errorf("notify: %d of %d stock alert email(s) failed: %w", failed, len(m.recipients), inventory.ErrPartialDelivery)
	default:
		return fmt.Errorf("notify: all %d stock alert email(s) failed", failed)
	}
}

func (m *StockAlertMailer) compose(alerts []inventory.Alert) (subject, body, htmlBody string) {
	critical := 0
	for _, a := range alerts {
		if a.Type == inventory.SeverityCritical {
			critical++
		}
	}

	switch {
	case critical > 0:
		subject = fmt.Sprintf("[%s] %d critical stock alert(s)", m.clinicName, critical)
	default:
		subject = fmt.Sprintf("[%s] %d low stock warning(s)", m.clinicName, len(alerts))
	}

	var text, rows strings.Builder
	text.WriteString("The following items need restocking:\n\n")
	for _, a := range alerts {
		fmt.Fprintf(&text, "- %s\n", a.Message)
		fmt.Fprintf(&rows, `<tr><td style="padding: 6px;">%s</td><td style="padding: 6px;">%d</td><td style="padding: 6px;">%s</td></tr>`,
			html.EscapeString(a.Item), a.Quantity, html.EscapeString(strings.ToUpper(a.Type)))
	}
	fmt.Fprintf(&text, "\n%s inventory watcher", m.clinicName)

	htmlBody = fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Stock alerts</h2>
<table style="border-collapse: collapse;">
<tr><th style="text-align: left; padding: 6px;">Item</th><th style="text-align: left; padding: 6px;">Remaining</th><th style="text-align: left; padding: 6px;">Severity</th></tr>
%s
</table>
<p style="color: #6b7280; font-size: 12px;">%s inventory watcher</p>
</div>`, rows.String(), html.EscapeString(m.clinicName))

	return subject, text.String(), htmlBody
}

var _ inventory.Notifier = (*StockAlertMailer)(nil)
