package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/pkg/logging"
)

type mockEmailSender struct {
	sent   []EmailMessage
	failOn string
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleAlerts() []inventory.Alert {
	return []inventory.Alert{
		{Type: inventory.SeverityCritical, Item: "Syringes", Quantity: 4, Message: "CRITICAL: Syringes is running very low (4 remaining)"},
		{Type: inventory.SeverityWarning, Item: "Bandages <sterile>", Quantity: 8, Message: "WARNING: Bandages <sterile> is running low (8 remaining)"},
	}
}

func TestNotifyStockAlerts(t *testing.T) {
	sender := &mockEmailSender{}
	m := NewStockAlertMailer(sender, []string{"ops@clinic.test", "pharmacy@clinic.test"}, "Riverside", logging.Discard())

	err := m.NotifyStockAlerts(context.Background(), sampleAlerts())

	require.NoError(t, err)
	require.Len(t, sender.sent, 2)
	msg := sender.sent[0]
	assert.Equal(t, "[Riverside] 1 critical stock alert(s)", msg.Subject)
	assert.Contains(t, msg.Body, "- CRITICAL: Syringes is running very low (4 remaining)")
	assert.Contains(t, msg.Body, "- WARNING: Bandages <sterile> is running low (8 remaining)")
	assert.Contains(t, msg.HTML, "Bandages &lt;sterile&gt;")
	assert.True(t, strings.Contains(msg.HTML, "CRITICAL"))
}

func TestNotifyStockAlertsWarningsOnly(t *testing.T) {
	sender := &mockEmailSender{}
	m := NewStockAlertMailer(sender, []string{"ops@clinic.test"}, "", logging.Discard())

	require.NoError(t, m.NotifyStockAlerts(context.Background(), sampleAlerts()[1:]))
	assert.Equal(t, "[MediTrack] 1 low stock warning(s)", sender.sent[0].Subject)
}

func TestNotifyStockAlertsPartialFailure(t *testing.T) {
	sender := &mockEmailSender{failOn: "bad@clinic.test"}
	m := NewStockAlertMailer(sender, []string{"bad@clinic.test", "ops@clinic.test"}, "Riverside", logging.Discard())

	err := m.NotifyStockAlerts(context.Background(), sampleAlerts())

	assert.ErrorContains(t, err, "1 of 2")
	assert.ErrorIs(t, err, inventory.ErrPartialDelivery)
	assert.Len(t, sender.sent, 1)
}

func TestNotifyStockAlertsTotalFailure(t *testing.T) {
	sender := &mockEmailSender{failOn: "bad@clinic.test"}
	m := NewStockAlertMailer(sender, []string{"bad@clinic.test"}, "Riverside", logging.Discard())

	err := m.NotifyStockAlerts(context.Background(), sampleAlerts())

	require.Error(t, err)
	assert.NotErrorIs(t, err, inventory.ErrPartialDelivery)
	assert.Empty(t, sender.sent)
}

func TestNotifyStockAlertsNoop(t *testing.T) {
	sender := &mockEmailSender{}

	assert.NoError(t, NewStockAlertMailer(sender, nil, "", logging.Discard()).NotifyStockAlerts(context.Background(), sampleAlerts()))
	assert.NoError(t, NewStockAlertMailer(sender, []string{"ops@clinic.test"}, "", logging.Discard()).NotifyStockAlerts(context.Background(), nil))
	assert.Empty(t, sender.sent)
}
