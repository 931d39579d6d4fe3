package inventory

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/meditrack/internal/records"
)

func intPtr(v int) *int { return &v }

func TestEvaluateThresholds(t *testing.T) {
	a := NewAlerter(DefaultPolicy())

	alerts := a.Evaluate([]records.InventoryItem{
		{ID: 1, Name: "Syringes", Quantity: 4, CriticalThreshold: intPtr(5)},
		{ID: 2, Name: "Bandages", Quantity: 8, LowStockThreshold: intPtr(10), CriticalThreshold: intPtr(5)},
		{ID: 3, Name: "Gloves", Quantity: 20},
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, Alert{
		ItemID:   1,
		Type:     SeverityCritical,
		Item:     "Syringes",
		Quantity: 4,
		Message:  "CRITICAL: Syringes is running very low (4 remaining)",
		Priority: PriorityHigh,
		Level:    PriorityMedium,
	}, alerts[0])
	assert.Equal(t, SeverityWarning, alerts[1].Type)
	assert.Equal(t, PriorityMedium, alerts[1].Priority)
	assert.Equal(t, "WARNING: Bandages is running low (8 remaining)", alerts[1].Message)
	assert.Equal(t, PriorityLow, alerts[1].Level)
}

func TestEvaluateKeepsInputOrder(t *testing.T) {
	a := NewAlerter(DefaultPolicy())

	alerts := a.Evaluate([]records.InventoryItem{
		{Name: "A", Quantity: 9},
		{Name: "B", Quantity: 1},
		{Name: "C", Quantity: 7},
	})

	require.Len(t, alerts, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{alerts[0].Item, alerts[1].Item, alerts[2].Item})
}

func TestItemThresholdOverridesPolicy(t *testing.T) {
	a := NewAlerter(Policy{LowStock: 10, Critical: 5})

	_, ok := a.Check(records.InventoryItem{Name: "Masks", Quantity: 12, LowStockThreshold: intPtr(15)})
	assert.True(t, ok)

	_, ok = a.Check(records.InventoryItem{Name: "Masks", Quantity: 8, LowStockThreshold: intPtr(6), CriticalThreshold: intPtr(2)})
	assert.False(t, ok)

	alert, ok := a.Check(records.InventoryItem{Name: "Masks", Quantity: 8, CriticalThreshold: intPtr(8)})
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, alert.Type)
}

func TestSeverityMonotonicInQuantity(t *testing.T) {
	a := NewAlerter(DefaultPolicy())
	rank := func(qty int) int {
		alert, ok := a.Check(records.InventoryItem{Name: "x", Quantity: qty})
		switch {
		case !ok:
			return 0
		case alert.Type == SeverityWarning:
			return 1
		default:
			return 2
		}
	}
	for q := -3; q < 30; q++ {
		assert.GreaterOrEqual(t, rank(q), rank(q+1), "quantity %d", q)
	}
}

func TestCheckSanitizesInput(t *testing.T) {
	a := NewAlerter(DefaultPolicy())

	alert, ok := a.Check(records.InventoryItem{Name: "  ", Quantity: -4})

	require.True(t, ok)
	assert.Equal(t, "Unknown", alert.Item)
	assert.Equal(t, 0, alert.Quantity)
	assert.Equal(t, "CRITICAL: Unknown is running very low (0 remaining)", alert.Message)
}

func TestEvaluateEmptySerializesArray(t *testing.T) {
	body, err := json.Marshal(NewAlerter(DefaultPolicy()).Evaluate(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestLevel(t *testing.T) {
	tests := []struct {
		qty, low int
		want     string
	}{
		{3, 10, PriorityHigh},
		{0, 10, PriorityHigh},
		{6, 10, PriorityMedium},
		{7, 10, PriorityLow},
		{0, 0, PriorityHigh},
		{4, 0, PriorityLow},
		{-2, 10, PriorityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.qty, tt.low), "qty=%d low=%d", tt.qty, tt.low)
	}
}

func TestEstimateRestock(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	got, ok := EstimateRestock(10, 2, now)
	require.True(t, ok)
	assert.Equal(t, "2026-10-21", FormatRestock(got))

	got, ok = EstimateRestock(10, 3, now)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 3), got)

	for _, usage := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, ok := EstimateRestock(10, usage, now)
		assert.False(t, ok, "usage %v", usage)
	}

	for _, usage := range []float64{1e-9, 1e-20, 1e-300} {
		_, ok := EstimateRestock(10, usage, now)
		assert.False(t, ok, "usage %v projects past the horizon", usage)
	}

	got, ok = EstimateRestock(0, 1e-300, now)
	require.True(t, ok)
	assert.Equal(t, now, got)

	got, ok = EstimateRestock(36525, 1, now)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 36525), got)
}

func TestEvaluateIdempotent(t *testing.T) {
	a := NewAlerter(DefaultPolicy())
	items := []records.InventoryItem{{Name: "Syringes", Quantity: 4}, {Name: "Bandages", Quantity: 8}}

	first, err := json.Marshal(a.Evaluate(items))
	require.NoError(t, err)
	second, err := json.Marshal(a.Evaluate(items))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
