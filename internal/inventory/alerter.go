// Package inventory turns stock snapshots into low-stock alerts, estimates
// restock dates, and runs the background stock watcher.
package inventory

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wolfman30/meditrack/internal/records"
)

// Severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Priorities and display levels share one vocabulary.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const unknownItemName = "Unknown"

// Policy holds the global thresholds. Items carrying their own thresholds
// override these.
type Policy struct {
	LowStock int
	Critical int
}

// DefaultPolicy alerts at 10 units and escalates at 5.
func DefaultPolicy() Policy {
	return Policy{LowStock: 10, Critical: 5}
}

// Alert is one low-stock finding.
type Alert struct {
	ItemID   int64  `json:"item_id,omitempty"`
	Type     string `json:"type"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
	Level    string `json:"level"`
}

// Alerter evaluates inventory against a Policy.
type Alerter struct {
	policy Policy
}

// NewAlerter creates an Alerter.
func NewAlerter(policy Policy) *Alerter {
	return &Alerter{policy: policy}
}

// Policy returns the global thresholds in effect.
func (a *Alerter) Policy() Policy {
	return a.policy
}

// Thresholds resolves the low and critical cutoffs for item.
func (a *Alerter) Thresholds(item records.InventoryItem) (low, critical int) {
	low, critical = a.policy.LowStock, a.policy.Critical
	if item.LowStockThreshold != nil {
		low = *item.LowStockThreshold
	}
	if item.CriticalThreshold != nil {
		critical = *item.CriticalThreshold
	}
	return low, critical
}

// IsLow reports whether item is at or under its low-stock threshold.
func (a *Alerter) IsLow(item records.InventoryItem) bool {
	_, ok := a.Check(item)
	return ok
}

// Evaluate returns alerts in input order. Items above both thresholds
// produce nothing.
func (a *Alerter) Evaluate(items []records.InventoryItem) []Alert {
	alerts := []Alert{}
	for _, item := range items {
		if alert, ok := a.Check(item); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// Check evaluates a single item.
func (a *Alerter) Check(item records.InventoryItem) (Alert, bool) {
	low, critical := a.Thresholds(item)
	qty := max(item.Quantity, 0)
	name := strings.TrimSpace(item.Name)
	if name == "" {
		name = unknownItemName
	}

	alert := Alert{
		ItemID:   item.ID,
		Item:     name,
		Quantity: qty,
		Level:    Level(qty, low),
	}
	switch {
	case qty <= critical:
		alert.Type = SeverityCritical
		alert.Priority = PriorityHigh
		alert.Message = fmt.Sprintf("CRITICAL: %s is running very low (%d remaining)", name, qty)
	case qty <= low:
		alert.Type = SeverityWarning
		alert.Priority = PriorityMedium
		alert.Message = fmt.Sprintf("WARNING: %s is running low (%d remaining)", name, qty)
	default:
		return Alert{}, false
	}
	return alert, true
}

// Level grades quantity against the low-stock threshold for display:
// a ratio up to 0.3 is high, up to 0.6 medium, otherwise low.
func Level(quantity, lowThreshold int) string {
	quantity = max(quantity, 0)
	var ratio float64
	switch {
	case lowThreshold > 0:
		ratio = float64(quantity) / float64(lowThreshold)
	case quantity > 0:
		ratio = 1
	}
	switch {
	case ratio <= 0.3:
		return PriorityHigh
	case ratio <= 0.6:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// maxRestockDays bounds projections to roughly a century.
const maxRestockDays = 36525

// EstimateRestock projects when stock runs out at dailyUsage units per day.
// A non-positive or non-finite usage has no estimate, and neither does a
// projection past maxRestockDays.
func EstimateRestock(quantity int, dailyUsage float64, now time.Time) (time.Time, bool) {
	if dailyUsage <= 0 || math.IsNaN(dailyUsage) || math.IsInf(dailyUsage, 0) {
		return time.Time{}, false
	}
	days := math.Floor(float64(max(quantity, 0)) / dailyUsage)
	if math.IsNaN(days) || math.IsInf(days, 0) || days > maxRestockDays {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, int(days)), true
}

// FormatRestock renders an estimate as YYYY-MM-DD.
func FormatRestock(t time.Time) string {
	return records.DateKey(t)
}
