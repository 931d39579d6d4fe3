package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/meditrack/internal/records"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// Source lists the current inventory.
type Source interface {
	ListInventory(ctx context.Context) ([]records.InventoryItem, error)
}

// Notifier delivers alerts to staff.
type Notifier interface {
	NotifyStockAlerts(ctx context.Context, alerts []Alert) error
}

// ErrPartialDelivery is wrapped by notifiers when some but not all
// recipients received the alerts. Claims are kept so delivered recipients
// are not sent a duplicate.
var ErrPartialDelivery = errors.New("stock alerts partially delivered")

// Observer records watcher passes. Implementations must be nil-safe.
type Observer interface {
	ObserveStockAlerts(severity string, count int)
}

const (
	defaultWatchInterval = time.Hour
	dedupeTTL            = 36 * time.Hour
	dedupeKeyPrefix      = "meditrack:stock-alert"
)

// Watcher periodically evaluates inventory and notifies staff of new
// alerts. Each item/severity pair is announced at most once per day when
// Redis is available; without Redis every pass notifies.
type Watcher struct {
	alerter  *Alerter
	source   Source
	notifier Notifier
	redis    *redis.Client
	observer Observer
	interval time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

// NewWatcher creates a stock watcher. redis may be nil.
func NewWatcher(alerter *Alerter, source Source, notifier Notifier, redisClient *redis.Client, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		alerter:  alerter,
		source:   source,
		notifier: notifier,
		redis:    redisClient,
		interval: defaultWatchInterval,
		now:      time.Now,
		logger:   logger,
	}
}

func (w *Watcher) WithInterval(d time.Duration) *Watcher {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Watcher) WithObserver(o Observer) *Watcher {
	w.observer = o
	return w
}

func (w *Watcher) WithClock(now func() time.Time) *Watcher {
	if now != nil {
		w.now = now
	}
	return w
}

// Run checks once immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	sent, err := w.CheckOnce(ctx)
	if err != nil {
		w.logger.Error("stock watcher: pass failed", "error", err)
		return
	}
	if sent > 0 {
		w.logger.Info("stock watcher: alerts sent", "count", sent)
	}
}

// CheckOnce runs a single pass and returns how many alerts were delivered.
func (w *Watcher) CheckOnce(ctx context.Context) (int, error) {
	if w.source == nil || w.notifier == nil || w.alerter == nil {
		return 0, nil
	}

	items, err := w.source.ListInventory(ctx)
	if err != nil {
		return 0, fmt.Errorf("stock watcher: list inventory: %w", err)
	}

	alerts := w.alerter.Evaluate(items)
	if w.observer != nil {
		counts := map[string]int{SeverityCritical: 0, SeverityWarning: 0}
		for _, a := range alerts {
			counts[a.Type]++
		}
		for severity, n := range counts {
			w.observer.ObserveStockAlerts(severity, n)
		}
	}

	fresh := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		first, err := w.claim(ctx, a)
		if err != nil {
			w.logger.Warn("stock watcher: dedupe unavailable, sending anyway", "error", err, "item", a.Item)
			first = true
		}
		if first {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := w.notifier.NotifyStockAlerts(ctx, fresh); err != nil {
		if errors.Is(err, ErrPartialDelivery) {
			w.logger.Warn("stock watcher: some recipients missed alerts", "error", err, "alerts", len(fresh))
			return len(fresh), nil
		}
		w.release(ctx, fresh)
		return 0, fmt.Errorf("stock watcher: notify: %w", err)
	}
	return len(fresh), nil
}

// claim marks an alert as announced for today. It reports false when the
// same item and severity were already announced.
func (w *Watcher) claim(ctx context.Context, a Alert) (bool, error) {
	if w.redis == nil {
		return true, nil
	}
	ok, err := w.redis.SetNX(ctx, w.dedupeKey(a), w.now().UTC().Format(time.RFC3339), dedupeTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// release drops claims so a failed delivery is retried on the next pass.
func (w *Watcher) release(ctx context.Context, alerts []Alert) {
	if w.redis == nil {
		return
	}
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = w.dedupeKey(a)
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		w.logger.Warn("stock watcher: release dedupe keys failed", "error", err)
	}
}

func (w *Watcher) dedupeKey(a Alert) string {
	item := strings.ToLower(a.Item)
	if a.ItemID != 0 {
		item = strconv.FormatInt(a.ItemID, 10)
	}
	return fmt.Sprintf("%s:%s:%s:%s", dedupeKeyPrefix, item, a.Type, records.DateKey(w.now()))
}
