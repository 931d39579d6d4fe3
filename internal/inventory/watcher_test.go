package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/meditrack/internal/records"
	"github.com/wolfman30/meditrack/pkg/logging"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

type staticSource struct {
	items []records.InventoryItem
	err   error
}

func (s *staticSource) ListInventory(ctx context.Context) ([]records.InventoryItem, error) {
	return s.items, s.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]Alert
	err     error
}

func (n *recordingNotifier) NotifyStockAlerts(ctx context.Context, alerts []Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.batches = append(n.batches, alerts)
	return nil
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) ObserveStockAlerts(severity string, count int) {
	o.counts[severity] += count
}

func lowStock() []records.InventoryItem {
	return []records.InventoryItem{
		{ID: 1, Name: "Syringes", Quantity: 4},
		{ID: 2, Name: "Bandages", Quantity: 8},
		{ID: 3, Name: "Gloves", Quantity: 40},
	}
}

func TestWatcherDedupesPerDay(t *testing.T) {
	client, mr := setupTestRedis(t)
	day := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	clock := day
	notifier := &recordingNotifier{}
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{items: lowStock()}, notifier, client, logging.Discard()).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	sent, err := w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.True(t, mr.Exists("meditrack:stock-alert:1:critical:2026-10-16"))

	sent, err = w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	clock = day.Add(24 * time.Hour)
	sent, err = w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, notifier.batches, 2)
}

func TestWatcherEscalationIsNewAlert(t *testing.T) {
	client, _ := setupTestRedis(t)
	src := &staticSource{items: []records.InventoryItem{{ID: 7, Name: "Masks", Quantity: 9}}}
	notifier := &recordingNotifier{}
	w := NewWatcher(NewAlerter(DefaultPolicy()), src, notifier, client, logging.Discard())
	ctx := context.Background()

	_, err := w.CheckOnce(ctx)
	require.NoError(t, err)

	src.items[0].Quantity = 2
	sent, err := w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, SeverityCritical, notifier.batches[1][0].Type)
}

func TestWatcherReleasesOnNotifyFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{items: lowStock()}, notifier, client, logging.Discard())
	ctx := context.Background()

	_, err := w.CheckOnce(ctx)
	require.Error(t, err)
	assert.Empty(t, mr.Keys())

	notifier.err = nil
	sent, err := w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestWatcherKeepsClaimsOnPartialDelivery(t *testing.T) {
	client, mr := setupTestRedis(t)
	notifier := &recordingNotifier{err: fmt.Errorf("notify: 1 of 2 failed: %w", ErrPartialDelivery)}
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{items: lowStock()}, notifier, client, logging.Discard())
	ctx := context.Background()

	sent, err := w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, mr.Keys(), 2)

	notifier.err = nil
	sent, err = w.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, notifier.batches)
}

func TestWatcherWithoutRedisAlwaysNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	obs := &countingObserver{counts: map[string]int{}}
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{items: lowStock()}, notifier, nil, logging.Discard()).
		WithObserver(obs)

	for i := 0; i < 2; i++ {
		sent, err := w.CheckOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
	}
	assert.Equal(t, 2, obs.counts[SeverityCritical])
	assert.Equal(t, 2, obs.counts[SeverityWarning])
}

func TestWatcherSourceError(t *testing.T) {
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{err: errors.New("db gone")}, &recordingNotifier{}, nil, logging.Discard())

	_, err := w.CheckOnce(context.Background())
	assert.ErrorContains(t, err, "list inventory")
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewWatcher(NewAlerter(DefaultPolicy()), &staticSource{items: lowStock()}, notifier, nil, logging.Discard()).
		WithInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.batches) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
