// Package assistant serves the front-desk suggestion engine over HTTP. The
// service pulls records from storage and hands them to the scheduling,
// forecast, intent and inventory packages.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/meditrack/internal/forecast"
	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/intent"
	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/internal/observability/metrics"
	"github.com/wolfman30/meditrack/internal/querylog"
	"github.com/wolfman30/meditrack/internal/records"
	"github.com/wolfman30/meditrack/internal/scheduling"
	"github.com/wolfman30/meditrack/pkg/logging"
)

var tracer = otel.Tracer("meditrack.internal.assistant")

// QueryLog records classified queries. *querylog.Store satisfies it.
type QueryLog interface {
	Record(ctx context.Context, e querylog.Entry) (querylog.Entry, error)
	List(ctx context.Context, limit int) ([]querylog.Entry, error)
	CountByIntent(ctx context.Context) (map[string]int, error)
}

// ErrQueryLogDisabled is returned by QueryLog when no store is configured.
var ErrQueryLogDisabled = errors.New("assistant: query log disabled")

// Deps wires a Service. Suggester, Forecaster, Router and Alerter fall back
// to their defaults when nil; QueryLog and Metrics are optional.
type Deps struct {
	Repo       frontdesk.Repository
	Suggester  *scheduling.Suggester
	Forecaster *forecast.Forecaster
	Router     *intent.Router
	Alerter    *inventory.Alerter
	QueryLog   QueryLog
	Metrics    *metrics.EngineMetrics
	Logger     *logging.Logger
}

type Service struct {
	repo       frontdesk.Repository
	suggester  *scheduling.Suggester
	forecaster *forecast.Forecaster
	router     *intent.Router
	alerter    *inventory.Alerter
	queryLog   QueryLog
	metrics    *metrics.EngineMetrics
	logger     *logging.Logger
	now        func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Repo == nil {
		panic("assistant: repository required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Suggester == nil {
		deps.Suggester = scheduling.NewSuggester(scheduling.WithLogger(deps.Logger))
	}
	if deps.Forecaster == nil {
		deps.Forecaster = forecast.New(forecast.DefaultConfig())
	}
	if deps.Router == nil {
		deps.Router = intent.New()
	}
	if deps.Alerter == nil {
		deps.Alerter = inventory.NewAlerter(inventory.DefaultPolicy())
	}
	deps.Metrics.RegisterIntents(deps.Router.Intents()...)
	return &Service{
		repo:       deps.Repo,
		suggester:  deps.Suggester,
		forecaster: deps.Forecaster,
		router:     deps.Router,
		alerter:    deps.Alerter,
		queryLog:   deps.QueryLog,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Used for "today" lookups.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Trained reports whether the learned slot strategy is active.
func (s *Service) Trained() bool {
	return s.suggester.Trained()
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveLatency(op, time.Since(start).Seconds())
}

func (s *Service) today() time.Time {
	return records.StartOfDay(s.now())
}

// History returns every appointment as an engine record, each carrying the
// total number of appointments its patient has.
func (s *Service) History(ctx context.Context) ([]records.Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("assistant: load history: %w", err)
	}
	perPatient := make(map[int]int, len(appts))
	for _, a := range appts {
		perPatient[a.PatientID]++
	}
	out := make([]records.Appointment, len(appts))
	for i, a := range appts {
		out[i] = a.Record(perPatient[a.PatientID])
	}
	return out, nil
}

// Train fits the slot model from the full appointment history.
func (s *Service) Train(ctx context.Context) (scheduling.TrainResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.train")
	defer span.End()
	defer s.observe("train", time.Now())

	history, err := s.History(ctx)
	if err != nil {
		span.RecordError(err)
		return scheduling.TrainResult{}, err
	}
	res := s.suggester.Train(history)
	s.metrics.ObserveTraining(res.Trained)
	span.SetAttributes(
		attribute.Int("meditrack.training.samples", res.Samples),
		attribute.Bool("meditrack.training.trained", res.Trained),
	)
	s.logger.Info("slot model training finished", "samples", res.Samples, "trained", res.Trained)
	return res, nil
}

// SuggestSlots ranks free slots for doctorID on date.
func (s *Service) SuggestSlots(ctx context.Context, doctorID int, date string) ([]scheduling.Slot, error) {
	ctx, span := tracer.Start(ctx, "assistant.suggest_slots", trace.WithAttributes(
		attribute.Int("meditrack.doctor_id", doctorID),
		attribute.String("meditrack.date", date),
	))
	defer span.End()
	defer s.observe("suggest", time.Now())

	occupied, err := s.occupied(ctx, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	history, err := s.History(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	slots := s.suggester.Suggest(doctorID, date, occupied, history)
	strategy := scheduling.ReasonHeuristic
	if len(slots) > 0 {
		strategy = slots[0].Reason
	}
	s.metrics.ObserveSuggestion(strategy)
	span.SetAttributes(attribute.Int("meditrack.suggestions", len(slots)))
	return slots, nil
}

// FreeSlots lists the unbooked grid labels for doctorID on date. An
// unreadable date has no free slots.
func (s *Service) FreeSlots(ctx context.Context, doctorID int, date string) ([]string, error) {
	defer s.observe("free_slots", time.Now())

	day := records.ParseTime(date)
	if !day.Valid {
		return []string{}, nil
	}
	occupied, err := s.occupied(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return s.suggester.Grid().FreeLabels(day.Time, occupied), nil
}

func (s *Service) occupied(ctx context.Context, doctorID int, date string) (scheduling.Occupied, error) {
	day := records.ParseTime(date)
	if !day.Valid {
		return scheduling.Occupied{}, nil
	}
	appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{DoctorIDs: []int{doctorID}, Day: &day.Time})
	if err != nil {
		return nil, fmt.Errorf("assistant: load doctor day: %w", err)
	}
	recs := make([]records.Appointment, len(appts))
	for i, a := range appts {
		recs[i] = a.Record(0)
	}
	return scheduling.OccupiedTimes(recs, day.Time), nil
}

// PredictFlow forecasts patient flow for date, or today when date is empty.
func (s *Service) PredictFlow(ctx context.Context, date string) (forecast.FlowForecast, error) {
	if date == "" {
		date = records.DateKey(s.now())
	}
	ctx, span := tracer.Start(ctx, "assistant.predict_flow", trace.WithAttributes(
		attribute.String("meditrack.date", date),
	))
	defer span.End()
	defer s.observe("predict_flow", time.Now())

	var recs []records.Appointment
	if day := records.ParseTime(date); day.Valid {
		appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{Day: &day.Time})
		if err != nil {
			span.RecordError(err)
			return forecast.FlowForecast{}, fmt.Errorf("assistant: load day: %w", err)
		}
		recs = make([]records.Appointment, len(appts))
		for i, a := range appts {
			recs[i] = a.Record(0)
		}
	}

	fc := s.forecaster.Predict(date, recs)
	s.metrics.ObserveForecast()
	span.SetAttributes(attribute.Int("meditrack.total_appointments", fc.TotalAppointments))
	return fc, nil
}

// ListInventory returns inventory snapshots. It makes the Service an
// inventory.Source for the stock watcher.
func (s *Service) ListInventory(ctx context.Context) ([]records.InventoryItem, error) {
	items, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant: load inventory: %w", err)
	}
	return frontdesk.Snapshots(items), nil
}

// InventoryAlerts evaluates every stocked item.
func (s *Service) InventoryAlerts(ctx context.Context) ([]inventory.Alert, error) {
	ctx, span := tracer.Start(ctx, "assistant.inventory_alerts")
	defer span.End()
	defer s.observe("inventory_alerts", time.Now())

	items, err := s.ListInventory(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	alerts := s.alerter.Evaluate(items)
	counts := map[string]int{inventory.SeverityCritical: 0, inventory.SeverityWarning: 0}
	for _, a := range alerts {
		counts[a.Type]++
	}
	for severity, n := range counts {
		s.metrics.ObserveStockAlerts(severity, n)
	}
	span.SetAttributes(attribute.Int("meditrack.alerts", len(alerts)))
	return alerts, nil
}

// RestockEstimate is the projected run-out date for one item.
type RestockEstimate struct {
	Item        frontdesk.InventoryItem `json:"item"`
	Level       string                  `json:"level"`
	RestockDate *string                 `json:"restock_date"`
}

// EstimateRestock projects when itemID runs out at dailyUsage units a day.
func (s *Service) EstimateRestock(ctx context.Context, itemID int64, dailyUsage float64) (RestockEstimate, error) {
	item, err := s.repo.GetInventoryItem(ctx, itemID)
	if err != nil {
		return RestockEstimate{}, err
	}
	low, _ := s.alerter.Thresholds(item.Snapshot())
	out := RestockEstimate{Item: *item, Level: inventory.Level(item.Quantity, low)}
	if at, ok := inventory.EstimateRestock(item.Quantity, dailyUsage, s.now()); ok {
		formatted := inventory.FormatRestock(at)
		out.RestockDate = &formatted
	}
	return out, nil
}

// AdminStats are the dashboard counters.
type AdminStats struct {
	TodayAppointments int `json:"todayAppointments"`
	ActiveDoctors     int `json:"activeDoctors"`
	LowStockItems     int `json:"lowStockItems"`
	TotalPatients     int `json:"totalPatients"`
}

// Stats computes the dashboard counters. Low stock uses each item's own
// threshold when it has one.
func (s *Service) Stats(ctx context.Context) (AdminStats, error) {
	defer s.observe("admin_stats", time.Now())

	today := s.today()
	appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{Day: &today})
	if err != nil {
		return AdminStats{}, fmt.Errorf("assistant: stats appointments: %w", err)
	}
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return AdminStats{}, fmt.Errorf("assistant: stats doctors: %w", err)
	}
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return AdminStats{}, fmt.Errorf("assistant: stats patients: %w", err)
	}
	items, err := s.ListInventory(ctx)
	if err != nil {
		return AdminStats{}, err
	}

	low := 0
	for _, item := range items {
		if s.alerter.IsLow(item) {
			low++
		}
	}
	return AdminStats{
		TodayAppointments: len(appts),
		ActiveDoctors:     len(doctors),
		LowStockItems:     low,
		TotalPatients:     len(patients),
	}, nil
}

// IntentCounts tallies every logged query by intent.
func (s *Service) IntentCounts(ctx context.Context) (map[string]int, error) {
	if s.queryLog == nil {
		return nil, ErrQueryLogDisabled
	}
	return s.queryLog.CountByIntent(ctx)
}

// RecentQueries lists the query log, newest first.
func (s *Service) RecentQueries(ctx context.Context, limit int) ([]querylog.Entry, error) {
	if s.queryLog == nil {
		return nil, ErrQueryLogDisabled
	}
	return s.queryLog.List(ctx, limit)
}
