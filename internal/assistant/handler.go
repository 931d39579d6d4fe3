package assistant

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/inventory"
	"github.com/wolfman30/meditrack/internal/observability/metrics"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// Handler exposes the front-desk API.
type Handler struct {
	svc      *Service
	repo     frontdesk.Repository
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewHandler(svc *Service, repo frontdesk.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, repo: repo, gatherer: prometheus.DefaultGatherer, logger: logger}
}

// WithGatherer sets where GET /ai/stats reads engine metrics from.
func (h *Handler) WithGatherer(g prometheus.Gatherer) *Handler {
	if g != nil {
		h.gatherer = g
	}
	return h
}

// Routes returns the API routes, meant to be mounted under /api. aiMiddleware
// wraps only the /ai endpoints.
func (h *Handler) Routes(aiMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/get_slots/{doctorID}/{date}", h.FreeSlots)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.ListAppointments)
		r.Post("/new", h.CreateAppointment)
		r.Delete("/{appointmentID}", h.DeleteAppointment)
	})
	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.ListPatients)
		r.Post("/", h.CreatePatient)
		r.Delete("/{patientID}", h.DeletePatient)
	})
	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", h.ListDoctors)
		r.Post("/", h.CreateDoctor)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Use(aiMiddleware...)
		r.Post("/suggest-appointment", h.SuggestAppointment)
		r.Post("/predict-flow", h.PredictFlow)
		r.Post("/nlp-query", h.NLPQuery)
		r.Get("/nlp-query/log", h.QueryLog)
		r.Post("/train", h.Train)
		r.Get("/stats", h.EngineStats)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.ListInventory)
		r.Post("/", h.CreateInventoryItem)
		r.Get("/alerts", h.InventoryAlerts)
		r.Put("/{itemID}", h.UpdateInventoryItem)
		r.Delete("/{itemID}", h.DeleteInventoryItem)
		r.Get("/{itemID}/restock", h.Restock)
	})

	r.Get("/admin/stats", h.AdminStats)
	return r
}

// FreeSlots returns the unbooked HH:MM slots for a doctor on a date.
// GET /api/get_slots/{doctorID}/{date}
func (h *Handler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := intParam(w, r, "doctorID")
	if !ok {
		return
	}
	slots, err := h.svc.FreeSlots(r.Context(), doctorID, chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "list free slots", err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

type appointmentView struct {
	ID              int    `json:"id"`
	Patient         string `json:"patient"`
	Doctor          string `json:"doctor"`
	AppointmentDate string `json:"appointment_date"`
	Status          string `json:"status"`
}

// ListAppointments returns every appointment, newest booking first.
// GET /api/appointments
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.repo.ListAppointments(r.Context(), frontdesk.AppointmentFilter{})
	if err != nil {
		h.fail(w, "list appointments", err)
		return
	}
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentView{
			ID:              a.ID,
			Patient:         orUnknown(a.PatientName),
			Doctor:          orUnknown(a.DoctorName),
			AppointmentDate: a.Date(),
			Status:          a.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateAppointment books a visit.
// POST /api/appointments/new
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req frontdesk.CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	appt, err := h.repo.CreateAppointment(r.Context(), &req)
	if err != nil {
		h.fail(w, "create appointment", err)
		return
	}
	h.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor_id", appt.DoctorID, "at", appt.Date())
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": appt.ID})
}

// DELETE /api/appointments/{appointmentID}
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "appointmentID")
	if !ok {
		return
	}
	if err := h.repo.DeleteAppointment(r.Context(), id); err != nil {
		h.fail(w, "delete appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/patients
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListPatients(r.Context())
	if err != nil {
		h.fail(w, "list patients", err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// POST /api/patients
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req frontdesk.CreatePatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.repo.CreatePatient(r.Context(), &req)
	if err != nil {
		h.fail(w, "create patient", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePatient removes a patient together with their appointments.
// DELETE /api/patients/{patientID}
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "patientID")
	if !ok {
		return
	}
	if err := h.repo.DeletePatient(r.Context(), id); err != nil {
		h.fail(w, "delete patient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.repo.ListDoctors(r.Context())
	if err != nil {
		h.fail(w, "list doctors", err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

// POST /api/doctors
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req frontdesk.CreateDoctorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.repo.CreateDoctor(r.Context(), &req)
	if err != nil {
		h.fail(w, "create doctor", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type suggestRequest struct {
	DoctorID int    `json:"doctor_id"`
	Date     string `json:"date"`
}

// SuggestAppointment ranks open slots for a doctor on a date.
// POST /api/ai/suggest-appointment
func (h *Handler) SuggestAppointment(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DoctorID <= 0 || strings.TrimSpace(req.Date) == "" {
		writeError(w, http.StatusBadRequest, "doctor_id and date required")
		return
	}
	slots, err := h.svc.SuggestSlots(r.Context(), req.DoctorID, req.Date)
	if err != nil {
		h.fail(w, "suggest appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": slots,
		"doctor_id":   req.DoctorID,
		"date":        req.Date,
	})
}

// PredictFlow forecasts patient flow. An empty body means today.
// POST /api/ai/predict-flow
func (h *Handler) PredictFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	fc, err := h.svc.PredictFlow(r.Context(), strings.TrimSpace(req.Date))
	if err != nil {
		h.fail(w, "predict flow", err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// NLPQuery classifies a free-text query and answers it.
// POST /api/ai/nlp-query
func (h *Handler) NLPQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	resp, err := h.svc.Query(r.Context(), query)
	if err != nil {
		h.fail(w, "nlp query", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// QueryLog lists recently classified queries.
// GET /api/ai/nlp-query/log?limit=
func (h *Handler) QueryLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.svc.RecentQueries(r.Context(), limit)
	if errors.Is(err, ErrQueryLogDisabled) {
		writeError(w, http.StatusNotFound, "query log not configured")
		return
	}
	if err != nil {
		h.fail(w, "list query log", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// Train refits the slot model from the appointment history.
// POST /api/ai/train
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Train(r.Context())
	if err != nil {
		h.fail(w, "train slot model", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EngineStats summarizes the engine counters. intent_counts covers the
// whole query log and is present only when one is configured.
// GET /api/ai/stats
func (h *Handler) EngineStats(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"trained": h.svc.Trained(),
		"metrics": metrics.Snapshot(h.gatherer),
	}
	counts, err := h.svc.IntentCounts(r.Context())
	switch {
	case err == nil:
		payload["intent_counts"] = counts
	case !errors.Is(err, ErrQueryLogDisabled):
		h.logger.Warn("failed to count logged queries", "error", err)
	}
	writeJSON(w, http.StatusOK, payload)
}

// GET /api/inventory
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListInventory(r.Context())
	if err != nil {
		h.fail(w, "list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/inventory
func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req frontdesk.CreateInventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.repo.CreateInventoryItem(r.Context(), &req)
	if err != nil {
		h.fail(w, "create inventory item", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": item.ID})
}

// PUT /api/inventory/{itemID}
func (h *Handler) UpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "itemID")
	if !ok {
		return
	}
	var req frontdesk.UpdateInventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.repo.UpdateInventoryItem(r.Context(), id, &req); err != nil {
		h.fail(w, "update inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DELETE /api/inventory/{itemID}
func (h *Handler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.repo.DeleteInventoryItem(r.Context(), id); err != nil {
		h.fail(w, "delete inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/inventory/alerts
func (h *Handler) InventoryAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.InventoryAlerts(r.Context())
	if err != nil {
		h.fail(w, "inventory alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Alerts []inventory.Alert `json:"alerts"`
		Count  int               `json:"count"`
	}{alerts, len(alerts)})
}

// Restock projects when an item runs out. Without a usable daily_usage the
// restock_date is null.
// GET /api/inventory/{itemID}/restock?daily_usage=
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "itemID")
	if !ok {
		return
	}
	usage := math.NaN()
	if raw := r.URL.Query().Get("daily_usage"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "daily_usage must be a number")
			return
		}
		usage = v
	}
	est, err := h.svc.EstimateRestock(r.Context(), id, usage)
	if err != nil {
		h.fail(w, "estimate restock", err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// GET /api/admin/stats
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, "admin stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// fail maps storage and validation errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, frontdesk.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, frontdesk.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, frontdesk.ErrMissingFields),
		errors.Is(err, frontdesk.ErrInvalidName),
		errors.Is(err, frontdesk.ErrInvalidAppointmentDate),
		errors.Is(err, frontdesk.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
