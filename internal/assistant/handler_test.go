package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/pkg/logging"
)

func newTestServer(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc, f.repo, logging.Discard()).WithGatherer(f.registry)
	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), rr.Body.String())
	return out
}

func TestFreeSlotsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/get_slots/1/2026-10-16", "")
	require.Equal(t, http.StatusOK, rr.Code)
	slots := decode[[]string](t, rr)
	assert.Len(t, slots, 14)
	assert.NotContains(t, slots, "11:00")

	rr = do(t, h, http.MethodGet, "/api/get_slots/abc/2026-10-16", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestAppointmentEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/ai/suggest-appointment", `{"doctor_id": 1, "date": "2026-10-16"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[struct {
		Suggestions []map[string]any `json:"suggestions"`
		DoctorID    int              `json:"doctor_id"`
		Date        string           `json:"date"`
	}](t, rr)
	assert.Len(t, resp.Suggestions, 5)
	assert.Equal(t, 1, resp.DoctorID)
	assert.Equal(t, "2026-10-16T10:30:00", resp.Suggestions[0]["time"])
	assert.Equal(t, 0.8, resp.Suggestions[0]["score"])

	rr = do(t, h, http.MethodPost, "/api/ai/suggest-appointment", `{"doctor_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "doctor_id and date required")

	rr = do(t, h, http.MethodPost, "/api/ai/suggest-appointment", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestAppointmentEmptyListSerializesAsArray(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/ai/suggest-appointment", `{"doctor_id": 1, "date": "whenever"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"suggestions":[]`)
}

func TestPredictFlowEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/ai/predict-flow", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `"date":"2026-10-16"`)
	assert.Contains(t, body, `"total_appointments":2`)
	assert.Contains(t, body, `"predicted_peak_hours":[]`)

	rr = do(t, h, http.MethodPost, "/api/ai/predict-flow", `{"date": "2026-10-17"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_appointments":1`)
}

func TestNLPQueryEndpoint(t *testing.T) {
	h, f := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/ai/nlp-query", `{"query": "find patient john"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[struct {
		Intent   string            `json:"intent"`
		Entities map[string]string `json:"entities"`
		Results  []map[string]any  `json:"results"`
	}](t, rr)
	assert.Equal(t, "patient_search", resp.Intent)
	assert.Equal(t, "John", resp.Entities["patient_name"])
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "John Smith", resp.Results[0]["name"])

	rr = do(t, h, http.MethodPost, "/api/ai/nlp-query", `{"query": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/ai/nlp-query", `{"query": "hello there"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"entities":{}`)
	assert.Contains(t, rr.Body.String(), `"results":[]`)

	rr = do(t, h, http.MethodGet, "/api/ai/nlp-query/log?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	log := decode[struct {
		Count int `json:"count"`
	}](t, rr)
	assert.Equal(t, 1, log.Count)
	assert.Len(t, f.log.entries, 2)

	rr = do(t, h, http.MethodGet, "/api/ai/nlp-query/log?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrainAndStatsEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/ai/train", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"trained": false, "samples": 3}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/api/ai/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[struct {
		Trained bool `json:"trained"`
		Metrics struct {
			Training map[string]float64 `json:"training_runs"`
		} `json:"metrics"`
	}](t, rr)
	assert.False(t, stats.Trained)
	assert.Equal(t, 1.0, stats.Metrics.Training["skipped"])
}

func TestStatsEndpointIncludesIntentCounts(t *testing.T) {
	h, _ := newTestServer(t)

	for _, q := range []string{"show today's appointments", "find patient john", "find patient jane"} {
		rr := do(t, h, http.MethodPost, "/api/ai/nlp-query", `{"query": "`+q+`"}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/api/inventory/alerts", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/ai/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[struct {
		IntentCounts map[string]int `json:"intent_counts"`
		Metrics      struct {
			Intents     map[string]float64 `json:"queries_by_intent"`
			StockAlerts map[string]float64 `json:"stock_alerts"`
		} `json:"metrics"`
	}](t, rr)
	assert.Equal(t, map[string]int{"today_appointments": 1, "patient_search": 2}, stats.IntentCounts)
	assert.Equal(t, 2.0, stats.Metrics.Intents["patient_search"])
	assert.Contains(t, stats.Metrics.Intents, "doctor_schedule")
	assert.Equal(t, 1.0, stats.Metrics.StockAlerts["critical"])
	assert.Equal(t, 1.0, stats.Metrics.StockAlerts["warning"])
}

func TestStatsEndpointWithoutQueryLog(t *testing.T) {
	repo := frontdesk.NewInMemoryRepository()
	svc := NewService(Deps{Repo: repo, Logger: logging.Discard()})
	r := chi.NewRouter()
	r.Mount("/api", NewHandler(svc, repo, logging.Discard()).Routes())

	rr := do(t, r, http.MethodGet, "/api/ai/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "intent_counts")
}

func TestAppointmentEndpoints(t *testing.T) {
	h, f := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/appointments/new",
		`{"patient_id": `+itoa(f.patient.ID)+`, "doctor_id": 3, "appointment_date": "2026-10-18T14:00:00"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[struct {
		OK bool `json:"ok"`
		ID int  `json:"id"`
	}](t, rr)
	assert.True(t, created.OK)

	rr = do(t, h, http.MethodPost, "/api/appointments/new",
		`{"patient_id": `+itoa(f.patient.ID)+`, "doctor_id": 3, "appointment_date": "2026-10-18T14:00:00"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/appointments/new", `{"doctor_id": 3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing fields")

	rr = do(t, h, http.MethodPost, "/api/appointments/new", `{"patient_id": 999, "doctor_id": 3, "appointment_date": "2026-10-18T15:00:00"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/appointments", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]appointmentView](t, rr)
	require.Len(t, list, 4)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Dr. Ramesh Iyer", list[0].Doctor)
	assert.Equal(t, "2026-10-18T14:00:00", list[0].AppointmentDate)

	rr = do(t, h, http.MethodDelete, "/api/appointments/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodDelete, "/api/appointments/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatientAndDoctorEndpoints(t *testing.T) {
	h, f := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/api/patients", `{"name": "Jane Doe", "dob": "1990-02-02"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/patients", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/patients", "")
	require.Equal(t, http.StatusOK, rr.Code)
	patients := decode[[]frontdesk.Patient](t, rr)
	require.Len(t, patients, 2)
	assert.Equal(t, "Jane Doe", patients[0].Name)

	rr = do(t, h, http.MethodDelete, "/api/patients/"+itoa(f.patient.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	appts, err := f.repo.ListAppointments(context.Background(), frontdesk.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, appts)

	rr = do(t, h, http.MethodPost, "/api/doctors", `{"name": "Dr. New Hire", "specialization": "ENT"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, h, http.MethodGet, "/api/doctors", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]frontdesk.Doctor](t, rr), 11)
}

func TestInventoryEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/inventory/alerts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	alerts := decode[struct {
		Alerts []map[string]any `json:"alerts"`
		Count  int              `json:"count"`
	}](t, rr)
	assert.Equal(t, 2, alerts.Count)
	assert.Equal(t, "CRITICAL: Syringes is running very low (4 remaining)", alerts.Alerts[1]["message"])

	rr = do(t, h, http.MethodPost, "/api/inventory", `{"name": "Gauze", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[struct {
		ID int64 `json:"id"`
	}](t, rr)

	rr = do(t, h, http.MethodPost, "/api/inventory", `{"name": "Gauze", "quantity": -2}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	id := itoa(int(created.ID))
	rr = do(t, h, http.MethodPut, "/api/inventory/"+id, `{"quantity": 40}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/inventory/"+id+"/restock?daily_usage=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"restock_date":"2026-10-26"`)

	rr = do(t, h, http.MethodGet, "/api/inventory/"+id+"/restock", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"restock_date":null`)

	rr = do(t, h, http.MethodGet, "/api/inventory/"+id+"/restock?daily_usage=lots", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/inventory/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodPut, "/api/inventory/"+id, `{"quantity": 1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/inventory", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]frontdesk.InventoryItem](t, rr), 5)
}

func TestAdminStatsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"todayAppointments":2,"activeDoctors":10,"lowStockItems":2,"totalPatients":1}`,
		strings.TrimSpace(rr.Body.String()))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
