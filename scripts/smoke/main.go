// Package main runs tiered smoke checks against a running meditrack API.
//
// Usage:
//
//	go run ./scripts/smoke [--tier=1|2|3] [--api=URL] [--doctor=ID] [--date=YYYY-MM-DD]
//
// Tier 1 reads the front-desk records, tier 2 adds the engine endpoints and
// tier 3 books and cancels a real appointment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	flagAPI    string
	flagTier   int
	flagDoctor int
	flagDate   string

	client = &http.Client{Timeout: 15 * time.Second}
)

func init() {
	flag.StringVar(&flagAPI, "api", "http://localhost:8080", "API base URL")
	flag.IntVar(&flagTier, "tier", 1, "Check tier: 1=records, 2=+engine, 3=+booking round trip")
	flag.IntVar(&flagDoctor, "doctor", 1, "Doctor ID used by slot checks")
	flag.StringVar(&flagDate, "date", "", "Date used by slot checks (default tomorrow)")
}

type checkResult struct {
	Name   string
	Pass   bool
	Detail string
}

func call(method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, strings.TrimRight(flagAPI, "/")+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func expectOK(name, method, path string, body any, out any, want int) checkResult {
	code, err := call(method, path, body, out)
	if err != nil {
		return checkResult{Name: name, Detail: err.Error()}
	}
	if code != want {
		return checkResult{Name: name, Detail: fmt.Sprintf("status %d, want %d", code, want)}
	}
	return checkResult{Name: name, Pass: true, Detail: fmt.Sprintf("status %d", code)}
}

func tierOne() []checkResult {
	var doctors []map[string]any
	var items []map[string]any
	results := []checkResult{
		expectOK("health", http.MethodGet, "/health", nil, nil, http.StatusOK),
		expectOK("list doctors", http.MethodGet, "/api/doctors", nil, &doctors, http.StatusOK),
		expectOK("list patients", http.MethodGet, "/api/patients", nil, nil, http.StatusOK),
		expectOK("list inventory", http.MethodGet, "/api/inventory", nil, &items, http.StatusOK),
		expectOK("admin stats", http.MethodGet, "/api/admin/stats", nil, nil, http.StatusOK),
	}
	if len(doctors) == 0 {
		results = append(results, checkResult{Name: "doctors present", Detail: "no doctors; seed with SEED_SAMPLE_DATA=true"})
	}
	return results
}

func tierTwo() []checkResult {
	var suggest struct {
		Suggestions []map[string]any `json:"suggestions"`
	}
	var query struct {
		Intent string `json:"intent"`
	}
	results := []checkResult{
		expectOK("suggest appointment", http.MethodPost, "/api/ai/suggest-appointment",
			map[string]any{"doctor_id": flagDoctor, "date": flagDate}, &suggest, http.StatusOK),
		expectOK("predict flow", http.MethodPost, "/api/ai/predict-flow", map[string]string{"date": flagDate}, nil, http.StatusOK),
		expectOK("nlp query", http.MethodPost, "/api/ai/nlp-query", map[string]string{"query": "show today's appointments"}, &query, http.StatusOK),
		expectOK("inventory alerts", http.MethodGet, "/api/inventory/alerts", nil, nil, http.StatusOK),
	}
	if query.Intent != "" && query.Intent != "today_appointments" {
		results = append(results, checkResult{Name: "nlp intent", Detail: "got " + query.Intent})
	}
	if len(suggest.Suggestions) == 0 {
		results = append(results, checkResult{Name: "suggestions present", Detail: "no free slots on " + flagDate})
	}
	return results
}

func tierThree() []checkResult {
	var free []string
	results := []checkResult{expectOK("free slots", http.MethodGet, fmt.Sprintf("/api/get_slots/%d/%s", flagDoctor, flagDate), nil, &free, http.StatusOK)}
	if len(free) == 0 {
		return append(results, checkResult{Name: "booking round trip", Detail: "no free slot to book"})
	}

	var patient struct {
		ID int `json:"id"`
	}
	results = append(results, expectOK("create patient", http.MethodPost, "/api/patients",
		map[string]string{"name": "Smoke Test Patient", "dob": "1990-01-01", "contact": "smoke@example.com"}, &patient, http.StatusCreated))
	if patient.ID == 0 {
		return results
	}
	defer call(http.MethodDelete, fmt.Sprintf("/api/patients/%d", patient.ID), nil, nil)

	at := flagDate + "T" + free[0] + ":00"
	var booked struct {
		ID int `json:"id"`
	}
	body := map[string]any{"patient_id": patient.ID, "doctor_id": flagDoctor, "appointment_date": at}
	results = append(results,
		expectOK("book appointment", http.MethodPost, "/api/appointments/new", body, &booked, http.StatusCreated),
		expectOK("double booking rejected", http.MethodPost, "/api/appointments/new", body, nil, http.StatusConflict),
	)
	if booked.ID != 0 {
		results = append(results, expectOK("cancel appointment", http.MethodDelete, fmt.Sprintf("/api/appointments/%d", booked.ID), nil, nil, http.StatusOK))
	}
	return results
}

func printReport(results []checkResult) int {
	failed := 0
	fmt.Printf("\nmeditrack smoke checks against %s (tier %d)\n\n", flagAPI, flagTier)
	for _, r := range results {
		icon := "PASS"
		if !r.Pass {
			icon = "FAIL"
			failed++
		}
		fmt.Printf("  %-4s  %-26s %s\n", icon, r.Name, r.Detail)
	}
	fmt.Printf("\n%d checks, %d failed\n", len(results), failed)
	return failed
}

func main() {
	flag.Parse()
	if flagDate == "" {
		flagDate = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	}

	results := tierOne()
	if flagTier >= 2 {
		results = append(results, tierTwo()...)
	}
	if flagTier >= 3 {
		results = append(results, tierThree()...)
	}
	if printReport(results) > 0 {
		os.Exit(1)
	}
}
