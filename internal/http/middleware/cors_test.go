package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{
			name:        "listed origin",
			allowed:     []string{"https://frontdesk.example"},
			method:      http.MethodGet,
			origin:      "https://frontdesk.example",
			wantOrigin:  "https://frontdesk.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "unlisted origin still reaches handler without headers",
			allowed:     []string{"https://frontdesk.example"},
			method:      http.MethodGet,
			origin:      "https://elsewhere.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "wildcard echoes origin",
			allowed:     []string{"*"},
			method:      http.MethodPost,
			origin:      "https://ward-3.example",
			wantOrigin:  "https://ward-3.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "trailing slash and blanks in config",
			allowed:     []string{" https://frontdesk.example/ ", ""},
			method:      http.MethodGet,
			origin:      "https://frontdesk.example",
			wantOrigin:  "https://frontdesk.example",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:       "preflight short-circuits",
			allowed:    []string{"https://frontdesk.example"},
			method:     http.MethodOptions,
			origin:     "https://frontdesk.example",
			preflight:  true,
			wantOrigin: "https://frontdesk.example",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "preflight from unlisted origin gets no grant",
			allowed:    []string{"https://frontdesk.example"},
			method:     http.MethodOptions,
			origin:     "https://elsewhere.example",
			preflight:  true,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/ai/nlp-query", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			if reached != tt.wantHandler {
				t.Fatalf("handler reached = %v, want %v", reached, tt.wantHandler)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowedMethods {
					t.Fatalf("allow methods = %q", got)
				}
				if got := rec.Header().Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
					t.Fatalf("expose headers = %q", got)
				}
			}
		})
	}
}
