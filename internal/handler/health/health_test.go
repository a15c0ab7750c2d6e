package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/minigames/internal/handler/health"
)

func ok(context.Context) error { return nil }

func TestHandler(t *testing.T) {
	fail := health.CheckerFunc(func(context.Context) error { return errors.New("locked") })

	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   health.Response
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"sqlite":    health.CheckerFunc(ok),
				"scheduler": health.CheckerFunc(ok),
			},
			wantStatus: http.StatusOK,
			wantBody:   health.Response{Status: "ok", Checks: map[string]string{"sqlite": "ok", "scheduler": "ok"}},
		},
		{
			name: "sqlite down",
			checks: map[string]health.Checker{
				"sqlite":    fail,
				"scheduler": health.CheckerFunc(ok),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   health.Response{Status: "degraded", Checks: map[string]string{"sqlite": "error", "scheduler": "ok"}},
		},
		{
			name: "scheduler stalled",
			checks: map[string]health.Checker{
				"sqlite":    health.CheckerFunc(ok),
				"scheduler": fail,
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   health.Response{Status: "degraded", Checks: map[string]string{"sqlite": "ok", "scheduler": "error"}},
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   health.Response{Status: "ok", Checks: map[string]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body health.Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if body.Status != tt.wantBody.Status {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantBody.Status)
			}
			for name, want := range tt.wantBody.Checks {
				if got := body.Checks[name]; got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}
