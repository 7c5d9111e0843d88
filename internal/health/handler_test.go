package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"urutibiz/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	rr := serve(NewHandler(logger.Discard()), "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReady(t *testing.T) {
	ok := Check{Name: "bookings", Ping: func(ctx context.Context) error { return nil }}
	down := Check{Name: "settings", Ping: func(ctx context.Context) error { return errors.New("connection refused") }}

	rr := serve(NewHandler(logger.Discard(), ok), "/ready")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = serve(NewHandler(logger.Discard(), ok, down), "/ready")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Dependencies["bookings"] != "ok" || resp.Dependencies["settings"] != "error" {
		t.Errorf("unexpected dependency report: %v", resp.Dependencies)
	}
}
