package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labctl/labctl/internal/health"
)

// Handler builds the admin mux: Prometheus's /metrics and a /healthz
// backed by checker. It is served on its own port — never the role's wire
// port — per spec §6's closed set of wire request lines.
func Handler(checker *health.Checker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		healthy := checker.IsHealthy()
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"healthy": healthy,
			"checks":  checker.Statuses(),
		})
	})

	return r
}

// Serve runs the admin mux on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, checker *health.Checker) error {
	srv := &http.Server{Addr: addr, Handler: Handler(checker)}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("telemetry: serve %s: %w", addr, err)
	}
	return nil
}
