package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(context.Context) error

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheckHandler serves liveness and readiness probes.
//
// Without checks it always answers 200 with status "ALIVE". With checks,
// every check runs on each request: all passing answers 200 "READY", any
// failure answers 503 "NOT_READY". The body lists the outcome per check.
func HealthCheckHandler(log *slog.Logger, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := slices.Sorted(maps.Keys(checks))

	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{Status: "ALIVE"}
		status := http.StatusOK

		if len(names) > 0 {
			report.Status = "READY"
			report.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](r.Context()); err != nil {
					log.WarnContext(r.Context(), "readiness check failed",
						slog.String("check", name), logger.Error(err))
					report.Checks[name] = err.Error()
					report.Status = "NOT_READY"
					status = http.StatusServiceUnavailable
					continue
				}
				report.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}
