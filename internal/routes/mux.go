// Package routes
package routes

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ntentasd/nostradamus-advisor/internal/metrics"
	"github.com/ntentasd/nostradamus-advisor/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewMux(app *App) http.Handler {
	mux := http.NewServeMux()

	// health check
	mux.HandleFunc("GET /healthz", healthHandler)

	// metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// ingestion
	handle(mux, "POST /readings", app.postReadingHandler)

	// per sensor
	handle(mux, "GET /sensors/{id}/readings", app.readingsHandler)
	handle(mux, "GET /sensors/{id}/aggregates", app.aggregatesHandler)
	handle(mux, "GET /sensors/{id}/recommendations", app.recommendationsHandler)
	handle(mux, "GET /sensors/{id}/health", app.healthScoreHandler)
	handle(mux, "GET /sensors/{id}/alerts", app.alertsHandler)
	handle(mux, "POST /sensors/{id}/alerts/{alert_id}/resolve", app.resolveAlertHandler)

	// per farmer
	handle(mux, "GET /farmers/{id}/report", app.reportHandler)
	handle(mux, "GET /farmers/{id}/profile", app.getProfileHandler)
	handle(mux, "PUT /farmers/{id}/profile", app.putProfileHandler)

	// knowledge base
	handle(mux, "GET /crops", app.cropsHandler)

	return utils.WithCORS(mux)
}

// handle registers h and records its latency under the route pattern, so
// sensor ids do not blow up the label cardinality.
func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	verb, route, _ := strings.Cut(pattern, " ")
	observer := metrics.HttpRequestLatencySeconds.MustCurryWith(prometheus.Labels{
		"verb":  verb,
		"route": route,
	})

	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			observer.WithLabelValues(strconv.Itoa(sr.status)).Observe(time.Since(start).Seconds())
		}()
		h(sr, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
