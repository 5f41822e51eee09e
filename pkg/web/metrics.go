package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newMetrics builds a registry whose collectors read the live session,
// hub and ingest counters at scrape time.
func (s *Server) newMetrics() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string, value func() float64) {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, value))
	}
	gauge := func(name, help string, value func() float64) {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, value))
	}

	counter("protofito_ticks_total", "Frames processed in the current session.",
		func() float64 { return float64(s.session.Stats().Ticks) })
	counter("protofito_frames_skipped_total", "Frames rejected for missing joints.",
		func() float64 { return float64(s.session.Stats().Skipped) })
	counter("protofito_no_signal_total", "Ticks without a usable angle.",
		func() float64 { return float64(s.session.Stats().NoSignal) })
	gauge("protofito_reps", "Completed repetitions in the current session.",
		func() float64 { return float64(s.session.Snapshot().State.RepCount) })
	gauge("protofito_session_elapsed_seconds", "Time since the session started.",
		func() float64 { return s.session.Snapshot().ElapsedSec })

	counter("protofito_results_published_total", "Results broadcast to dashboards.",
		func() float64 { return float64(s.published.Load()) })
	gauge("protofito_ws_clients", "Connected dashboard clients.",
		func() float64 { return float64(s.results.Stats().Clients) })
	counter("protofito_ws_evicted_total", "Dashboard clients dropped for being slow.",
		func() float64 { return float64(s.results.Stats().Evicted) })
	counter("protofito_ws_dropped_total", "Broadcasts dropped because the hub was full.",
		func() float64 { return float64(s.results.Stats().Dropped) })

	counter("protofito_ingest_frames_total", "Frames received on the ingest websocket.",
		func() float64 { return float64(s.ingestedFrames.Load()) })
	counter("protofito_ingest_rejected_total", "Undecodable ingest messages.",
		func() float64 { return float64(s.rejectedFrames.Load()) })
	if s.ingest != nil {
		counter("protofito_ingest_queue_dropped_total", "Ingest frames dropped because the queue was full.",
			func() float64 { return float64(s.ingest.Dropped()) })
	}

	return reg
}

// metricsHandler serves reg in the Prometheus exposition format.
func metricsHandler(reg *prometheus.Registry) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
