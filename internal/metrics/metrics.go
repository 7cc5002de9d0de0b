// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes sync loop counters and the health endpoint.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tickDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "knowledge_sync_tick_duration_seconds",
		Help: "Summary of sync tick durations",
	}, []string{"status"})

	tickCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_sync_ticks_total",
		Help: "How many sync ticks completed, partitioned by state (success, error, noop)",
	}, []string{"status"})

	documentCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "knowledge_sync_documents_total",
		Help: "How many document operations completed, partitioned by action",
	}, []string{"action"})

	lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "knowledge_sync_last_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful sync tick",
	})
)

// Tick status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusNoop    = "noop"
)

// Document action labels.
const (
	ActionUploaded = "uploaded"
	ActionUpdated  = "updated"
	ActionRemoved  = "removed"
	ActionSkipped  = "skipped"
	ActionFailed   = "failed"
)

func init() {
	prometheus.MustRegister(tickDuration)
	prometheus.MustRegister(tickCount)
	prometheus.MustRegister(documentCount)
	prometheus.MustRegister(lastSuccess)
}

// ready flips once the first tick succeeds; /healthz serves 503 before that.
var ready atomic.Bool

// ObserveTick records one completed tick.
func ObserveTick(status string, seconds float64) {
	tickDuration.WithLabelValues(status).Observe(seconds)
	tickCount.WithLabelValues(status).Inc()
}

// AddDocuments bumps the per-action document counter.
func AddDocuments(action string, n int) {
	if n > 0 {
		documentCount.WithLabelValues(action).Add(float64(n))
	}
}

// RecordSuccess stamps the last successful tick and marks the service ready.
func RecordSuccess(t time.Time) {
	lastSuccess.Set(float64(t.Unix()))
	ready.Store(true)
}

// Handler returns the /metrics and /healthz mux.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			http.Error(w, "no successful sync yet", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve runs the metrics and health endpoint until ctx is cancelled. An
// empty addr disables the listener.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if addr == "" {
		return nil
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	srv := &http.Server{Addr: addr, Handler: Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
