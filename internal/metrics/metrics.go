package metrics

import (
	"io"
	"log/slog"
	"time"

	"horsemarket-web/internal/config"

	"github.com/VictoriaMetrics/metrics"
)

// Setup starts pushing the default metrics set when a push URL is configured.
func Setup(cfg config.Metrics, logger *slog.Logger) {
	if cfg.URL == "" {
		logger.Info("Metrics push disabled, exposing /metrics only")
		return
	}

	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if err := metrics.InitPush(cfg.URL, interval, cfg.CommonLabels, true); err != nil {
		logger.Error("Error initializing metrics push", "error", err, "url", cfg.URL)
	}
}

// Write renders every registered metric in Prometheus text format.
func Write(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
