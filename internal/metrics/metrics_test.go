package metrics

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"horsemarket-web/internal/config"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
)

func TestWrite_IncludesRegisteredCounters(t *testing.T) {
	metrics.GetOrCreateCounter(`metrics_test_total{result="ok"}`).Inc()

	var buf bytes.Buffer
	Write(&buf)

	assert.Contains(t, buf.String(), `metrics_test_total{result="ok"} 1`)
}

func TestSetup_NoURL(t *testing.T) {
	assert.NotPanics(t, func() {
		Setup(config.Metrics{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
}
