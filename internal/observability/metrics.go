package observability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "cvfold"

// Series carry no task label; Push attaches the task as a grouping key,
// and the push client rejects metrics that already carry it.
var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	foldsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvfold",
			Subsystem: "folds",
			Name:      "written_total",
			Help:      "Fold directory sets written.",
		},
	)
	recordsPartitioned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvfold",
			Subsystem: "folds",
			Name:      "records_total",
			Help:      "Pool records partitioned into folds.",
		},
	)
	bytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvfold",
			Subsystem: "folds",
			Name:      "bytes_written_total",
			Help:      "Bytes written across train/val/test fold files.",
		},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvfold",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Fold generation run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvfold",
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fold generation.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(foldsWritten, recordsPartitioned, bytesWritten, runDuration, lastSuccess)
	})
}

// Gatherer exposes the private registry for pushing and tests.
func Gatherer() prometheus.Gatherer {
	RegisterMetrics()
	return registry
}

func RecordRun(folds, records int, bytes int64, duration time.Duration) {
	RegisterMetrics()
	foldsWritten.Add(float64(folds))
	recordsPartitioned.Add(float64(records))
	bytesWritten.Add(float64(bytes))
	runDuration.WithLabelValues(strconv.FormatBool(true)).Observe(duration.Seconds())
	lastSuccess.SetToCurrentTime()
}

func RecordFailure(duration time.Duration) {
	RegisterMetrics()
	runDuration.WithLabelValues(strconv.FormatBool(false)).Observe(duration.Seconds())
}

// Push sends the registry to a Prometheus Pushgateway, grouped by task.
func Push(ctx context.Context, gatewayURL, task string) error {
	gatewayURL = strings.TrimSpace(gatewayURL)
	if gatewayURL == "" {
		return nil
	}
	pusher := push.New(gatewayURL, jobName).
		Gatherer(Gatherer()).
		Grouping("task", task)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
