package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/cvfold/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog/log"
	"go.uber.org/goleak"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	foldsBefore := testutil.ToFloat64(foldsWritten)
	recordsBefore := testutil.ToFloat64(recordsPartitioned)

	RecordRun(5, 250, 4096, 120*time.Millisecond)
	RecordRun(5, 250, 4096, 80*time.Millisecond)
	RecordFailure(3 * time.Millisecond)

	if got := testutil.ToFloat64(foldsWritten) - foldsBefore; got != 10 {
		t.Fatalf("unexpected folds written: %v", got)
	}
	if got := testutil.ToFloat64(recordsPartitioned) - recordsBefore; got != 500 {
		t.Fatalf("unexpected records: %v", got)
	}
	if got := testutil.ToFloat64(lastSuccess); got <= 0 {
		t.Fatalf("expected last success timestamp, got %v", got)
	}

	families, err := Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected gathered metric families")
	}
	log.Info().Int("families", len(families)).Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestGatheredSeriesLeaveGroupingLabelFree(t *testing.T) {
	testlog.Start(t)
	RecordRun(1, 1, 1, time.Millisecond)
	RecordFailure(time.Millisecond)

	families, err := Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "task" || lp.GetName() == "job" {
					t.Fatalf("metric %s carries grouping label %q", mf.GetName(), lp.GetName())
				}
			}
		}
	}
}

func TestPushSendsRegistryToGateway(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	defer http.DefaultTransport.(*http.Transport).CloseIdleConnections()
	testlog.Start(t)
	RecordRun(2, 10, 100, time.Millisecond)

	var (
		mu     sync.Mutex
		path   string
		method string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, method, body = r.URL.Path, r.Method, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "RTE"); err != nil {
		t.Fatalf("push: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Fatalf("unexpected method: %s", method)
	}
	if path != "/metrics/job/cvfold/task/RTE" {
		t.Fatalf("unexpected path: %s", path)
	}
	if !strings.Contains(body, "cvfold_folds_written_total") {
		t.Fatalf("expected fold metrics in push body")
	}
}

func TestPushWithoutGatewayIsNoop(t *testing.T) {
	testlog.Start(t)
	if err := Push(context.Background(), "  ", "CB"); err != nil {
		t.Fatalf("expected noop, got %v", err)
	}
}

func TestPushReportsGatewayErrors(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := Push(context.Background(), srv.URL, "CB"); err == nil {
		t.Fatalf("expected push error")
	}
}
