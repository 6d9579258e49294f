package scoring

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danmuck/cvfold/internal/testutil/testlog"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreAveragesPresentMetrics(t *testing.T) {
	testlog.Start(t)
	metrics := map[string]float64{
		"CB/SuperGLUE/val/accuracy_macro_f1": 0.9,
		"RTE/SuperGLUE/val/accuracy":         0.7,
		"RTE/SuperGLUE/val/loss":             3.0,
		"WiC/SuperGLUE/test/accuracy":        0.1,
	}
	if got := Score(metrics, "val"); !near(got, 0.8) {
		t.Fatalf("unexpected val score: got=%v want=0.8", got)
	}
	if got := Score(metrics, "test"); !near(got, 0.1) {
		t.Fatalf("unexpected test score: got=%v want=0.1", got)
	}
}

func TestScoreNoMetrics(t *testing.T) {
	testlog.Start(t)
	if got := Score(map[string]float64{"model/all/val/loss": 1}, "val"); got != 0 {
		t.Fatalf("expected zero score, got %v", got)
	}
	if got := Score(nil, "val"); got != 0 {
		t.Fatalf("expected zero score for nil metrics, got %v", got)
	}
}

func TestMetricNames(t *testing.T) {
	names := MetricNames("val")
	if len(names) != 6 {
		t.Fatalf("unexpected metric count: %d", len(names))
	}
	if names[0] != "CB/SuperGLUE/val/accuracy_macro_f1" || names[2] != "MultiRC/SuperGLUE/val/em_f1" {
		t.Fatalf("unexpected metric names: %v", names)
	}
}

func TestParseMetrics(t *testing.T) {
	testlog.Start(t)
	doc := []byte(`{"COPA/SuperGLUE/val/accuracy": 0.75, "WSC/SuperGLUE/val/accuracy": 1, "note": "skip", "nested": {"a": 1}}`)
	metrics, err := ParseMetrics(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]float64{
		"COPA/SuperGLUE/val/accuracy": 0.75,
		"WSC/SuperGLUE/val/accuracy":  1,
	}
	if !reflect.DeepEqual(metrics, want) {
		t.Fatalf("unexpected metrics: got=%v want=%v", metrics, want)
	}
	if got := Score(metrics, "val"); !near(got, 0.875) {
		t.Fatalf("unexpected score: got=%v want=0.875", got)
	}
}

func TestParseMetricsRejectsBadDocuments(t *testing.T) {
	testlog.Start(t)
	for _, doc := range []string{`{"a":`, `[1, 2]`, `3`} {
		if _, err := ParseMetrics([]byte(doc)); !errors.Is(err, ErrInvalidMetrics) {
			t.Fatalf("doc=%s: expected ErrInvalidMetrics, got %v", doc, err)
		}
	}
}

func TestLoadMetrics(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "metrics.txt")
	if err := os.WriteFile(path, []byte(`{"RTE/SuperGLUE/val/accuracy": 0.6}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	metrics, err := LoadMetrics(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := metrics["RTE/SuperGLUE/val/accuracy"]; !near(got, 0.6) {
		t.Fatalf("unexpected accuracy: %v", got)
	}

	if _, err := LoadMetrics(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
