// Package scoring computes the SuperGLUE aggregate from a learner's metric
// dictionary.
package scoring

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

var ErrInvalidMetrics = errors.New("scoring: invalid metrics document")

// taskMetrics lists the per-task headline metric, in report order.
var taskMetrics = []struct {
	task   string
	metric string
}{
	{"CB", "accuracy_macro_f1"},
	{"COPA", "accuracy"},
	{"MultiRC", "em_f1"},
	{"RTE", "accuracy"},
	{"WiC", "accuracy"},
	{"WSC", "accuracy"},
}

// MetricNames returns the metric keys that feed the aggregate for split.
func MetricNames(split string) []string {
	names := make([]string, 0, len(taskMetrics))
	for _, tm := range taskMetrics {
		names = append(names, fmt.Sprintf("%s/SuperGLUE/%s/%s", tm.task, split, tm.metric))
	}
	return names
}

// Score averages the headline metrics present in metrics. It returns 0 when
// none are present.
func Score(metrics map[string]float64, split string) float64 {
	total := 0.0
	cnt := 0
	for _, name := range MetricNames(split) {
		v, ok := metrics[name]
		if !ok {
			continue
		}
		total += v
		cnt++
	}
	if cnt == 0 {
		return 0
	}
	return total / float64(cnt)
}

// ParseMetrics reads a flat JSON object of metric name to number. Entries
// whose value is not a number are skipped.
func ParseMetrics(data []byte) (map[string]float64, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not JSON", ErrInvalidMetrics)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level is %s, want object", ErrInvalidMetrics, doc.Type)
	}
	out := make(map[string]float64)
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			out[key.String()] = value.Float()
		}
		return true
	})
	return out, nil
}

// LoadMetrics reads and parses a metrics file.
func LoadMetrics(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scoring load (%s): %w", path, err)
	}
	metrics, err := ParseMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return metrics, nil
}
