package tasks

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/cvfold/internal/testutil/testlog"
)

func TestSuperGLUEResolve(t *testing.T) {
	testlog.Start(t)
	r := SuperGLUE()

	s, err := r.Resolve("WiC")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Splits{Train: "train.jsonl", Val: "val.jsonl", Test: "test.jsonl"}
	if s != want {
		t.Fatalf("unexpected splits: got=%+v want=%+v", s, want)
	}

	swag, err := r.Resolve("SWAG")
	if err != nil {
		t.Fatalf("resolve SWAG: %v", err)
	}
	if swag.Train != "train.csv" {
		t.Fatalf("unexpected SWAG train file: %q", swag.Train)
	}
}

func TestResolveUnknownTask(t *testing.T) {
	testlog.Start(t)
	if _, err := SuperGLUE().Resolve("wic"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	for _, name := range []string{"WSC", "CB", "RTE"} {
		if err := r.Set(name, Splits{Train: "a", Val: "b", Test: "c"}); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	want := []string{"CB", "RTE", "WSC"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names not sorted: got=%v want=%v", got, want)
	}
}

func TestPaths(t *testing.T) {
	testlog.Start(t)
	paths, err := SuperGLUE().Paths("/data/superglue", "CB")
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if paths.Train != filepath.Join("/data/superglue", "CB", "train.jsonl") {
		t.Fatalf("unexpected train path: %q", paths.Train)
	}
	if paths.Test != filepath.Join("/data/superglue", "CB", "test.jsonl") {
		t.Fatalf("unexpected test path: %q", paths.Test)
	}
}

func TestSetRejectsInvalidSplits(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	cases := []Splits{
		{Train: "", Val: "v", Test: "t"},
		{Train: "a", Val: "../v", Test: "t"},
		{Train: "a", Val: "v", Test: "sub/t"},
		{Train: "..", Val: "v", Test: "t"},
	}
	for _, s := range cases {
		if err := r.Set("X", s); !errors.Is(err, ErrInvalidSplit) {
			t.Fatalf("expected ErrInvalidSplit for %+v, got %v", s, err)
		}
	}
	if err := r.Set("  ", Splits{Train: "a", Val: "b", Test: "c"}); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit for blank name, got %v", err)
	}
}

func TestValidateSplitsReportsFirstBadRole(t *testing.T) {
	testlog.Start(t)
	for i := 0; i < 20; i++ {
		err := ValidateSplits(Splits{})
		if !errors.Is(err, ErrInvalidSplit) {
			t.Fatalf("expected ErrInvalidSplit, got %v", err)
		}
		if !strings.Contains(err.Error(), "train filename") {
			t.Fatalf("expected train to be reported first, got %v", err)
		}
	}
	err := ValidateSplits(Splits{Train: "a", Val: "x/v", Test: "y/t"})
	if err == nil || !strings.Contains(err.Error(), "val filename") {
		t.Fatalf("expected val to be reported before test, got %v", err)
	}
}

func TestSetOverridesExisting(t *testing.T) {
	testlog.Start(t)
	r := SuperGLUE()
	if err := r.Set("CB", Splits{Train: " train.v2.jsonl ", Val: "val.jsonl", Test: "test.jsonl"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := r.Resolve("CB")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Train != "train.v2.jsonl" {
		t.Fatalf("override not applied: %+v", s)
	}
}
