package tasks

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrUnknownTask  = errors.New("tasks: unknown task")
	ErrInvalidSplit = errors.New("tasks: invalid split mapping")
)

// Splits names the canonical files of one task under <data_dir>/<task>/.
type Splits struct {
	Train string `toml:"train"`
	Val   string `toml:"val"`
	Test  string `toml:"test"`
}

// SplitPaths holds resolved filesystem paths for one task.
type SplitPaths struct {
	Train string
	Val   string
	Test  string
}

// Registry stores split mappings by task name.
type Registry struct {
	items map[string]Splits
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Splits)}
}

// SuperGLUE returns a registry seeded with the benchmark's task table.
func SuperGLUE() *Registry {
	r := NewRegistry()
	jsonl := Splits{Train: "train.jsonl", Val: "val.jsonl", Test: "test.jsonl"}
	for _, name := range []string{"BoolQ", "CB", "COPA", "MultiRC", "ReCoRD", "RTE", "WiC", "WSC"} {
		r.items[name] = jsonl
	}
	r.items["SWAG"] = Splits{Train: "train.csv", Val: "val.csv", Test: "test.csv"}
	return r
}

// ValidateSplits checks that every split names a plain file.
func ValidateSplits(s Splits) error {
	for _, split := range []struct{ role, name string }{
		{"train", s.Train},
		{"val", s.Val},
		{"test", s.Test},
	} {
		name := strings.TrimSpace(split.name)
		if name == "" {
			return fmt.Errorf("%w: %s filename is required", ErrInvalidSplit, split.role)
		}
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("%w: %s filename %q must not contain a path", ErrInvalidSplit, split.role, name)
		}
	}
	return nil
}

// Set adds or replaces the mapping for a task.
func (r *Registry) Set(name string, s Splits) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: task name is required", ErrInvalidSplit)
	}
	if err := ValidateSplits(s); err != nil {
		return fmt.Errorf("task %s: %w", name, err)
	}
	r.items[name] = Splits{
		Train: strings.TrimSpace(s.Train),
		Val:   strings.TrimSpace(s.Val),
		Test:  strings.TrimSpace(s.Test),
	}
	return nil
}

// Resolve returns the split mapping of a task.
func (r *Registry) Resolve(name string) (Splits, error) {
	s, ok := r.items[name]
	if !ok {
		return Splits{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownTask, name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names returns task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths resolves <dataDir>/<task>/<file> for every split of a task.
func (r *Registry) Paths(dataDir, name string) (SplitPaths, error) {
	s, err := r.Resolve(name)
	if err != nil {
		return SplitPaths{}, err
	}
	root := filepath.Join(dataDir, name)
	return SplitPaths{
		Train: filepath.Join(root, s.Train),
		Val:   filepath.Join(root, s.Val),
		Test:  filepath.Join(root, s.Test),
	}, nil
}
