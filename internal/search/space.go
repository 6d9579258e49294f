// Package search writes the search-space fragment that points a
// hyperparameter search at the generated fold directories.
package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = "search_space.yaml"

var ErrEmptySpace = errors.New("search: no fold directories")

// Space is one search dimension per key. Only data_dir varies across folds.
type Space struct {
	Task    []string `yaml:"task"`
	DataDir []string `yaml:"data_dir"`
}

// NewSpace builds the fold search space for one task.
func NewSpace(task string, dirs []string) (Space, error) {
	if len(dirs) == 0 {
		return Space{}, ErrEmptySpace
	}
	abs := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		p, err := filepath.Abs(dir)
		if err != nil {
			return Space{}, fmt.Errorf("search: resolve %s: %w", dir, err)
		}
		abs = append(abs, p)
	}
	return Space{Task: []string{task}, DataDir: abs}, nil
}

// Write stores s as YAML at path.
func Write(path string, s Space) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("search encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("search write (%s): %w", path, err)
	}
	return nil
}

// Load reads a search space written by Write.
func Load(path string) (Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Space{}, fmt.Errorf("search load (%s): %w", path, err)
	}
	var s Space
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Space{}, fmt.Errorf("search parse (%s): %w", path, err)
	}
	return s, nil
}
