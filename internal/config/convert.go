package config

import (
	"fmt"
	"sort"

	"github.com/danmuck/cvfold/internal/tasks"
)

// ApplyTasks merges file entries into reg, overriding tasks that already
// exist. Entries are applied in name order so errors are reproducible.
func ApplyTasks(reg *tasks.Registry, file TasksFile) error {
	names := make([]string, 0, len(file.Tasks))
	for name := range file.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := file.Tasks[name]
		if err := reg.Set(name, tasks.Splits{Train: entry.Train, Val: entry.Val, Test: entry.Test}); err != nil {
			return fmt.Errorf("tasks file: %w", err)
		}
	}
	return nil
}
