package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/cvfold/internal/config"
)

type fileConfig struct {
	TaskName    string `toml:"task_name"`
	CVDir       string `toml:"cv_dir"`
	DataDir     string `toml:"data_dir"`
	Seed        int64  `toml:"seed"`
	Folds       int    `toml:"folds"`
	TasksFile   string `toml:"tasks_file"`
	Validate    bool   `toml:"validate"`
	Manifest    bool   `toml:"manifest"`
	SearchSpace bool   `toml:"search_space"`
	Pushgateway string `toml:"pushgateway"`
}

// loadRunConfig overlays the keys defined in path onto cfg.
func loadRunConfig(path string, cfg *config.RunConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load run config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("load run config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("task_name") {
		cfg.Task = strings.TrimSpace(raw.TaskName)
	}
	if meta.IsDefined("cv_dir") {
		cfg.CVDir = strings.TrimSpace(raw.CVDir)
	}
	if meta.IsDefined("data_dir") {
		cfg.DataDir = strings.TrimSpace(raw.DataDir)
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("folds") {
		cfg.Folds = raw.Folds
	}
	if meta.IsDefined("tasks_file") {
		cfg.TasksFile = strings.TrimSpace(raw.TasksFile)
	}
	if meta.IsDefined("validate") {
		cfg.Validate = raw.Validate
	}
	if meta.IsDefined("manifest") {
		cfg.Manifest = raw.Manifest
	}
	if meta.IsDefined("search_space") {
		cfg.SearchSpace = raw.SearchSpace
	}
	if meta.IsDefined("pushgateway") {
		cfg.Pushgateway = strings.TrimSpace(raw.Pushgateway)
	}
	return nil
}
