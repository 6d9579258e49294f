package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/cvfold/internal/folds"
	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
)

const (
	EnvDataDir = "SUPERGLUEDATA"

	DefaultSeed  int64 = 111
	DefaultFolds       = 5
)

// RunConfig is the resolved configuration of one fold-generation run.
type RunConfig struct {
	Task        string `json:"task"`
	DataDir     string `json:"data_dir"`
	CVDir       string `json:"cv_dir"`
	Seed        int64  `json:"seed"`
	Folds       int    `json:"folds"`
	TasksFile   string `json:"tasks_file,omitempty"`
	Validate    bool   `json:"validate"`
	Pushgateway string `json:"pushgateway,omitempty"`
	Manifest    bool   `json:"manifest"`
	SearchSpace bool   `json:"search_space"`
}

// TasksFile is the on-disk shape of a task table override.
type TasksFile struct {
	Tasks map[string]TaskEntry `toml:"tasks"`
}

type TaskEntry struct {
	Train string `toml:"train"`
	Val   string `toml:"val"`
	Test  string `toml:"test"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Seed:        DefaultSeed,
		Folds:       DefaultFolds,
		Manifest:    true,
		SearchSpace: true,
	}
}

// ResolveDataDir fills cfg.DataDir from getenv(SUPERGLUEDATA) when no flag or
// config file supplied one.
func ResolveDataDir(cfg *RunConfig, getenv func(string) string) error {
	if strings.TrimSpace(cfg.DataDir) != "" {
		cfg.DataDir = strings.TrimSpace(cfg.DataDir)
		return nil
	}
	if getenv != nil {
		if v := strings.TrimSpace(getenv(EnvDataDir)); v != "" {
			cfg.DataDir = v
			return nil
		}
	}
	return fmt.Errorf("%w: data_dir not set (use --data_dir, data_dir in config, or $%s)", folds.ErrConfiguration, EnvDataDir)
}

// ValidateRunConfig reports every problem at once.
func ValidateRunConfig(cfg RunConfig) error {
	var result *multierror.Error
	if strings.TrimSpace(cfg.Task) == "" {
		result = multierror.Append(result, fmt.Errorf("task_name is required"))
	}
	if strings.TrimSpace(cfg.CVDir) == "" {
		result = multierror.Append(result, fmt.Errorf("cv_dir is required"))
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		result = multierror.Append(result, fmt.Errorf("data_dir is required"))
	}
	if cfg.Folds < 1 || cfg.Folds > folds.MaxFolds {
		result = multierror.Append(result, fmt.Errorf("folds=%d must be in [1, %d]", cfg.Folds, folds.MaxFolds))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", folds.ErrConfiguration, err)
	}
	return nil
}

func LoadTasksFile(path string) (TasksFile, error) {
	var file TasksFile
	if err := loadToml(path, &file); err != nil {
		return TasksFile{}, err
	}
	if len(file.Tasks) == 0 {
		return TasksFile{}, fmt.Errorf("tasks file %s defines no [tasks.<name>] tables", path)
	}
	return file, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
