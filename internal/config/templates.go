package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "run":
		return runTemplate, nil
	case "tasks":
		return tasksTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const runTemplate = `task_name = "WiC"
cv_dir = "folds/WiC"
# data_dir falls back to $SUPERGLUEDATA when unset.
# data_dir = "/data/superglue"
seed = 111
folds = 5
validate = false
manifest = true
search_space = true
# tasks_file = "tasks.toml"
# pushgateway = "http://localhost:9091"
`

const tasksTemplate = `[tasks.WiC]
train = "train.jsonl"
val = "val.jsonl"
test = "test.jsonl"

[tasks.WiC-v2]
train = "train.v2.jsonl"
val = "val.v2.jsonl"
test = "test.jsonl"
`
