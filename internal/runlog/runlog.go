package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	CommandFile = "cmd.txt"
	ConfigFile  = "config.txt"
)

// Write stores value under dir/name. Strings and byte slices are written
// as-is; anything else is written as indented JSON.
func Write(dir, name string, value any) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("runlog encode %s: %w", name, err)
		}
		data = encoded
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runlog mkdir (%s): %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("runlog write (%s): %w", path, err)
	}
	return nil
}

// Command renders argv the way it was typed.
func Command(argv []string) string {
	return strings.Join(argv, " ")
}
