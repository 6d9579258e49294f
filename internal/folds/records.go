package folds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// maxRecordBytes bounds a single line; ReCoRD passages run well past the
// scanner's 64KiB default.
const maxRecordBytes = 64 << 20

// ReadRecords returns the non-blank lines of path in file order.
func ReadRecords(path string) ([]string, error) {
	return readRecords(path, false)
}

func readRecords(path string, validate bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	records := make([]string, 0, 1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if validate && !gjson.Valid(line) {
			return nil, fmt.Errorf("%w: %s:%d is not a JSON document", ErrInvalidRecord, path, lineNo)
		}
		records = append(records, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	return records, nil
}

// writeRecords writes the given slices to path in order, one record per
// line, and returns the number of bytes written.
func writeRecords(path string, slices ...[]string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	w := bufio.NewWriter(f)
	var n int64
	for _, slice := range slices {
		for _, rec := range slice {
			written, err := w.WriteString(rec)
			n += int64(written)
			if err == nil {
				err = w.WriteByte('\n')
				n++
			}
			if err != nil {
				_ = f.Close()
				return n, fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return n, fmt.Errorf("%w: flush %s: %w", ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	return n, nil
}

// copyFile copies src to dst byte for byte.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrIO, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", ErrIO, dst, err)
	}
	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, fmt.Errorf("%w: copy %s -> %s: %w", ErrIO, src, dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %w", ErrIO, dst, err)
	}
	return n, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrIO, filepath.Clean(dir), err)
	}
	return nil
}
