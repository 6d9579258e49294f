// Package manifest records what a fold run produced so the output directory
// can be verified later without re-running the split.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/danmuck/cvfold/internal/folds"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

const FileName = "manifest.toml"

var (
	ErrNotFound = errors.New("manifest: not found")
	ErrCorrupt  = errors.New("manifest: corrupt")
)

type File struct {
	Name    string `toml:"name"`
	Records int    `toml:"records"`
	Bytes   int64  `toml:"bytes"`
	XXHash  string `toml:"xxhash"`
}

type Fold struct {
	Index int `toml:"index"`
	// Dir is relative to the manifest's directory.
	Dir   string `toml:"dir"`
	Files []File `toml:"files"`
}

type Manifest struct {
	RunID     string    `toml:"run_id"`
	Task      string    `toml:"task"`
	Seed      int64     `toml:"seed"`
	FoldCount int       `toml:"folds"`
	PoolSize  int       `toml:"pool_size"`
	CreatedAt time.Time `toml:"created_at"`
	Folds     []Fold    `toml:"fold"`
}

// Mismatch describes one file whose on-disk state differs from the manifest.
type Mismatch struct {
	Fold int
	File string
	Want string
	Got  string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("fold%d/%s: want %s got %s", m.Fold, m.File, m.Want, m.Got)
}

// Build digests every file of res and returns its manifest.
func Build(res folds.Result) (Manifest, error) {
	m := Manifest{
		RunID:     uuid.NewString(),
		Task:      res.Task,
		Seed:      res.Seed,
		FoldCount: len(res.Folds),
		PoolSize:  res.PoolSize,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Folds:     make([]Fold, 0, len(res.Folds)),
	}
	for _, set := range res.Folds {
		rel, err := filepath.Rel(res.OutputDir, set.TaskDir)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest: fold%d dir: %w", set.Index, err)
		}
		fold := Fold{Index: set.Index, Dir: filepath.ToSlash(rel)}
		counts := map[string]int{
			folds.TrainFile: set.TrainRecords,
			folds.ValFile:   set.ValRecords,
		}
		for _, name := range []string{folds.TrainFile, folds.ValFile, folds.TestFile} {
			path := filepath.Join(set.TaskDir, name)
			sum, size, err := digestFile(path)
			if err != nil {
				return Manifest{}, err
			}
			records, ok := counts[name]
			if !ok {
				recs, err := folds.ReadRecords(path)
				if err != nil {
					return Manifest{}, err
				}
				records = len(recs)
			}
			fold.Files = append(fold.Files, File{Name: name, Records: records, Bytes: size, XXHash: sum})
		}
		m.Folds = append(m.Folds, fold)
	}
	return m, nil
}

// Write stores m as dir/manifest.toml.
func Write(dir string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest encode: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest write (%s): %w", path, err)
	}
	return nil
}

// Load reads dir/manifest.toml.
func Load(dir string) (Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Manifest{}, fmt.Errorf("manifest load (%s): %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if m.FoldCount != len(m.Folds) {
		return Manifest{}, fmt.Errorf("%w: %s lists %d folds, declares %d", ErrCorrupt, path, len(m.Folds), m.FoldCount)
	}
	return m, nil
}

// Verify recomputes the digests under dir and reports every file that no
// longer matches the manifest.
func Verify(dir string) ([]Mismatch, error) {
	m, err := Load(dir)
	if err != nil {
		return nil, err
	}
	var out []Mismatch
	for _, fold := range m.Folds {
		for _, f := range fold.Files {
			path := filepath.Join(dir, filepath.FromSlash(fold.Dir), f.Name)
			sum, _, err := digestFile(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					out = append(out, Mismatch{Fold: fold.Index, File: f.Name, Want: f.XXHash, Got: "missing"})
					continue
				}
				return nil, err
			}
			if sum != f.XXHash {
				out = append(out, Mismatch{Fold: fold.Index, File: f.Name, Want: f.XXHash, Got: sum})
			}
		}
	}
	return out, nil
}

func digestFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("manifest digest (%s): %w", path, err)
	}
	defer f.Close()
	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", n, fmt.Errorf("manifest digest (%s): %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), n, nil
}
