package folds

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// MaxFolds is bounded by the single-digit fold<i> directory suffix.
	MaxFolds = 10

	TrainFile = "train.jsonl"
	ValFile   = "val.jsonl"
	TestFile  = "test.jsonl"
)

// Options describes one fold-generation run.
type Options struct {
	Task      string
	TrainPath string
	ValPath   string
	TestPath  string
	OutputDir string
	Folds     int
	Seed      int64

	// ValidateRecords rejects any record that is not a JSON document.
	ValidateRecords bool
	// Progress receives the "Making N folds" line when non-nil.
	Progress io.Writer
}

// FoldSet is one materialized train/val/test triple.
type FoldSet struct {
	Index int
	// Dir is the fold parent (<out>/fold<i>) handed to the search driver.
	Dir          string
	TaskDir      string
	TrainRecords int
	ValRecords   int
	BytesWritten int64
}

// Result reports the folds produced by MakeFolds, in fold order.
type Result struct {
	Task      string
	Seed      int64
	OutputDir string
	PoolSize  int
	Folds     []FoldSet
}

// Dirs returns the fold parent directories in increasing fold order.
func (r Result) Dirs() []string {
	dirs := make([]string, 0, len(r.Folds))
	for _, f := range r.Folds {
		dirs = append(dirs, f.Dir)
	}
	return dirs
}

// FoldDirName returns the directory name used for fold index i.
func FoldDirName(i int) string {
	return fmt.Sprintf("fold%d", i)
}

// Validate checks options that do not need the filesystem.
func (o Options) Validate() error {
	if o.Folds < 1 || o.Folds > MaxFolds {
		return fmt.Errorf("%w: folds=%d must be in [1, %d]", ErrConfiguration, o.Folds, MaxFolds)
	}
	task := strings.TrimSpace(o.Task)
	if task == "" {
		return fmt.Errorf("%w: task name is required", ErrConfiguration)
	}
	if task != filepath.Base(task) || task == "." || task == ".." {
		return fmt.Errorf("%w: task name %q must be a single path element", ErrConfiguration, o.Task)
	}
	for _, field := range []struct{ name, value string }{
		{"train path", o.TrainPath},
		{"val path", o.ValPath},
		{"test path", o.TestPath},
		{"output dir", o.OutputDir},
	} {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrConfiguration, field.name)
		}
	}
	return nil
}

// Shuffle permutes records in place with a PRNG seeded by seed.
func Shuffle(records []string, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
}

// Split cuts pool into k contiguous slices of floor(len/k) records. The
// remainder is absorbed by the last slice. Slices alias pool.
func Split(pool []string, k int) ([][]string, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: folds=%d must be positive", ErrConfiguration, k)
	}
	if len(pool) < k {
		return nil, fmt.Errorf("%w: %d records cannot fill %d folds", ErrInsufficientData, len(pool), k)
	}
	chunk := len(pool) / k
	slices := make([][]string, k)
	for i := 0; i < k; i++ {
		start := i * chunk
		end := start + chunk
		if i == k-1 {
			end = len(pool)
		}
		slices[i] = pool[start:end:end]
	}
	return slices, nil
}

// MakeFolds reads train and val into one pool, shuffles it with opts.Seed,
// splits it into opts.Folds slices and writes one fold directory set per
// slice. Existing fold files under opts.OutputDir are overwritten, and fold
// files for indices in [opts.Folds, MaxFolds) left by an earlier run are
// removed. Inputs that are themselves fold files of this layout are refused.
func MakeFolds(opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	task := strings.TrimSpace(opts.Task)

	train, err := readRecords(opts.TrainPath, opts.ValidateRecords)
	if err != nil {
		return Result{}, err
	}
	val, err := readRecords(opts.ValPath, opts.ValidateRecords)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(opts.TestPath); err != nil {
		return Result{}, fmt.Errorf("%w: stat %s: %w", ErrIO, opts.TestPath, err)
	}
	if err := checkInputsOutsideFolds(opts, task); err != nil {
		return Result{}, err
	}

	pool := make([]string, 0, len(train)+len(val))
	pool = append(pool, train...)
	pool = append(pool, val...)

	if opts.Progress != nil {
		fmt.Fprintf(opts.Progress, "Making %d folds out of %d total examples.\n", opts.Folds, len(pool))
	}
	log.Info().
		Str("task", task).
		Int("folds", opts.Folds).
		Int("train_records", len(train)).
		Int("val_records", len(val)).
		Int64("seed", opts.Seed).
		Msg("fold_plan")

	Shuffle(pool, opts.Seed)
	slices, err := Split(pool, opts.Folds)
	if err != nil {
		return Result{}, err
	}

	if err := ensureDir(opts.OutputDir); err != nil {
		return Result{}, err
	}
	if err := pruneStaleFolds(opts.OutputDir, task, opts.Folds); err != nil {
		return Result{}, err
	}

	result := Result{
		Task:      task,
		Seed:      opts.Seed,
		OutputDir: opts.OutputDir,
		PoolSize:  len(pool),
		Folds:     make([]FoldSet, 0, opts.Folds),
	}
	for i := range slices {
		set, err := writeFold(opts, task, i, slices)
		if err != nil {
			return Result{}, err
		}
		log.Debug().
			Int("fold", i).
			Int("train_records", set.TrainRecords).
			Int("val_records", set.ValRecords).
			Str("dir", set.TaskDir).
			Msg("fold_written")
		result.Folds = append(result.Folds, set)
	}
	return result, nil
}

func writeFold(opts Options, task string, idx int, slices [][]string) (FoldSet, error) {
	parent := filepath.Join(opts.OutputDir, FoldDirName(idx))
	taskDir := filepath.Join(parent, task)
	if err := ensureDir(taskDir); err != nil {
		return FoldSet{}, err
	}

	trainSlices := make([][]string, 0, len(slices)-1)
	trainCount := 0
	for j, s := range slices {
		if j == idx {
			continue
		}
		trainSlices = append(trainSlices, s)
		trainCount += len(s)
	}

	set := FoldSet{
		Index:        idx,
		Dir:          parent,
		TaskDir:      taskDir,
		TrainRecords: trainCount,
		ValRecords:   len(slices[idx]),
	}

	n, err := writeRecords(filepath.Join(taskDir, TrainFile), trainSlices...)
	if err != nil {
		return FoldSet{}, err
	}
	set.BytesWritten += n

	n, err = writeRecords(filepath.Join(taskDir, ValFile), slices[idx])
	if err != nil {
		return FoldSet{}, err
	}
	set.BytesWritten += n

	n, err = copyFile(opts.TestPath, filepath.Join(taskDir, TestFile))
	if err != nil {
		return FoldSet{}, err
	}
	set.BytesWritten += n
	return set, nil
}

var foldFiles = []string{TrainFile, ValFile, TestFile}

// checkInputsOutsideFolds fails when an input is one of the files this run
// would overwrite or prune, so a fold directory cannot be re-split into its
// own output tree.
func checkInputsOutsideFolds(opts Options, task string) error {
	type input struct {
		path string
		info os.FileInfo
	}
	inputs := make([]input, 0, 3)
	for _, p := range []string{opts.TrainPath, opts.ValPath, opts.TestPath} {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", ErrIO, p, err)
		}
		inputs = append(inputs, input{path: p, info: info})
	}
	for j := 0; j < MaxFolds; j++ {
		for _, name := range foldFiles {
			dst := filepath.Join(opts.OutputDir, FoldDirName(j), task, name)
			dstInfo, err := os.Stat(dst)
			if err != nil {
				continue
			}
			for _, in := range inputs {
				if os.SameFile(in.info, dstInfo) {
					return fmt.Errorf("%w: input %s is fold output %s", ErrConfiguration, in.path, dst)
				}
			}
		}
	}
	return nil
}

// pruneStaleFolds removes the fold files of indices k..MaxFolds-1. Fold and
// task directories are removed only once empty; other content is kept.
func pruneStaleFolds(outputDir, task string, k int) error {
	for j := k; j < MaxFolds; j++ {
		parent := filepath.Join(outputDir, FoldDirName(j))
		taskDir := filepath.Join(parent, task)
		removed := false
		for _, name := range foldFiles {
			path := filepath.Join(taskDir, name)
			err := os.Remove(path)
			if err == nil {
				removed = true
				continue
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: remove stale %s: %w", ErrIO, path, err)
			}
		}
		_ = os.Remove(taskDir)
		_ = os.Remove(parent)
		if removed {
			log.Debug().Int("fold", j).Str("dir", taskDir).Msg("stale_fold_removed")
		}
	}
	return nil
}
