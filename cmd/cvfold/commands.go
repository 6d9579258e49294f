package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/cvfold/internal/config"
	"github.com/danmuck/cvfold/internal/folds"
	"github.com/danmuck/cvfold/internal/manifest"
	"github.com/danmuck/cvfold/internal/observability"
	"github.com/danmuck/cvfold/internal/runlog"
	"github.com/danmuck/cvfold/internal/scoring"
	"github.com/danmuck/cvfold/internal/search"
	"github.com/danmuck/cvfold/internal/tasks"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errVerifyFailed = errors.New("verify: fold files differ from manifest")

// newRootCmd builds the command tree. argv is the process command line as
// typed; make records it in cmd.txt.
func newRootCmd(stdout, stderr io.Writer, getenv func(string) string, argv []string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cvfold",
		Short: "Prepare k-fold cross-validation splits for SuperGLUE tasks",
		Long: `cvfold merges a task's train and val records, shuffles them with a fixed
seed and writes k fold directories (<cv_dir>/fold<i>/<task>/{train,val,test}.jsonl)
that a hyperparameter search can use as its data_dir dimension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newMakeCmd(getenv, argv),
		newScoreCmd(),
		newTasksCmd(),
		newConfigCmd(),
		newVerifyCmd(),
	)
	return root
}

func newMakeCmd(getenv func(string) string, argv []string) *cobra.Command {
	var (
		configPath string
		flagCfg    = config.DefaultRunConfig()
	)
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Write k fold directory sets for one task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultRunConfig()
			if configPath != "" {
				if err := loadRunConfig(configPath, &cfg); err != nil {
					return fmt.Errorf("%w: %w", folds.ErrConfiguration, err)
				}
			}
			applyChangedFlags(cmd, flagCfg, &cfg)
			if err := config.ResolveDataDir(&cfg, getenv); err != nil {
				return err
			}
			if err := config.ValidateRunConfig(cfg); err != nil {
				return err
			}
			return runMake(cmd.Context(), cfg, argv, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "run config TOML file")
	f.StringVar(&flagCfg.Task, "task_name", "", "task name, e.g. WiC")
	f.StringVar(&flagCfg.CVDir, "cv_dir", "", "output directory for the folds")
	f.StringVar(&flagCfg.DataDir, "data_dir", "", "SuperGLUE data root (default $"+config.EnvDataDir+")")
	f.Int64Var(&flagCfg.Seed, "seed", config.DefaultSeed, "shuffle seed")
	f.IntVar(&flagCfg.Folds, "folds", config.DefaultFolds, fmt.Sprintf("number of folds (1-%d)", folds.MaxFolds))
	f.StringVar(&flagCfg.TasksFile, "tasks_file", "", "TOML task table overriding the built-in filenames")
	f.BoolVar(&flagCfg.Validate, "validate", false, "reject records that are not JSON documents")
	f.BoolVar(&flagCfg.Manifest, "manifest", true, "write "+manifest.FileName+" with file digests")
	f.BoolVar(&flagCfg.SearchSpace, "search_space", true, "write "+search.FileName+" listing the fold dirs")
	f.StringVar(&flagCfg.Pushgateway, "pushgateway", "", "Prometheus Pushgateway URL for run metrics")
	return cmd
}

// applyChangedFlags copies explicitly set flags over file and default values.
func applyChangedFlags(cmd *cobra.Command, from config.RunConfig, to *config.RunConfig) {
	changed := cmd.Flags().Changed
	if changed("task_name") {
		to.Task = from.Task
	}
	if changed("cv_dir") {
		to.CVDir = from.CVDir
	}
	if changed("data_dir") {
		to.DataDir = from.DataDir
	}
	if changed("seed") {
		to.Seed = from.Seed
	}
	if changed("folds") {
		to.Folds = from.Folds
	}
	if changed("tasks_file") {
		to.TasksFile = from.TasksFile
	}
	if changed("validate") {
		to.Validate = from.Validate
	}
	if changed("manifest") {
		to.Manifest = from.Manifest
	}
	if changed("search_space") {
		to.SearchSpace = from.SearchSpace
	}
	if changed("pushgateway") {
		to.Pushgateway = from.Pushgateway
	}
}

func loadRegistry(path string) (*tasks.Registry, error) {
	reg := tasks.SuperGLUE()
	if path == "" {
		return reg, nil
	}
	file, err := config.LoadTasksFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", folds.ErrConfiguration, err)
	}
	if err := config.ApplyTasks(reg, file); err != nil {
		return nil, fmt.Errorf("%w: %w", folds.ErrConfiguration, err)
	}
	return reg, nil
}

func runMake(ctx context.Context, cfg config.RunConfig, argv []string, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	reg, err := loadRegistry(cfg.TasksFile)
	if err != nil {
		return err
	}
	paths, err := reg.Paths(cfg.DataDir, cfg.Task)
	if err != nil {
		return fmt.Errorf("%w: %w", folds.ErrConfiguration, err)
	}

	res, err := folds.MakeFolds(folds.Options{
		Task:            cfg.Task,
		TrainPath:       paths.Train,
		ValPath:         paths.Val,
		TestPath:        paths.Test,
		OutputDir:       cfg.CVDir,
		Folds:           cfg.Folds,
		Seed:            cfg.Seed,
		ValidateRecords: cfg.Validate,
		Progress:        stdout,
	})
	if err != nil {
		observability.RecordFailure(time.Since(start))
		pushMetrics(ctx, cfg)
		return err
	}

	if cfg.Manifest {
		m, err := manifest.Build(res)
		if err != nil {
			return err
		}
		if err := manifest.Write(cfg.CVDir, m); err != nil {
			return err
		}
		log.Info().Str("run_id", m.RunID).Str("path", filepath.Join(cfg.CVDir, manifest.FileName)).Msg("manifest_written")
	}
	if cfg.SearchSpace {
		space, err := search.NewSpace(cfg.Task, res.Dirs())
		if err != nil {
			return err
		}
		if err := search.Write(filepath.Join(cfg.CVDir, search.FileName), space); err != nil {
			return err
		}
	}
	if err := runlog.Write(cfg.CVDir, runlog.CommandFile, runlog.Command(argv)); err != nil {
		return err
	}
	if err := runlog.Write(cfg.CVDir, runlog.ConfigFile, cfg); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Data directories for search.py:")
	var written int64
	for _, set := range res.Folds {
		fmt.Fprintln(stdout, set.Dir)
		written += set.BytesWritten
	}

	observability.RecordRun(len(res.Folds), res.PoolSize, written, time.Since(start))
	pushMetrics(ctx, cfg)
	log.Info().
		Str("task", cfg.Task).
		Int("folds", len(res.Folds)).
		Int("pool", res.PoolSize).
		Dur("elapsed", time.Since(start)).
		Msg("folds_ready")
	return nil
}

// pushMetrics never fails the run; the folds on disk are the result.
func pushMetrics(ctx context.Context, cfg config.RunConfig) {
	if cfg.Pushgateway == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := observability.Push(ctx, cfg.Pushgateway, cfg.Task); err != nil {
		log.Warn().Err(err).Msg("metrics_push_failed")
	}
}

func newScoreCmd() *cobra.Command {
	var (
		metricsPath string
		split       string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the SuperGLUE aggregate from a metrics JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsPath == "" {
				return fmt.Errorf("%w: --metrics is required", folds.ErrConfiguration)
			}
			metrics, err := scoring.LoadMetrics(metricsPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range scoring.MetricNames(split) {
				if v, ok := metrics[name]; ok {
					fmt.Fprintf(out, "%s\t%.4f\n", name, v)
				}
			}
			fmt.Fprintf(out, "model/SuperGLUE/%s/score\t%.4f\n", split, scoring.Score(metrics, split))
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "metrics JSON file (metrics.txt or best_metrics.txt)")
	cmd.Flags().StringVar(&split, "split", "val", "split whose metrics are aggregated")
	return cmd
}

func newTasksCmd() *cobra.Command {
	var tasksFile string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List known tasks and their split filenames",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(tasksFile)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tTRAIN\tVAL\tTEST")
			for _, name := range reg.Names() {
				s, err := reg.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, s.Train, s.Val, s.Test)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tasksFile, "tasks_file", "", "TOML task table overriding the built-in filenames")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var (
		kind   string
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write a run or tasks config template",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := output
			if target == "" {
				target = strings.ToLower(strings.TrimSpace(kind)) + ".toml"
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s config template to %s\n", kind, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "run", "config kind: run|tasks")
	cmd.Flags().StringVar(&output, "output", "", "output path (default <kind>.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var cvDir string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check fold files against " + manifest.FileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cvDir == "" {
				return fmt.Errorf("%w: --cv_dir is required", folds.ErrConfiguration)
			}
			mismatches, err := manifest.Verify(cvDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range mismatches {
				fmt.Fprintln(out, m.String())
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("%w: %d file(s)", errVerifyFailed, len(mismatches))
			}
			fmt.Fprintf(out, "ok: %s matches %s\n", cvDir, manifest.FileName)
			return nil
		},
	}
	cmd.Flags().StringVar(&cvDir, "cv_dir", "", "fold output directory containing "+manifest.FileName)
	return cmd
}
