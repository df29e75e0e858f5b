// Package batch tokenizes every split of every configured dataset with every
// requested analyzer.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	morph "github.com/jamesainslie/go-morph"
	"github.com/jamesainslie/go-morph/internal/config"
	"github.com/jamesainslie/go-morph/internal/files"
	"github.com/jamesainslie/go-morph/internal/prep"
	"github.com/jamesainslie/go-morph/pool"
	"github.com/jamesainslie/go-morph/tokenizer"
)

// ErrJobsFailed is returned by Run when at least one job failed.
var ErrJobsFailed = errors.New("batch: jobs failed")

// AnalyzerFactory builds one analyzer of the given kind.
type AnalyzerFactory func(kind tokenizer.Kind) (*morph.Analyzer, error)

// Config describes a batch run.
type Config struct {
	DataDir   string
	Datasets  []config.Dataset
	Analyzers []tokenizer.Kind
	Parallel  int // concurrent jobs
	Workers   int // analyzers per job
	DryRun    bool

	NewAnalyzer AnalyzerFactory
	Logger      *slog.Logger
}

// Job tokenizes one dataset with one analyzer.
type Job struct {
	Dataset   config.Dataset
	Format    prep.Format
	Kind      tokenizer.Kind
	InputDir  string
	OutputDir string
}

// Result is the outcome of a Job.
type Result struct {
	Job     Job
	Stats   prep.Stats
	Written []string
	Missing []string
	Err     error
}

// Report collects the results of a run in plan order.
type Report struct {
	RunID   string
	Results []Result
}

// Failed returns the results that ended in an error.
func (r *Report) Failed() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool {
		return res.Err != nil
	})
}

// Plan expands datasets × analyzers into jobs. The output directory of a job is
// <data dir>/<dirname>_<analyzer>.
func Plan(cfg Config) ([]Job, error) {
	var jobs []Job
	for _, d := range cfg.Datasets {
		format, err := prep.ParseFormat(d.InputFileType)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Dirname, err)
		}
		for _, kind := range cfg.Analyzers {
			jobs = append(jobs, Job{
				Dataset:   d,
				Format:    format,
				Kind:      kind,
				InputDir:  filepath.Join(cfg.DataDir, d.Dirname),
				OutputDir: filepath.Join(cfg.DataDir, fmt.Sprintf("%s_%s", d.Dirname, kind)),
			})
		}
	}
	return jobs, nil
}

// Run executes the plan. A failing job does not stop the others; Run returns
// ErrJobsFailed alongside the full report when any job failed.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewAnalyzer == nil {
		cfg.NewAnalyzer = func(kind tokenizer.Kind) (*morph.Analyzer, error) {
			return morph.New(kind)
		}
	}
	cfg.Parallel = max(cfg.Parallel, 1)
	cfg.Workers = max(cfg.Workers, 1)

	jobs, err := Plan(cfg)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Results: make([]Result, len(jobs))}
	logger := cfg.Logger.With("run", report.RunID)
	logger.Info("batch started", "jobs", len(jobs), "parallel", cfg.Parallel, "dry_run", cfg.DryRun)

	var g errgroup.Group
	g.SetLimit(cfg.Parallel)
	for i, job := range jobs {
		g.Go(func() error {
			jobLogger := logger.With("dataset", job.Dataset.Dirname, "analyzer", job.Kind.String())
			res := runJob(ctx, cfg, job, jobLogger)
			if res.Err != nil {
				jobLogger.Error("job failed", "err", res.Err)
			} else {
				jobLogger.Info("job finished", "stats", res.Stats, "files", len(res.Written))
			}
			report.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if failed := report.Failed(); len(failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrJobsFailed, len(failed), len(jobs))
	}
	return report, nil
}

func runJob(ctx context.Context, cfg Config, job Job, logger *slog.Logger) Result {
	res := Result{Job: job}

	var present []string
	for _, base := range job.Dataset.Basenames() {
		in := filepath.Join(job.InputDir, base)
		if !files.Exists(in) {
			logger.Warn("split file missing, skipping", "path", in)
			res.Missing = append(res.Missing, in)
			continue
		}
		present = append(present, base)
	}

	if cfg.DryRun {
		for _, base := range present {
			logger.Info("would tokenize", "in", filepath.Join(job.InputDir, base), "out", filepath.Join(job.OutputDir, base))
		}
		return res
	}
	if len(present) == 0 {
		return res
	}

	analyzers, err := pool.New(cfg.Workers, func() (*morph.Analyzer, error) {
		return cfg.NewAnalyzer(job.Kind)
	})
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := analyzers.Close(); err != nil {
			logger.Warn("closing analyzers", "err", err)
		}
	}()

	proc := prep.New(analyzers,
		prep.WithColumns(job.Dataset.Columns()...),
		prep.WithLogger(logger),
	)

	for _, base := range present {
		in := filepath.Join(job.InputDir, base)
		out := filepath.Join(job.OutputDir, base)
		stats, err := tokenizeFile(ctx, proc, job.Format, in, out)
		res.Stats.Add(stats)
		if err != nil {
			res.Err = fmt.Errorf("%s: %w", in, err)
			return res
		}
		res.Written = append(res.Written, out)
	}
	return res
}

func tokenizeFile(ctx context.Context, proc *prep.Processor, format prep.Format, in, out string) (prep.Stats, error) {
	f, err := os.Open(in)
	if err != nil {
		return prep.Stats{}, err
	}
	defer func() { _ = f.Close() }()

	var stats prep.Stats
	err = files.WriteAtomic(ctx, out, func(w io.Writer) error {
		var err error
		stats, err = proc.Process(ctx, format, f, w)
		return err
	})
	return stats, err
}
