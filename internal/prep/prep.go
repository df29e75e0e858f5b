// Package prep re-formats dataset records through a morphological analyzer.
//
// Three input layouts are supported: JSON lines, CSV with a header row, and
// SQuAD-style QA documents. Fields are replaced in place by their tokenized form.
// Failures that concern a single field, row or answer are logged and counted in
// Stats; only configuration and I/O problems are returned as errors.
package prep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	morph "github.com/jamesainslie/go-morph"
	"github.com/jamesainslie/go-morph/pool"
)

// DefaultChunkSize is the number of records read before a parallel pass.
const DefaultChunkSize = 256

var (
	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("prep: unknown input file type")

	// ErrUnknownColumn indicates a configured column is absent from a CSV header.
	ErrUnknownColumn = errors.New("prep: unknown column")

	// ErrNoDocument indicates a SQuAD stream with no JSON document in it.
	ErrNoDocument = errors.New("prep: no document in input")
)

// Format is an input file layout.
type Format int

const (
	// JSONLines is one JSON object per line.
	JSONLines Format = iota
	// CSV is comma-separated values with a header row.
	CSV
	// SQuAD is a SQuAD-style QA document.
	SQuAD
)

var formatNames = map[Format]string{
	JSONLines: "json",
	CSV:       "csv",
	SQuAD:     "squad_json",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps an input-file-type name ("json", "csv", "squad_json").
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Stats counts what a run did. Answers, Relocated and Dropped only move for SQuAD.
type Stats struct {
	Records   int // rows, lines or questions read
	Written   int
	Skipped   int
	Answers   int
	Relocated int
	Dropped   int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Records += o.Records
	s.Written += o.Written
	s.Skipped += o.Skipped
	s.Answers += o.Answers
	s.Relocated += o.Relocated
	s.Dropped += o.Dropped
}

// LogValue renders Stats as a slog group.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("records", s.Records),
		slog.Int("written", s.Written),
		slog.Int("skipped", s.Skipped),
		slog.Int("answers", s.Answers),
		slog.Int("relocated", s.Relocated),
		slog.Int("dropped", s.Dropped),
	)
}

// Option configures a Processor.
type Option func(*Processor)

// WithColumns sets the JSON keys or CSV header names to tokenize.
func WithColumns(columns ...string) Option {
	return func(p *Processor) {
		p.columns = columns
	}
}

// WithChunkSize sets how many records are buffered per parallel pass.
func WithChunkSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Processor tokenizes records with analyzers drawn from a pool. Records are
// processed concurrently, up to the pool size, and written in input order.
type Processor struct {
	pool      *pool.Pool[*morph.Analyzer]
	columns   []string
	chunkSize int
	logger    *slog.Logger
}

// New returns a Processor drawing analyzers from analyzers. The pool stays owned
// by the caller.
func New(analyzers *pool.Pool[*morph.Analyzer], opts ...Option) *Processor {
	p := &Processor{
		pool:      analyzers,
		chunkSize: DefaultChunkSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process dispatches on format.
func (p *Processor) Process(ctx context.Context, format Format, r io.Reader, w io.Writer) (Stats, error) {
	switch format {
	case JSONLines:
		return p.JSONLines(ctx, r, w)
	case CSV:
		return p.CSV(ctx, r, w)
	case SQuAD:
		return p.SQuAD(ctx, r, w)
	default:
		return Stats{}, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// each calls fn for i in [0,n) with a pooled analyzer, running as many calls at
// once as the pool has analyzers. It fails only if an analyzer cannot be acquired.
func (p *Processor) each(ctx context.Context, n int, fn func(ctx context.Context, a *morph.Analyzer, i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.pool.Size())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			a, err := p.pool.Acquire(ctx)
			if err != nil {
				return err
			}
			defer p.pool.Release(a)
			fn(ctx, a, i)
			return nil
		})
	}
	return g.Wait()
}

// tokenize returns the tokenized form of text. ok is false, with the reason
// logged, when the field must be skipped.
func (p *Processor) tokenize(ctx context.Context, a *morph.Analyzer, text string, attrs ...any) (string, bool) {
	tokenized, ok, err := a.TokenizedString(ctx, text)
	switch {
	case err != nil:
		p.logger.Warn("skip: tokenization error", append(attrs, "err", err)...)
		return "", false
	case !ok:
		p.logger.Warn("skip: no tokens", append(attrs, "text", text)...)
		return "", false
	}
	return tokenized, true
}
