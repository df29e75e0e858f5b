// Package report joins model predictions with their evaluation input and renders
// a per-example TSV plus a summary.
package report

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jamesainslie/go-morph/internal/prep"
)

var (
	// ErrUnknownTask is returned for an unsupported task or classification type.
	ErrUnknownTask = errors.New("report: unknown task type")

	// ErrInputFormat is returned for input formats other than JSON lines and CSV.
	ErrInputFormat = errors.New("report: unsupported input file type")
)

// Eval strings for classification tasks.
const (
	Correct = "CORRECT"
	Wrong   = "WRONG"
)

// TaskType selects the input columns shown for each example.
type TaskType string

const (
	SingleSentence TaskType = "single-sentence"
	SentencePair   TaskType = "sentence-pair"
	Swag           TaskType = "swag"
)

// ParseTaskType validates a task type name.
func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(strings.TrimSpace(s)); t {
	case SingleSentence, SentencePair, Swag:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
}

// Columns returns the input columns for t.
func (t TaskType) Columns() []string {
	switch t {
	case SingleSentence:
		return []string{"sentence"}
	case SentencePair:
		return []string{"sentence1", "sentence2"}
	case Swag:
		return []string{"question", "choice0", "choice1", "choice2", "choice3", "choice4"}
	}
	return nil
}

// ClassificationType selects how a prediction is compared to the gold label.
type ClassificationType string

const (
	Classification ClassificationType = "classification"
	Regression     ClassificationType = "regression"
)

// ParseClassificationType validates a classification type name.
func ParseClassificationType(s string) (ClassificationType, error) {
	switch c := ClassificationType(strings.TrimSpace(s)); c {
	case Classification, Regression:
		return c, nil
	}
	return "", fmt.Errorf("%w: classification type %q", ErrUnknownTask, s)
}

// Config describes the evaluation input.
type Config struct {
	InputFormat        prep.Format
	Task               TaskType
	ClassificationType ClassificationType
	ExtraColumns       []string // shown before the task columns
	Logger             *slog.Logger
}

// DefaultConfig returns a single-sentence classification report over JSON lines.
func DefaultConfig() Config {
	return Config{
		InputFormat:        prep.JSONLines,
		Task:               SingleSentence,
		ClassificationType: Classification,
	}
}

// Header returns the report's column names.
func (c Config) Header() []string {
	columns := append([]string{}, c.ExtraColumns...)
	columns = append(columns, c.Task.Columns()...)
	return append(columns, "system", "gold", "eval")
}

// Row is one evaluated example.
type Row struct {
	Inputs []string
	System string
	Gold   string
	Eval   string

	AbsError float64 // regression only
}

// Generate writes the report TSV to w, pairing the n-th prediction with the n-th
// input record and stopping at the shorter of the two. Examples whose fields are
// missing or unparsable are skipped and logged.
func Generate(predictions, input io.Reader, w io.Writer, cfg Config) (*Summary, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Task.Columns() == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, cfg.Task)
	}
	if cfg.ClassificationType != Classification && cfg.ClassificationType != Regression {
		return nil, fmt.Errorf("%w: classification type %q", ErrUnknownTask, cfg.ClassificationType)
	}

	preds, err := newPredictionReader(predictions)
	if err != nil {
		return nil, err
	}
	records, err := newRecordReader(input, cfg.InputFormat)
	if err != nil {
		return nil, err
	}

	out := bufio.NewWriter(w)
	if _, err := out.WriteString(strings.Join(cfg.Header(), "\t") + "\n"); err != nil {
		return nil, err
	}

	summary := newSummary(cfg.ClassificationType)
	for n := 1; ; n++ {
		system, ok, err := preds.next()
		if err != nil {
			return summary, err
		}
		if !ok {
			break
		}
		rec, ok, err := records.next()
		if err != nil {
			return summary, err
		}
		if !ok {
			break
		}

		row, err := evaluate(rec, system, cfg)
		if err != nil {
			cfg.Logger.Warn("skip: example", "n", n, "err", err)
			summary.Skipped++
			continue
		}
		summary.add(row, cfg.ClassificationType)

		fields := append(row.Inputs, row.System, row.Gold, row.Eval)
		if _, err := out.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return summary, err
		}
	}
	summary.finish()

	if err := out.Flush(); err != nil {
		return summary, fmt.Errorf("writing report: %w", err)
	}
	return summary, nil
}

func evaluate(rec record, system string, cfg Config) (Row, error) {
	var row Row
	for _, column := range append(append([]string{}, cfg.ExtraColumns...), cfg.Task.Columns()...) {
		v, ok := rec.field(column)
		if !ok {
			return Row{}, fmt.Errorf("missing column %q", column)
		}
		row.Inputs = append(row.Inputs, v)
	}

	gold, ok := rec.field("label")
	if !ok {
		return Row{}, errors.New(`missing column "label"`)
	}
	row.System, row.Gold = system, gold

	switch cfg.ClassificationType {
	case Regression:
		p, err := strconv.ParseFloat(strings.TrimSpace(system), 64)
		if err != nil {
			return Row{}, fmt.Errorf("prediction %q: %w", system, err)
		}
		g, err := strconv.ParseFloat(strings.TrimSpace(gold), 64)
		if err != nil {
			return Row{}, fmt.Errorf("label %q: %w", gold, err)
		}
		row.AbsError = math.Abs(p - g)
		row.Eval = fmt.Sprintf("%.3f", row.AbsError)
	default:
		correct := system == gold
		if cfg.Task == Swag {
			p, err := strconv.Atoi(strings.TrimSpace(system))
			if err != nil {
				return Row{}, fmt.Errorf("prediction %q: %w", system, err)
			}
			g, err := strconv.Atoi(strings.TrimSpace(gold))
			if err != nil {
				return Row{}, fmt.Errorf("label %q: %w", gold, err)
			}
			correct = p == g
		}
		row.Eval = Wrong
		if correct {
			row.Eval = Correct
		}
	}
	return row, nil
}

// predictionReader yields the second column of a TSV with a header row.
type predictionReader struct {
	r   *csv.Reader
	row int
}

func newPredictionReader(r io.Reader) (*predictionReader, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading prediction header: %w", err)
	}
	return &predictionReader{r: reader, row: 1}, nil
}

func (p *predictionReader) next() (string, bool, error) {
	fields, err := p.r.Read()
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	p.row++
	if err != nil {
		return "", false, fmt.Errorf("reading predictions row %d: %w", p.row, err)
	}
	if len(fields) < 2 {
		return "", false, fmt.Errorf("predictions row %d: want at least 2 columns, got %d", p.row, len(fields))
	}
	return fields[1], true, nil
}

// record is one evaluation input example.
type record interface {
	field(name string) (string, bool)
}

// jsonRecord renders scalar values as they appear in the source: strings
// unquoted, numbers and booleans verbatim.
type jsonRecord struct{ v gjson.Result }

func (r jsonRecord) field(name string) (string, bool) {
	res := r.v.Get(gjson.Escape(name))
	if !res.Exists() {
		return "", false
	}
	if res.Type == gjson.String {
		return res.String(), true
	}
	return res.Raw, true
}

type csvRecord map[string]string

func (r csvRecord) field(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

type recordReader interface {
	next() (record, bool, error)
}

func newRecordReader(r io.Reader, format prep.Format) (recordReader, error) {
	switch format {
	case prep.JSONLines:
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 64<<20)
		return &jsonReader{s: scanner}, nil
	case prep.CSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		header, err := reader.Read()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading input header: %w", err)
		}
		return &csvReader{r: reader, header: header}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInputFormat, format)
}

type jsonReader struct {
	s    *bufio.Scanner
	line int
}

func (j *jsonReader) next() (record, bool, error) {
	for j.s.Scan() {
		j.line++
		line := j.s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, false, fmt.Errorf("input line %d: invalid json", j.line)
		}
		return jsonRecord{v: gjson.Parse(line)}, true, nil
	}
	if err := j.s.Err(); err != nil {
		return nil, false, fmt.Errorf("reading input: %w", err)
	}
	return nil, false, nil
}

type csvReader struct {
	r      *csv.Reader
	header []string
}

func (c *csvReader) next() (record, bool, error) {
	if c.header == nil {
		return nil, false, nil
	}
	fields, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading input: %w", err)
	}
	rec := make(csvRecord, len(c.header))
	for i, name := range c.header {
		if i < len(fields) {
			rec[name] = fields[i]
		}
	}
	return rec, true, nil
}
