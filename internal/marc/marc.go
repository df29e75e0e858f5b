// Package marc builds the MARC-ja sentiment dataset from an Amazon review dump.
//
// Reviews are labeled from their star rating, cleaned of HTML, filtered, shuffled
// with a fixed seed and split into train/valid/test JSON-lines files.
package marc

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	morph "github.com/jamesainslie/go-morph"
)

var (
	// ErrSplitRatio indicates split ratios that are negative or do not sum to 1.
	ErrSplitRatio = errors.New("marc: invalid split ratio")

	// ErrSplitLeak indicates a review id listed for one split appears in another.
	ErrSplitLeak = errors.New("marc: review id listed for another split")

	// ErrLabelConversion indicates a conversion to the label a review already has.
	ErrLabelConversion = errors.New("marc: label conversion does not change label")
)

// Column positions in the Amazon reviews TSV.
const (
	colReviewID   = 2
	colStarRating = 7
	colReviewBody = 13
)

// Labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Split names a dataset partition.
type Split string

const (
	Train Split = "train"
	Valid Split = "valid"
	Test  Split = "test"
)

// Splits lists the partitions in output order.
var Splits = []Split{Train, Valid, Test}

// Review is one dataset instance. Label is empty in the test split.
type Review struct {
	Sentence string `json:"sentence" parquet:"sentence"`
	Label    string `json:"label,omitempty" parquet:"label,optional"`
	ReviewID string `json:"review_id" parquet:"review_id"`
}

// Config holds build parameters.
type Config struct {
	OutputDir        string
	Version          string
	NormalizeWidth   bool
	MaxInstances     int // 0 means no limit
	MaxCharLength    int // runes; 0 means no limit
	PositiveNegative bool
	ASCIIThreshold   float64
	SplitRatio       [3]float64
	Seed             uint64
	OutputTestSet    bool
	Parquet          bool

	// FilterIDs drops the listed reviews from the valid or test split.
	FilterIDs map[Split]map[string]struct{}
	// LabelConversions relabels the listed reviews in the valid or test split.
	LabelConversions map[Split]map[string]string

	Logger *slog.Logger
}

// DefaultConfig returns the settings used for MARC-ja v1.0.
func DefaultConfig() Config {
	return Config{
		Version:        "1.0",
		ASCIIThreshold: DefaultASCIIThreshold,
		SplitRatio:     [3]float64{0.94, 0.03, 0.03},
		Seed:           1,
	}
}

// Result summarizes a build.
type Result struct {
	Rows    int // data rows read
	Kept    int
	Written map[Split]int
	Files   []string
}

// Label maps a star rating to a label: 4 and up positive, 2 and below negative,
// 3 neutral. ok is false for 3 when positiveNegative is set.
func Label(rating int, positiveNegative bool) (label string, ok bool) {
	switch {
	case rating >= 4:
		return Positive, true
	case rating <= 2:
		return Negative, true
	case positiveNegative:
		return "", false
	default:
		return Neutral, true
	}
}

// Build reads the review TSV from r and writes the split files into cfg.OutputDir.
func Build(ctx context.Context, r io.Reader, cfg Config) (*Result, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := validateRatio(cfg.SplitRatio); err != nil {
		return nil, err
	}
	version, err := formatVersion(cfg.Version)
	if err != nil {
		return nil, err
	}

	reviews, rows, err := readReviews(ctx, r, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info("reviews collected", "rows", rows, "kept", len(reviews))

	shuffle(reviews, cfg.Seed)
	splits := split(reviews, cfg.SplitRatio)

	res := &Result{Rows: rows, Kept: len(reviews), Written: make(map[Split]int)}
	for _, s := range Splits {
		if s == Test && !cfg.OutputTestSet {
			continue
		}
		out, err := applyLists(s, splits[s], cfg)
		if err != nil {
			return res, err
		}
		paths, err := writeSplit(ctx, cfg, s, version, out)
		if err != nil {
			return res, err
		}
		res.Written[s] = len(out)
		res.Files = append(res.Files, paths...)
		cfg.Logger.Info("split written", "split", string(s), "instances", len(out), "files", paths)
	}
	return res, nil
}

// readReviews parses, labels and filters the TSV rows. The header row is skipped.
func readReviews(ctx context.Context, r io.Reader, cfg Config) ([]Review, int, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}

	var reviews []Review
	rows := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rows, fmt.Errorf("reading row %d: %w", rows+2, err)
		}
		rows++
		if rows%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, rows, err
			}
		}

		review, ok := parseRow(row, rows, cfg)
		if !ok {
			continue
		}
		reviews = append(reviews, review)
		if cfg.MaxInstances > 0 && len(reviews) == cfg.MaxInstances {
			break
		}
	}
	return reviews, rows, nil
}

func parseRow(row []string, rowNo int, cfg Config) (Review, bool) {
	if len(row) <= colReviewBody {
		cfg.Logger.Warn("skip: short row", "row", rowNo, "fields", len(row))
		return Review{}, false
	}
	rating, err := strconv.Atoi(strings.TrimSpace(row[colStarRating]))
	if err != nil {
		cfg.Logger.Warn("skip: bad star rating", "row", rowNo, "value", row[colStarRating])
		return Review{}, false
	}
	label, ok := Label(rating, cfg.PositiveNegative)
	if !ok {
		return Review{}, false
	}

	text := StripHTML(row[colReviewBody])
	if text == "" || ASCIIRate(text) >= cfg.ASCIIThreshold {
		return Review{}, false
	}
	if cfg.MaxCharLength > 0 && utf8.RuneCountInString(text) > cfg.MaxCharLength {
		return Review{}, false
	}
	if cfg.NormalizeWidth {
		text = morph.NormalizeWidth(text)
	}
	return Review{Sentence: text, Label: label, ReviewID: row[colReviewID]}, true
}

func validateRatio(ratio [3]float64) error {
	sum := 0.0
	for _, r := range ratio {
		if r < 0 {
			return fmt.Errorf("%w: %v", ErrSplitRatio, ratio)
		}
		sum += r
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: %v sums to %g", ErrSplitRatio, ratio, sum)
	}
	return nil
}

// formatVersion renders a version number the way file names expect it: "1" and
// "1.0" both become "1.0".
func formatVersion(v string) (string, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return "", fmt.Errorf("marc: invalid version %q: %w", v, err)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func shuffle(reviews []Review, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, 0))
	rng.Shuffle(len(reviews), func(i, j int) {
		reviews[i], reviews[j] = reviews[j], reviews[i]
	})
}

// split cuts reviews at int(n*r0) and int(n*(r0+r1)); the test split gets the rest.
func split(reviews []Review, ratio [3]float64) map[Split][]Review {
	n := float64(len(reviews))
	l1 := int(n * ratio[0])
	l2 := int(n * (ratio[0] + ratio[1]))
	l2 = min(max(l2, l1), len(reviews))
	return map[Split][]Review{
		Train: reviews[:l1],
		Valid: reviews[l1:l2],
		Test:  reviews[l2:],
	}
}

// applyLists drops filtered reviews, converts listed labels and clears the test
// split's labels. Ids listed for a different split are an error.
func applyLists(s Split, reviews []Review, cfg Config) ([]Review, error) {
	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		drop := false
		for _, listed := range []Split{Valid, Test} {
			if _, ok := cfg.FilterIDs[listed][r.ReviewID]; !ok {
				continue
			}
			if listed != s {
				return nil, fmt.Errorf("%w: filter list %s has %s, found in %s", ErrSplitLeak, listed, r.ReviewID, s)
			}
			drop = true
		}
		if drop {
			continue
		}

		for _, listed := range []Split{Valid, Test} {
			label, ok := cfg.LabelConversions[listed][r.ReviewID]
			if !ok {
				continue
			}
			if listed != s {
				return nil, fmt.Errorf("%w: label list %s has %s, found in %s", ErrSplitLeak, listed, r.ReviewID, s)
			}
			if label == r.Label {
				return nil, fmt.Errorf("%w: %s is already %s", ErrLabelConversion, r.ReviewID, label)
			}
			r.Label = label
		}

		if s == Test {
			r.Label = ""
		}
		out = append(out, r)
	}
	return out, nil
}
