package prep

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	morph "github.com/jamesainslie/go-morph"
)

// CSV tokenizes the configured columns of a CSV stream with a header row. The
// header is echoed first; a row whose column fails to tokenize is skipped.
func (p *Processor) CSV(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(w)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("reading csv header: %w", err)
	}

	indices, err := columnIndices(header, p.columns)
	if err != nil {
		return stats, err
	}
	if err := writer.Write(header); err != nil {
		return stats, fmt.Errorf("writing csv header: %w", err)
	}

	rowNo := 1
	chunk := make([]csvRow, 0, p.chunkSize)
	flush := func() error {
		s, err := p.csvChunk(ctx, chunk, indices, writer)
		stats.Add(s)
		chunk = chunk[:0]
		return err
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNo++
		if err != nil {
			return stats, fmt.Errorf("reading csv row %d: %w", rowNo, err)
		}
		chunk = append(chunk, csvRow{no: rowNo, fields: fields})
		if len(chunk) == p.chunkSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return stats, fmt.Errorf("writing csv: %w", err)
	}
	return stats, nil
}

type csvRow struct {
	no     int
	fields []string
	ok     bool
}

func (p *Processor) csvChunk(ctx context.Context, chunk []csvRow, indices map[string]int, writer *csv.Writer) (Stats, error) {
	err := p.each(ctx, len(chunk), func(ctx context.Context, a *morph.Analyzer, i int) {
		chunk[i].ok = p.csvRecord(ctx, a, &chunk[i], indices)
	})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Records: len(chunk)}
	for _, row := range chunk {
		if !row.ok {
			stats.Skipped++
			continue
		}
		if err := writer.Write(row.fields); err != nil {
			return stats, fmt.Errorf("writing csv row %d: %w", row.no, err)
		}
		stats.Written++
	}
	return stats, nil
}

func (p *Processor) csvRecord(ctx context.Context, a *morph.Analyzer, row *csvRow, indices map[string]int) bool {
	for _, column := range p.columns {
		idx := indices[column]
		if idx >= len(row.fields) {
			p.logger.Warn("skip: missing column", "row", row.no, "column", column)
			return false
		}
		tokenized, ok := p.tokenize(ctx, a, row.fields[idx], "row", row.no, "column", column)
		if !ok {
			return false
		}
		row.fields[idx] = tokenized
	}
	return true
}

// columnIndices resolves column names against header.
func columnIndices(header, columns []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	indices := make(map[string]int, len(columns))
	for _, column := range columns {
		idx, ok := positions[column]
		if !ok {
			return nil, fmt.Errorf("%w: %q not in header", ErrUnknownColumn, column)
		}
		indices[column] = idx
	}
	return indices, nil
}
