package prep

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	morph "github.com/jamesainslie/go-morph"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 64 << 20

// JSONLines tokenizes the configured keys of every JSON object read from r and
// writes one object per line to w. Key order and untouched values are kept as
// they appear in the input. A line that is not JSON, lacks a column, or has a
// column that does not tokenize is skipped.
func (p *Processor) JSONLines(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	out := bufio.NewWriter(w)

	lineNo := 0
	chunk := make([]jsonLine, 0, p.chunkSize)
	flush := func() error {
		s, err := p.jsonChunk(ctx, chunk, out)
		stats.Add(s)
		chunk = chunk[:0]
		return err
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunk = append(chunk, jsonLine{no: lineNo, text: line})
		if len(chunk) == p.chunkSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading json lines: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("writing json lines: %w", err)
	}
	return stats, nil
}

type jsonLine struct {
	no   int
	text string
	ok   bool
}

func (p *Processor) jsonChunk(ctx context.Context, chunk []jsonLine, out *bufio.Writer) (Stats, error) {
	err := p.each(ctx, len(chunk), func(ctx context.Context, a *morph.Analyzer, i int) {
		chunk[i].text, chunk[i].ok = p.jsonRecord(ctx, a, chunk[i].no, chunk[i].text)
	})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Records: len(chunk)}
	for _, l := range chunk {
		if !l.ok {
			stats.Skipped++
			continue
		}
		if _, err := out.WriteString(l.text + "\n"); err != nil {
			return stats, fmt.Errorf("writing json lines: %w", err)
		}
		stats.Written++
	}
	return stats, nil
}

// jsonRecord returns line with every column replaced by its tokenized string.
func (p *Processor) jsonRecord(ctx context.Context, a *morph.Analyzer, lineNo int, line string) (string, bool) {
	if !gjson.Valid(line) {
		p.logger.Warn("skip: invalid json", "line", lineNo)
		return "", false
	}

	for _, column := range p.columns {
		path := gjson.Escape(column)
		value := gjson.Get(line, path)
		if !value.Exists() {
			p.logger.Warn("skip: missing column", "line", lineNo, "column", column)
			return "", false
		}
		if value.Type != gjson.String {
			p.logger.Warn("skip: column is not a string", "line", lineNo, "column", column, "type", value.Type.String())
			return "", false
		}

		tokenized, ok := p.tokenize(ctx, a, value.String(), "line", lineNo, "column", column)
		if !ok {
			return "", false
		}

		raw, err := marshalString(tokenized)
		if err != nil {
			p.logger.Warn("skip: encoding column", "line", lineNo, "column", column, "err", err)
			return "", false
		}
		line, err = sjson.SetRaw(line, path, raw)
		if err != nil {
			p.logger.Warn("skip: updating column", "line", lineNo, "column", column, "err", err)
			return "", false
		}
	}
	return line, true
}

// marshalString encodes s as a JSON string, leaving non-ASCII text and HTML
// characters unescaped.
func marshalString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
