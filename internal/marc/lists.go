package marc

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
)

// LoadFilterList reads review ids, one per line. Blank lines are ignored.
func LoadFilterList(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening filter list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRightFunc(scanner.Text(), isSpace))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading filter list %s: %w", path, err)
	}

	ids := lo.Compact(lines)
	return lo.SliceToMap(ids, func(id string) (string, struct{}) {
		return id, struct{}{}
	}), nil
}

// LoadLabelConversions reads "review_id,label" CSV rows.
func LoadLabelConversions(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening label conversion list: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	conv := make(map[string]string)
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return conv, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading label conversion list %s: %w", path, err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("label conversion list %s line %d: want review_id,label", path, line)
		}
		conv[row[0]] = row[1]
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}
