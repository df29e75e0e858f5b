package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

func loadDatasetsJSON(v *viper.Viper, path string) ([]Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		wrapped := make([]byte, 0, len(trimmed)+16)
		wrapped = append(wrapped, `{"datasets":`...)
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, '}')
		trimmed = wrapped
	}

	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(trimmed)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return decodeDatasets(v)
}
