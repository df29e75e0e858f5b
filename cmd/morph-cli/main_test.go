package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestTokenize_JSONLines(t *testing.T) {
	stdout, _, err := run(t, `{"sentence":"猫だ","label":1}`+"\n",
		"tokenize", "-a", "char", "--column-names", "sentence", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, `{"sentence":"猫 だ","label":1}`+"\n", stdout)
}

func TestTokenize_EnvAnalyzer(t *testing.T) {
	t.Setenv("MORPH_ANALYZER", "char")
	stdout, _, err := run(t, "id,text\n1,雨だ\n", "tokenize", "--input-file-type", "csv", "--column-names", "text", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "id,text\n1,雨 だ\n", stdout)
}

func TestTokenize_BadFlags(t *testing.T) {
	_, _, err := run(t, "", "tokenize", "-a", "nope", "--log-level", "error")
	require.Error(t, err)

	_, _, err = run(t, "", "tokenize", "-a", "char", "--input-file-type", "xml", "--log-level", "error")
	require.Error(t, err)

	_, _, err = run(t, "", "tokenize", "-a", "char", "--log-level", "loud")
	require.Error(t, err)
}

func TestSegment(t *testing.T) {
	stdout, _, err := run(t, "", "segment", "-a", "char", "ab")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Tokenized: a b")
	assert.Contains(t, stdout, `1: "a" - [0,0]`)
	assert.Contains(t, stdout, `2: "b" - [1,1]`)
}

func TestMarc(t *testing.T) {
	header := strings.Repeat("h\t", 14) + "h"
	row := func(id, rating, body string) string {
		f := make([]string, 15)
		f[2], f[7], f[13] = id, rating, body
		return strings.Join(f, "\t")
	}
	tsv := strings.Join([]string{header, row("R1", "5", "良い"), row("R2", "1", "悪い")}, "\n") + "\n"

	dir := t.TempDir()
	_, _, err := run(t, tsv, "marc-ja", "--output-dir", dir, "--split-ratio", "1,0,0", "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "train-v1.0.json"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.NoFileExists(t, filepath.Join(dir, "test-v1.0.json"))

	_, _, err = run(t, tsv, "marc-ja", "--output-dir", dir, "--split-ratio", "0.5,0.5", "--log-level", "error")
	require.Error(t, err)
}

func TestBatch_DryRun(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "datasets.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"dirname":"jnli","input-file-type":"json","column-names":"sentence1 sentence2","train_file_basename":"train.json"}]`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "jnli"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jnli", "train.json"), []byte(`{"sentence1":"a","sentence2":"b"}`+"\n"), 0o644))

	_, _, err := run(t, "", "batch", "--datasets-json", list, "--data-dir", dir, "-A", "char", "-n", "--log-level", "error")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "jnli_char"))

	_, _, err = run(t, "", "batch", "--datasets-json", list, "--data-dir", dir, "-A", "char", "--log-level", "error")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "jnli_char", "train.json"))
}
