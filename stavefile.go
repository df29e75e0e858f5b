//go:build stave

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// binaries built from ./cmd.
var binaries = []string{"morph-cli", "morph-report"}

var Default = All

var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"c": Clean,
}

// All lints, tests and builds.
func All() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Init ensures the module dependencies are up to date.
func Init() error {
	return sh.Run("go", "mod", "tidy")
}

// Build compiles every binary into bin/.
func Build() error {
	st.Deps(Init)
	st.Deps(Build_CLI, Build_Report)
	return nil
}

// Build_CLI compiles bin/morph-cli.
func Build_CLI() error {
	return buildBinary("morph-cli")
}

// Build_Report compiles bin/morph-report.
func Build_Report() error {
	return buildBinary("morph-report")
}

// buildBinary compiles ./cmd/<name> into bin/<name> when its sources changed,
// injecting version, commit and build date.
func buildBinary(name string) error {
	out := filepath.Join("bin", name)
	rebuild, err := target.Glob(out, "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking %s: %w", name, err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Printf("%s is up to date\n", name)
		}
		return nil
	}

	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	ldflags := fmt.Sprintf("-X main.version=%s -X main.commit=%s -X main.date=%s",
		strings.TrimSpace(version), strings.TrimSpace(commit), time.Now().Format(time.RFC3339))

	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, "./cmd/"+name)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Fmt runs gofmt over the tree.
func Fmt() error {
	return sh.Run("gofmt", "-w", ".")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes bin/.
func Clean() error {
	return sh.Rm("bin")
}

// Install copies the built binaries into GOBIN (or GOPATH/bin).
func Install() error {
	st.Deps(Build)

	dir, err := sh.Output(st.GoCmd(), "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if dir == "" {
		gopath, err := sh.Output(st.GoCmd(), "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		dir = filepath.Join(gopath, "bin")
	}

	for _, name := range binaries {
		dst := filepath.Join(dir, name)
		if runtime.GOOS == "windows" {
			dst += ".exe"
		}
		if err := sh.Copy(dst, filepath.Join("bin", name)); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
	}
	return nil
}

// Data namespace for dataset preparation targets.
type Data st.Namespace

// dataEnv returns the value of an environment variable or def.
func dataEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// Tokenize runs the batch tokenizer over every dataset in the dataset list.
// MORPH_DATASETS (datasets.json), MORPH_DATA_DIR (data) and MORPH_ANALYZERS
// (jumanpp,mecab) select what is processed.
func (Data) Tokenize() error {
	st.Deps(Build_CLI)

	return sh.RunV("./bin/morph-cli", "batch",
		"--datasets-json", dataEnv("MORPH_DATASETS", "datasets.json"),
		"--data-dir", dataEnv("MORPH_DATA_DIR", "data"),
		"--morphological-analyzers", dataEnv("MORPH_ANALYZERS", "jumanpp,mecab"),
		"--parallel", dataEnv("MORPH_PARALLEL", "2"),
	)
}

// Plan prints what Tokenize would do without writing anything.
func (Data) Plan() error {
	st.Deps(Build_CLI)

	return sh.RunV("./bin/morph-cli", "batch",
		"--datasets-json", dataEnv("MORPH_DATASETS", "datasets.json"),
		"--data-dir", dataEnv("MORPH_DATA_DIR", "data"),
		"--morphological-analyzers", dataEnv("MORPH_ANALYZERS", "jumanpp,mecab"),
		"--dry-run",
	)
}

// Marc builds MARC-ja from the Amazon reviews TSV named by MORPH_MARC_TSV.
func (Data) Marc() error {
	st.Deps(Build_CLI)

	tsv := os.Getenv("MORPH_MARC_TSV")
	if tsv == "" {
		return fmt.Errorf("MORPH_MARC_TSV is not set")
	}
	in, err := os.Open(tsv)
	if err != nil {
		return fmt.Errorf("opening %s: %w", tsv, err)
	}
	defer func() { _ = in.Close() }()

	cmd := exec.Command("./bin/morph-cli", "marc-ja",
		"--output-dir", dataEnv("MORPH_MARC_DIR", "data/marc_ja-v1.0"),
		"--positive-negative",
		"--max-char-length", "500",
	)
	cmd.Stdin = in
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
