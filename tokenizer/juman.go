package tokenizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// jumanEOS terminates the analysis of one input line.
const jumanEOS = "EOS"

// jumanBackend drives a long-running juman or jumanpp process over stdin/stdout.
// Input is fed one line at a time; the process answers with one morpheme per line
// followed by "EOS".
type jumanBackend struct {
	command string
	logger  *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closed bool
}

func newJuman(kind Kind, cfg Config) *jumanBackend {
	command := cfg.Command
	if command == "" {
		command = kind.String()
	}
	return &jumanBackend{command: command, logger: cfg.Logger}
}

// start launches the analyzer process if it is not running.
func (b *jumanBackend) start() error {
	if b.cmd != nil {
		return nil
	}

	cmd := exec.Command(b.command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %w", ErrBackend, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %w", ErrBackend, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: starting %s: %w", ErrBackend, b.command, err)
	}

	b.logger.Debug("analyzer process started", "command", b.command, "pid", cmd.Process.Pid)
	b.cmd = cmd
	b.stdin = stdin
	b.stdout = bufio.NewReader(stdout)
	return nil
}

// stop terminates the analyzer process. The next Tokenize call restarts it.
func (b *jumanBackend) stop() error {
	if b.cmd == nil {
		return nil
	}

	_ = b.stdin.Close()
	err := b.cmd.Wait()
	b.cmd, b.stdin, b.stdout = nil, nil, nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero exit after closing stdin is the analyzer's business, not ours.
		b.logger.Debug("analyzer process exited", "command", b.command, "err", err)
		return nil
	}
	return err
}

func (b *jumanBackend) Tokenize(ctx context.Context, text string) ([]Token, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if err := validate(text); err != nil {
		return nil, err
	}

	loc := newLocator(text)
	var tokens []Token

	// The analyzer is line oriented, so each line is analyzed on its own and
	// newlines never reach it. Surfaces must come from the line they answer.
	for _, raw := range strings.SplitAfter(text, "\n") {
		line := strings.TrimRight(raw, "\r\n")
		lineEnd := loc.bytePos + len(raw)
		if !isBlank(line) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lineTokens, err := b.tokenizeLine(loc, line, lineEnd)
			if err != nil {
				_ = b.stop()
				return nil, err
			}
			tokens = append(tokens, lineTokens...)
		}
		if err := loc.skip(lineEnd - loc.bytePos); err != nil {
			_ = b.stop()
			return nil, err
		}
	}

	return tokens, nil
}

// tokenizeLine analyzes one line and locates its morphemes within
// text[loc.bytePos:lineEnd].
func (b *jumanBackend) tokenizeLine(loc *locator, line string, lineEnd int) ([]Token, error) {
	morphemes, err := b.analyze(line)
	if err != nil {
		return nil, err
	}

	loc.bound(lineEnd)
	defer loc.bound(-1)

	tokens := make([]Token, 0, len(morphemes))
	for _, m := range morphemes {
		if isBlank(m.Surface) {
			continue
		}
		start, end, err := loc.next(m.Surface)
		if err != nil {
			return nil, err
		}
		m.Start, m.End = start, end
		tokens = append(tokens, m)
	}
	return tokens, nil
}

// analyze sends one line to the process and parses its response up to EOS.
func (b *jumanBackend) analyze(line string) ([]Token, error) {
	if err := b.start(); err != nil {
		return nil, err
	}

	if _, err := io.WriteString(b.stdin, line+"\n"); err != nil {
		return nil, fmt.Errorf("%w: writing to %s: %w", ErrBackend, b.command, err)
	}

	var morphemes []Token
	for {
		resp, err := b.stdout.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: reading from %s: %w", ErrBackend, b.command, err)
		}
		resp = strings.TrimRight(resp, "\r\n")

		switch {
		case resp == jumanEOS:
			return morphemes, nil
		case resp == "":
			continue
		case (strings.HasPrefix(resp, "@ ") || strings.HasPrefix(resp, "# ")) && !isJumanMorpheme(resp):
			// alternative reading or jumanpp sentence comment
			continue
		}

		m, err := parseJumanLine(resp)
		if err != nil {
			return nil, err
		}
		morphemes = append(morphemes, m)
	}
}

// isJumanMorpheme reports whether a line starting with "@ " or "# " is the
// morpheme for that character ("@ @ @ 特殊 1 記号 5 * 0 * 0") rather than an
// alternative reading or a comment. A morpheme has its numeric POS id in the
// fifth field; an alternative line is shifted one field right by its leading "@".
func isJumanMorpheme(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return false
	}
	_, err := strconv.Atoi(fields[4])
	return err == nil
}

// parseJumanLine extracts the surface (field 1) and part of speech (field 4) of a
// JUMAN lattice line. An escaped space "\ " is the surface of a whitespace morpheme.
func parseJumanLine(line string) (Token, error) {
	if rest, ok := strings.CutPrefix(line, `\  `); ok {
		fields := strings.Fields(rest)
		var pos string
		if len(fields) >= 3 {
			pos = fields[2]
		}
		return Token{Surface: " ", POS: pos}, nil
	}

	fields := strings.Split(line, " ")
	if len(fields) < 4 || fields[0] == "" {
		return Token{}, fmt.Errorf("%w: malformed analyzer line %q", ErrBackend, line)
	}
	return Token{Surface: fields[0], POS: fields[3]}, nil
}

func (b *jumanBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.stop()
}
