package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-morph/tokenizer"
)

func newSegmentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "segment TEXT...",
		Short: "Print the tokens of TEXT with their offsets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := tokenizer.ParseKind(a.cfg.Analyzer)
			if err != nil {
				return err
			}
			analyzer, err := a.newAnalyzer(kind)
			if err != nil {
				return err
			}
			defer func() { _ = analyzer.Close() }() // Cleanup error ignored in CLI

			text := strings.Join(args, " ")
			tokens, err := analyzer.Segment(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Text: %q\n", text)
			fmt.Fprintf(out, "Tokenized: %s\n", tokenizer.Join(tokens))
			fmt.Fprintf(out, "Tokens (%d):\n", len(tokens))
			for i, t := range tokens {
				pos := t.POS
				if pos == "" {
					pos = "-"
				}
				fmt.Fprintf(out, "  %d: %q %s [%d,%d]\n", i+1, t.Surface, pos, t.Start, t.End)
			}
			return nil
		},
	}
}
