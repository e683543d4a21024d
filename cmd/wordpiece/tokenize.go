package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/example/go-wordpiece/internal/text"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Segment text with a trained unit table",
		Long: "Segment --text, or every line of stdin when --text is omitted, " +
			"and print one tokenized line per input line.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			enc, err := loadEncoder(cfg)
			if err != nil {
				return err
			}

			form := cfg.NormalizeForm()
			w := cmd.OutOrStdout()

			if cmd.Flags().Changed("text") {
				s, err := text.Normalize(input)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, enc.Tokenize(form.Apply(s)))
				return err
			}

			return tokenizeLines(cmd.InOrStdin(), w, func(line string) string {
				return enc.Tokenize(form.Apply(line))
			})
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to tokenize (reads stdin lines when omitted)")

	return cmd
}

// tokenizeLines writes tokenize(line) for every line of r.
func tokenizeLines(r io.Reader, w io.Writer, tokenize func(string) string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	bw := bufio.NewWriter(w)
	for sc.Scan() {
		if _, err := fmt.Fprintln(bw, tokenize(sc.Text())); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	return bw.Flush()
}
