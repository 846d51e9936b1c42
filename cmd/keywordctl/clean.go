package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"agency_os_backend/internal/keywords/cleaning"

	"github.com/spf13/cobra"
)

type cleanOptions struct {
	brands      []string
	competitors []string
	stopwords   []string
	colors      bool
	sizes       bool
	asJSON      bool
}

func newCleanCmd() *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean [file]",
		Short: "Clean a keyword list, one keyword per line (stdin when no file or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			keywords, err := readKeywords(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			return runClean(cmd.OutOrStdout(), cmd.ErrOrStderr(), keywords, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.brands, "brand", nil, "Brand term to remove (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&opts.competitors, "competitor", nil, "Competitor term to remove (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&opts.stopwords, "stopword", nil, "Extra stopword on top of the built-in list")
	cmd.Flags().BoolVar(&opts.colors, "colors", false, "Remove keywords naming a color")
	cmd.Flags().BoolVar(&opts.sizes, "sizes", false, "Remove keywords naming a size")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

func runClean(out, errOut io.Writer, keywords []string, opts cleanOptions) error {
	result := cleaning.New().Clean(keywords, cleaning.Options{
		BrandTerms:      opts.brands,
		CompetitorTerms: opts.competitors,
		RemoveBrand:     len(opts.brands) > 0,
		RemoveColors:    opts.colors,
		RemoveSizes:     opts.sizes,
		ExtraStopwords:  opts.stopwords,
	})

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, kw := range result.Kept {
		fmt.Fprintln(out, kw)
	}
	fmt.Fprintf(errOut, "kept %d of %d keywords\n", len(result.Kept), len(keywords))
	for _, reason := range cleaning.Reasons {
		if n := result.Counts[reason]; n > 0 {
			fmt.Fprintf(errOut, "  %-10s %d\n", reason, n)
		}
	}
	return nil
}

func readKeywords(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var keywords []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return keywords, nil
}
