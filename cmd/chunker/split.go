package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alqutdigital/doc-chunker/internal/chunker"
)

// SplitOptions holds options for the split command.
type SplitOptions struct {
	InputFile string
	ChunkSize int
	JSON      bool
}

func newSplitCmd() *cobra.Command {
	opts := &SplitOptions{}

	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Split plain text by token budget",
		Long:  "Run the recursive splitter on plain text and print the pieces. Reads stdin when no file is given.",
		Example: `  chunker split notes.txt --chunk-size=128
  cat notes.txt | chunker split --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.InputFile = args[0]
			}
			if opts.ChunkSize <= 0 {
				return errors.New("--chunk-size must be positive")
			}

			text, err := readText(cmd.InOrStdin(), opts.InputFile)
			if err != nil {
				return err
			}
			return printPieces(cmd.OutOrStdout(), chunker.SplitRecursive(text, opts.ChunkSize), opts.JSON)
		},
	}

	cmd.Flags().IntVarP(&opts.ChunkSize, "chunk-size", "s", chunker.DefaultChunkSize, "Token budget per piece")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print pieces as a JSON array")

	return cmd
}

func readText(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func printPieces(w io.Writer, pieces []string, asJSON bool) error {
	if asJSON {
		if pieces == nil {
			pieces = []string{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(pieces)
	}

	for i, p := range pieces {
		fmt.Fprintf(w, "--- piece %d/%d (~%d tokens) ---\n%s\n", i+1, len(pieces), chunker.EstimateTokens(p), p)
	}
	return nil
}
