package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/source-ingest/pkg/extractor"
)

var textCmd = &cobra.Command{
	Use:   "text [text|-]",
	Short: "Pass pasted text through unchanged",
	Long:  "Pass text given as arguments, or read from stdin with - or no arguments, straight to the output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		return runSource("Text", extractor.RawText{Content: content})
	},
}

func init() {
	rootCmd.AddCommand(textCmd)
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
