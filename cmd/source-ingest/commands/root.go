// Package commands implements the source-ingest CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/source-ingest/cmd/source-ingest/ui"
)

var (
	cfgFile     string
	verbose     bool
	noColor     bool
	outputPath  string
	metricsFile string
	caller      string
)

var rootCmd = &cobra.Command{
	Use:   "source-ingest",
	Short: "Turn study material into plain text for question generation",
	Long: `source-ingest extracts text from the material a user supplies:

- PDF documents, including text read out of embedded images
- photos and scans (png, jpg, webp, avif)
- video links, through their transcripts
- pasted text

Extracted text is written to stdout, or to --output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $SOURCE_INGEST_CONFIG, then env vars)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write extracted text to this file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().StringVar(&caller, "caller", "", "label written above the extracted text")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
