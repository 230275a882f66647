package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/source-ingest/pkg/extractor"
)

var linkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Fetch the transcript of a video",
	Long: `Fetch a video transcript, trying each configured locale in order
(default en-US, en-GB, en-IN, en) until one has captions.`,
	Example: `  source-ingest link https://www.youtube.com/watch?v=dQw4w9WgXcQ
  source-ingest link https://youtu.be/dQw4w9WgXcQ -o lecture.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSource("Transcript", extractor.RemoteLink{URL: args[0]})
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
