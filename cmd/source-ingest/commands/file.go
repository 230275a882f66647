package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/source-ingest/cmd/source-ingest/ui"
	"github.com/spherical/source-ingest/pkg/extractor"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf <file>",
	Short: "Extract text from a PDF document",
	Long: `Extract the native text of every page, then the text a vision model reads
out of each embedded image, up to pdf.max_images_per_document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(args[0], true)
	},
}

var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Extract text from a photo or scan",
	Long:  "Extract text from a png, jpg, jpeg, webp or avif image with the vision model.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	rootCmd.AddCommand(imageCmd)
}

// runFile checks path and hands it to the extractor, which copies it into
// its staging directory; the file itself is never removed.
func runFile(path string, wantPDF bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	isPDF := strings.EqualFold(filepath.Ext(path), ".pdf")
	switch {
	case wantPDF && !isPDF:
		return fmt.Errorf("%s is not a PDF (use the image command for images)", path)
	case !wantPDF && isPDF:
		return fmt.Errorf("%s is a PDF (use the pdf command)", path)
	}

	ui.KeyValue("File", path)
	ui.KeyValue("Size", fmt.Sprintf("%.1f KB", float64(info.Size())/1024))

	title := "Image Extraction"
	if wantPDF {
		title = "PDF Extraction"
	}
	return runSource(title, extractor.NewLocalFile(path, filepath.Base(path)))
}
