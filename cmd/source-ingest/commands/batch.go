package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/source-ingest/cmd/source-ingest/ui"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Extract every source listed in a manifest",
	Long: `Extract the files, links and texts listed in a YAML manifest concurrently
(ingest.max_concurrent at a time). Each text is written under a header naming
its source. A failing source does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(args[0])
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(manifestPath string) error {
	m, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, cfg, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	defer flushMetrics(client, cfg)

	ui.Section("Batch Extraction")
	ui.KeyValue("Manifest", manifestPath)
	ui.KeyValue("Sources", fmt.Sprintf("%d", len(m.Sources)))
	if m.Caller != "" {
		ui.KeyValue("Caller", m.Caller)
	}

	startTime := time.Now()
	spin := ui.NewSpinner(fmt.Sprintf("Extracting %d sources...", len(m.Sources)))
	spin.Start()
	results := client.ExtractBatch(ctx, m.descriptors(), nil)
	spin.Stop()

	if err := ctx.Err(); err != nil {
		return err
	}

	w, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	generator := newGenerator(w, true)

	failed := 0
	for i, result := range results {
		label := m.Sources[i].label()
		if m.Caller != "" {
			label = m.Caller + ": " + label
		}

		if result.Err != nil {
			failed++
			ui.Error("%s: %v", label, result.Err)
			continue
		}
		if err := generator.Generate(ctx, label, result.Text); err != nil {
			_ = closeOutput()
			return err
		}
		ui.Step("%s: %d characters", label, len(result.Text.Text))
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	ui.Section("Batch Summary")
	ui.KeyValue("Extracted", fmt.Sprintf("%d", len(results)-failed))
	ui.KeyValue("Failed", fmt.Sprintf("%d", failed))
	ui.KeyValue("Duration", ui.FormatDuration(time.Since(startTime)))

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	ui.Success("All sources extracted")
	return nil
}
