package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical/source-ingest/cmd/source-ingest/ui"
	"github.com/spherical/source-ingest/pkg/extractor"
)

// runSource extracts one source, showing progress, and writes the text out.
func runSource(title string, src extractor.SourceDescriptor) error {
	ctx, cancel := signalContext()
	defer cancel()

	client, cfg, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	defer flushMetrics(client, cfg)

	ui.Section(title)
	startTime := time.Now()

	text, err := watch(ctx, client.Process(ctx, src))
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	w, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	label := caller
	if label == "" {
		label = title
	}
	if err := newGenerator(w, false).Generate(ctx, label, text); err != nil {
		_ = closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	ui.Success("Extracted %d characters in %s", len(text.Text), ui.FormatDuration(time.Since(startTime)))
	if outputPath != "" {
		ui.Success("Text saved to: %s", outputPath)
	}
	return nil
}

// watch displays events until the channel closes and returns the text carried
// by the final complete event.
func watch(ctx context.Context, events <-chan extractor.StreamEvent) (extractor.ExtractedText, error) {
	spin := ui.NewSpinner("Extracting...")
	spin.Start()
	defer spin.Stop()

	var (
		bar    *ui.PageBar
		result *extractor.ExtractedText
		failed error
	)

	for event := range events {
		switch event.Type {
		case extractor.EventStart:
			if event.Total > 0 && bar == nil {
				spin.Stop()
				bar = ui.NewPageBar(event.Total)
			} else if msg, ok := event.Payload.(string); ok {
				spin.UpdateMessage(msg)
			}

		case extractor.EventPageComplete:
			if bar != nil {
				bar.PageDone(event.PageNumber)
			}

		case extractor.EventImageProcessed:
			ui.Step("Page %d: read image %v", event.PageNumber, event.Payload)

		case extractor.EventImageSkipped:
			if ui.Verbose() {
				ui.Warning("Page %d: skipped image %v", event.PageNumber, event.Payload)
			}

		case extractor.EventError:
			failed = fmt.Errorf("%v", event.Payload)

		case extractor.EventComplete:
			if text, ok := event.Payload.(extractor.ExtractedText); ok {
				result = &text
			}
		}
	}

	if bar != nil {
		bar.Finish()
	}

	switch {
	case result != nil:
		return *result, nil
	case failed != nil:
		return extractor.ExtractedText{}, failed
	case ctx.Err() != nil:
		return extractor.ExtractedText{}, ctx.Err()
	default:
		return extractor.ExtractedText{}, errors.New("extraction ended without a result")
	}
}
