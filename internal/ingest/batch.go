package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/source-ingest/internal/domain"
)

// Result is the outcome of one source in a batch.
type Result struct {
	Source domain.SourceDescriptor
	Text   domain.ExtractedText
	Err    error
}

// ExtractBatch extracts every source, at most MaxConcurrent at a time.
// Results are in input order. One source failing does not stop the others;
// cancelling ctx does.
func (c *Coordinator) ExtractBatch(ctx context.Context, sources []domain.SourceDescriptor, eventCh chan<- domain.StreamEvent) []Result {
	results := make([]Result, len(sources))

	var g errgroup.Group
	g.SetLimit(c.maxConcurrent)

	for i, src := range sources {
		g.Go(func() error {
			results[i].Source = src
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Text, results[i].Err = c.ExtractWithEvents(ctx, src, eventCh)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// IngestBatch extracts every source and hands each successful text to the
// question generator under caller.
func (c *Coordinator) IngestBatch(ctx context.Context, caller string, sources []domain.SourceDescriptor) []Result {
	results := c.ExtractBatch(ctx, sources, nil)
	if c.generator == nil {
		for i := range results {
			if results[i].Err == nil {
				results[i].Err = domain.ConfigError("no question generator configured", nil)
			}
		}
		return results
	}
	for i := range results {
		if results[i].Err != nil {
			continue
		}
		results[i].Err = c.generator.Generate(ctx, caller, results[i].Text)
	}
	return results
}
