package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"golang.org/x/sync/errgroup"
)

// FacetResult is the outcome of fetching one facet for one user.
type FacetResult struct {
	Username string
	Facet    models.Facet
	Count    int
	Err      error // set when the facet degraded to an empty contribution
}

// AggregateResult is the merged candidate list plus per-facet outcomes.
type AggregateResult struct {
	Descriptors []models.Descriptor
	Facets      []FacetResult // user order, then facet order
}

// Degraded returns the facets that failed.
func (a *AggregateResult) Degraded() []FacetResult {
	var failed []FacetResult
	for _, f := range a.Facets {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Aggregate implements [Generator].
//
// A failing facet contributes nothing; an invalid history credential or a canceled context stops the whole step.
func (e *PlaylistEngine) Aggregate(ctx context.Context, usernames []string) (*AggregateResult, error) {
	return e.aggregate(ctx, e.logger, usernames)
}

func (e *PlaylistEngine) aggregate(ctx context.Context, logger *log.Logger, usernames []string) (*AggregateResult, error) {
	facets := models.Facets()
	slots := make([][]models.Descriptor, len(usernames)*len(facets))
	outcomes := make([]FacetResult, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, username := range usernames {
		for j, facet := range facets {
			idx := i*len(facets) + j
			g.Go(func() error {
				descriptors, err := e.history.Facet(gctx, username, facet, e.opts.PageSize)
				outcomes[idx] = FacetResult{Username: username, Facet: facet, Count: len(descriptors), Err: err}
				if err != nil {
					if services.IsKind(err, services.KindCredential) {
						return fmt.Errorf("history credential rejected: %w", err)
					}
					e.degraded(logger, PhaseAggregate, err, "username", username, "facet", facet)
					return nil
				}
				slots[idx] = descriptors
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &AggregateResult{Facets: outcomes}
	for _, slot := range slots {
		result.Descriptors = append(result.Descriptors, slot...)
	}
	logger.Debug("aggregated history", "candidates", len(result.Descriptors), "degraded", len(result.Degraded()))
	return result, nil
}
