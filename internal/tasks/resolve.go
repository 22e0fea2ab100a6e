package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/services"
	"golang.org/x/sync/errgroup"
)

// ResolvedItem is a curated entry that made it to a playable URI.
type ResolvedItem struct {
	Position int // index in the curated list
	Entry    string
	TrackID  string
	URI      string
}

// SkippedItem is a curated entry dropped during resolution.
type SkippedItem struct {
	Position int
	Entry    string
	Phase    Phase // PhaseResolveIDs or PhaseResolveURIs
	Reason   string
}

// Resolution holds the resolved items in curated order plus everything that was skipped.
type Resolution struct {
	Items   []ResolvedItem
	Skipped []SkippedItem

	ids []ResolvedItem // entries with an ID, awaiting URI lookup
}

// URIs returns the resolved URIs in curated order.
func (r *Resolution) URIs() []string {
	uris := make([]string, len(r.Items))
	for i, item := range r.Items {
		uris[i] = item.URI
	}
	return uris
}

func (r *Resolution) runTracks() []models.RunTrack {
	tracks := make([]models.RunTrack, len(r.Items))
	for i, item := range r.Items {
		tracks[i] = models.RunTrack{Position: i, Descriptor: item.Entry, TrackID: item.TrackID, URI: item.URI}
	}
	return tracks
}

// Resolve implements [Generator].
//
// Misses and upstream failures skip the entry; a rejected credential or canceled context stops the step.
func (e *PlaylistEngine) Resolve(ctx context.Context, cred models.Credential, entries []string) (*Resolution, error) {
	res := &Resolution{}
	if err := e.resolveIDs(ctx, e.logger, cred, entries, res, nil); err != nil {
		return res, err
	}
	if err := e.resolveURIs(ctx, e.logger, cred, res, nil); err != nil {
		return res, err
	}
	return res, nil
}

// lookup fans fn out over n items with bounded concurrency.
//
// Each call writes to its own slot. A credential failure aborts the group; any other failure is recorded as a skip.
func (e *PlaylistEngine) lookup(ctx context.Context, n int, fn func(ctx context.Context, i int) (string, error)) ([]string, []error, error) {
	values := make([]string, n)
	errs := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := range n {
		g.Go(func() error {
			v, err := fn(gctx, i)
			if err != nil {
				if services.IsKind(err, services.KindCredential) {
					return fmt.Errorf("streaming credential rejected: %w", err)
				}
				errs[i] = err
				return nil
			}
			values[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return values, errs, nil
}

func (e *PlaylistEngine) resolveIDs(ctx context.Context, logger *log.Logger, cred models.Credential, entries []string, res *Resolution, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, resolveIDsStartUpdate(len(entries)))

	ids, errs, err := e.lookup(ctx, len(entries), func(ctx context.Context, i int) (string, error) {
		return e.streaming.SearchTrack(ctx, cred, entries[i])
	})
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if errs[i] != nil {
			res.Skipped = append(res.Skipped, SkippedItem{Position: i, Entry: entry, Phase: PhaseResolveIDs, Reason: errs[i].Error()})
			if services.IsKind(errs[i], services.KindNotFound) {
				e.metrics.RecordStepFailure(PhaseResolveIDs.String(), kindLabel(errs[i]))
				logger.Debug("no search match", "entry", entry)
			} else {
				e.degraded(logger, PhaseResolveIDs, errs[i], "entry", entry)
			}
			continue
		}
		res.ids = append(res.ids, ResolvedItem{Position: i, Entry: entry, TrackID: ids[i]})
	}
	return nil
}

func (e *PlaylistEngine) resolveURIs(ctx context.Context, logger *log.Logger, cred models.Credential, res *Resolution, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, resolveURIsStartUpdate(len(res.ids)))

	uris, errs, err := e.lookup(ctx, len(res.ids), func(ctx context.Context, i int) (string, error) {
		return e.streaming.TrackURI(ctx, cred, res.ids[i].TrackID)
	})
	if err != nil {
		return err
	}

	for i, item := range res.ids {
		if errs[i] != nil {
			res.Skipped = append(res.Skipped, SkippedItem{Position: item.Position, Entry: item.Entry, Phase: PhaseResolveURIs, Reason: errs[i].Error()})
			e.degraded(logger, PhaseResolveURIs, errs[i], "entry", item.Entry, "track_id", item.TrackID)
			continue
		}
		item.URI = uris[i]
		res.Items = append(res.Items, item)
	}
	return nil
}
