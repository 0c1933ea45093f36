package registry

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scoperival/internal/model"
)

// DefaultConcurrency is used by ScanAll when no positive limit is given.
const DefaultConcurrency = 4

// ScanOutcome is the result of one scan within ScanAll.
type ScanOutcome struct {
	CompetitorID string
	Result       model.ScanResult
	Err          error
}

// ScanAll scans the distinct ids in ids with at most concurrency scans in
// flight, through the same per-competitor guard as Scan. Individual
// failures are reported in the outcomes, ordered like the distinct ids;
// the returned error is non-nil only when ctx was cancelled. The collection
// is refreshed once at the end if any scan succeeded.
func (r *Registry) ScanAll(ctx context.Context, ids []string, concurrency int) ([]ScanOutcome, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ids = distinct(ids)

	r.logger.Info("starting scans",
		"total", len(ids),
		"concurrency", concurrency,
	)
	start := time.Now()

	outcomes := make([]ScanOutcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range ids {
		outcomes[i].CompetitorID = id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				outcomes[i].Err = gctx.Err()
				return gctx.Err()
			default:
			}

			result, err := r.scan(gctx, id)
			outcomes[i].Result = result
			outcomes[i].Err = err
			if err != nil {
				r.logger.Warn("scan failed", "competitor_id", id, "error", err)
			}
			// Keep scanning the others.
			return nil
		})
	}

	err := g.Wait()

	succeeded := 0
	for _, o := range outcomes {
		if o.Err == nil {
			succeeded++
		}
	}
	r.logger.Info("scans complete",
		"total", len(ids),
		"succeeded", succeeded,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if succeeded > 0 {
		if rerr := r.Refresh(context.WithoutCancel(ctx)); rerr != nil {
			r.logger.Warn("failed to refresh competitors after scans", "error", rerr)
		}
	}
	return outcomes, err
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
