package corpus

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

// MaxWorkers caps concurrent document reads.
const MaxWorkers = 32

// decodeEntries reads and decodes entries on at most workers goroutines
// (MaxWorkers when workers <= 0). The result at index i belongs to
// entries[i]. Per-entry failures are recorded in the result; only
// cancellation of ctx fails the whole call.
func decodeEntries(ctx context.Context, entries []entry, workers int) ([]decoded, error) {
	results := make([]decoded, len(entries))
	if len(entries) == 0 {
		return results, ctx.Err()
	}
	if workers <= 0 {
		workers = MaxWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(entries)))
	for i := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = decodeOne(entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func decodeOne(e entry) decoded {
	data, err := e.read()
	if err != nil {
		return decoded{err: errors.NewIO("read", e.name, err)}
	}
	doc, issues, err := decodeEntry(e.name, data)
	return decoded{data: data, doc: doc, issues: issues, err: err}
}
