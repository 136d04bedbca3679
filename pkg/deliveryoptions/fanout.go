package deliveryoptions

import (
	"context"
	"fmt"
	"sync"

	"github.com/tournevent/myparcel/pkg/carrier"
	"golang.org/x/sync/errgroup"
)

// Both fetches delivery windows and pickup locations concurrently and merges
// them into one Result. Either failure fails the call.
func Both(ctx context.Context, f Fetcher, p Params) (Result, error) {
	var deliveries, pickups Result

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deliveries, err = f.DeliveryOptions(ctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		pickups, err = f.PickupLocations(ctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Deliveries:      deliveries.Deliveries,
		PickupLocations: pickups.PickupLocations,
	}, nil
}

// ForCarriers runs Both for every carrier in parallel. A failing carrier is
// reported in the error slice and does not fail the others.
func ForCarriers(ctx context.Context, f Fetcher, p Params, carriers []carrier.Key) (map[carrier.Key]Result, []error) {
	results := make(map[carrier.Key]Result, len(carriers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, key := range carriers {
		key := key
		g.Go(func() error {
			params := p
			params.Carrier = key.String()
			res, err := Both(ctx, f, params)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return nil
			}
			results[key] = res
			return nil
		})
	}

	g.Wait()
	return results, errs
}
