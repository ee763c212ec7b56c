package inventory

import (
	"context"
	"fmt"
)

// Count is the physically counted level of one product.
type Count struct {
	SKU    string
	Target int64
}

type TakeResult struct {
	Lines   int
	In      int64
	Out     int64
	Changed []Adjustment
}

// StockTake sets every counted product to its target level. It stops at the first failure;
// the caller's transaction decides whether earlier writes survive.
func StockTake(ctx context.Context, s Store, counts []Count) (TakeResult, error) {
	var res TakeResult
	for _, c := range counts {
		if !Tracked(c.SKU) {
			return res, fmt.Errorf("%w: %q is not a catalogue sku", ErrProductNotFound, c.SKU)
		}
		adj, err := SetLevel(ctx, s, c.SKU, c.Target)
		if err != nil {
			return res, fmt.Errorf("stock-take %s: %w", c.SKU, err)
		}
		res.Lines++
		switch {
		case adj.After > adj.Before:
			res.In += adj.After - adj.Before
			res.Changed = append(res.Changed, adj)
		case adj.After < adj.Before:
			res.Out += adj.Before - adj.After
			res.Changed = append(res.Changed, adj)
		}
	}
	return res, nil
}
