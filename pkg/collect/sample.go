package collect

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/28jackiiee/video-scraping/models"
)

// CollectRequest describes a candidate-collection run used for manifests.
// Nothing is materialized; accepted items are only gathered in memory.
type CollectRequest struct {
	Query  string
	Needed int
	// SampleFrom, when larger than Needed, widens the pool that Needed items
	// are drawn from.
	SampleFrom int
	Ignore     IDSet
	Existing   IDSet
	Filter     FilterFunc
	// Rand drives sampling. Nil uses a randomly seeded source.
	Rand *rand.Rand
}

// CollectResult is the outcome of Engine.Collect.
type CollectResult struct {
	Items    []models.CandidateItem
	PoolSize int
	Report   *Report
}

// Collect gathers a pool of candidates with the candidate-collection budget and
// returns Needed of them, sampled uniformly without replacement when the pool
// is larger. Pool order is preserved in the returned slice.
func (e *Engine) Collect(ctx context.Context, req CollectRequest) (*CollectResult, error) {
	if req.Needed <= 0 {
		return nil, fmt.Errorf("%w: needed must be positive, got %d", ErrInvalidRequest, req.Needed)
	}
	if req.SampleFrom < 0 || (req.SampleFrom > 0 && req.SampleFrom < req.Needed) {
		return nil, fmt.Errorf("%w: sample pool %d is smaller than needed %d",
			ErrInvalidRequest, req.SampleFrom, req.Needed)
	}

	target := req.Needed
	if req.SampleFrom > req.Needed {
		target = req.SampleFrom
	}

	var pool []models.CandidateItem
	rep, err := e.Run(ctx, Request{
		Query:        req.Query,
		Needed:       target,
		Ignore:       req.Ignore,
		Existing:     req.Existing,
		Filter:       req.Filter,
		BaseAttempts: CandidateAttempts,
		Accept: func(_ context.Context, item models.CandidateItem) error {
			pool = append(pool, item)
			return nil
		},
	})
	if rep == nil {
		return nil, err
	}

	res := &CollectResult{PoolSize: len(pool), Report: rep}
	if len(pool) > req.Needed {
		rng := req.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		res.Items = Sample(pool, req.Needed, rng)
		e.logger.Info("Sampled candidates", "query", req.Query, "pool", len(pool), "selected", req.Needed)
	} else {
		res.Items = pool
	}
	return res, err
}

// Sample picks n items uniformly without replacement, keeping their relative
// order. It returns a copy of items when n >= len(items).
func Sample[T any](items []T, n int, rng *rand.Rand) []T {
	if n >= len(items) {
		return append([]T(nil), items...)
	}
	if n <= 0 {
		return nil
	}
	idx := rng.Perm(len(items))[:n]
	sort.Ints(idx)
	out := make([]T, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}
