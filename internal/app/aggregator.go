package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"promo_rotation_bot/internal/domain/participant"
	"promo_rotation_bot/internal/infra/cache"
)

const defaultFlushConcurrency = 8

// CounterAggregator holds one cycle's working copies of participant counters.
// It is owned by a single cycle and is not safe for concurrent mutation.
type CounterAggregator struct {
	working map[int64]participant.Counters
	touched []int64
	seen    map[int64]bool
}

// NewCounterAggregator seeds working copies from the participants loaded at cycle start.
func NewCounterAggregator(participants []*participant.Participant) *CounterAggregator {
	a := &CounterAggregator{
		working: make(map[int64]participant.Counters, len(participants)),
		seen:    make(map[int64]bool),
	}
	for _, p := range participants {
		a.working[p.CommunityID] = p.Counters
	}
	return a
}

// Counters returns the current working copy for id.
func (a *CounterAggregator) Counters(id int64) (participant.Counters, bool) {
	c, ok := a.working[id]
	return c, ok
}

// ApplyReceived records one successful delivery into id's channel.
// It returns false when id was not loaded this cycle.
func (a *CounterAggregator) ApplyReceived(id int64, today participant.Day) bool {
	c, ok := a.working[id]
	if !ok {
		return false
	}
	a.working[id] = c.WithReceived(today)
	a.touch(id)
	return true
}

// ApplySent records count successful deliveries made by id at now.
func (a *CounterAggregator) ApplySent(id int64, count int64, today participant.Day, now time.Time) bool {
	c, ok := a.working[id]
	if !ok || count <= 0 {
		return false
	}
	a.working[id] = c.WithSent(count, today, now)
	a.touch(id)
	return true
}

func (a *CounterAggregator) touch(id int64) {
	if !a.seen[id] {
		a.seen[id] = true
		a.touched = append(a.touched, id)
	}
}

// Touched lists the communities changed this cycle in first-touch order.
func (a *CounterAggregator) Touched() []int64 {
	out := make([]int64, len(a.touched))
	copy(out, a.touched)
	return out
}

// CommitResult reports the outcome of a flush per community.
type CommitResult struct {
	Written []int64
	Failed  map[int64]error
}

// Commit writes every touched community with an independent UpdateCounters call.
// Calls run concurrently up to limit and never cancel each other. Written values are
// mirrored into counters stamped with at; failed ones are invalidated so the next panel
// read goes to the store.
func (a *CounterAggregator) Commit(ctx context.Context, repo participant.Repository, counters *cache.TTL[participant.Counters], at time.Time, limit int) CommitResult {
	if limit <= 0 {
		limit = defaultFlushConcurrency
	}
	ids := a.Touched()
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		c := a.working[id]
		g.Go(func() error {
			errs[i] = repo.UpdateCounters(ctx, id, c)
			return nil
		})
	}
	_ = g.Wait()

	res := CommitResult{Failed: make(map[int64]error)}
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed[id] = errs[i]
			if counters != nil {
				counters.Invalidate(id)
			}
			continue
		}
		res.Written = append(res.Written, id)
		if counters != nil {
			counters.SetAt(id, a.working[id], at)
		}
	}
	return res
}
