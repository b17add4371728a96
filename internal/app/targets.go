package app

import (
	"math/rand"

	"promo_rotation_bot/internal/domain/destination"
)

// exposureDivisor caps a sender's reach to about a fifth of the network per cycle.
const exposureDivisor = 5

// BatchSize returns how many targets a sender gets out of n candidates.
func BatchSize(n int) int {
	if size := n / exposureDivisor; size > 1 {
		return size
	}
	return 1
}

// SelectTargets drops every destination owned by excludeID, shuffles the rest with rng
// and returns the first BatchSize of them. It returns nil when no candidate is left.
// candidates is not modified.
func SelectTargets(candidates []*destination.Destination, excludeID int64, rng *rand.Rand) []*destination.Destination {
	pool := make([]*destination.Destination, 0, len(candidates))
	for _, d := range candidates {
		if d.CommunityID != excludeID {
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:BatchSize(len(pool))]
}
