package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
	"promo_rotation_bot/internal/infra/cache"
)

const (
	DefaultTargetPacing = 1 * time.Second
	DefaultSenderPacing = 2 * time.Second

	// minParties is the least number of destinations and of promotable participants
	// a cycle needs; below it a sender could only ever reach itself.
	minParties = 2
)

// Deliverer sends one promotion and reports success. DeliveryExecutor implements it.
type Deliverer interface {
	Deliver(ctx context.Context, sender *participant.Participant, channelID int64) bool
}

// DistributionConfig tunes one distribution cycle.
type DistributionConfig struct {
	Intervals        Intervals
	TargetPacing     time.Duration // pause after every delivery attempt
	SenderPacing     time.Duration // pause after every processed sender
	FlushConcurrency int
}

// DefaultDistributionConfig returns the production pacing and intervals.
func DefaultDistributionConfig() DistributionConfig {
	return DistributionConfig{
		Intervals:        DefaultIntervals(),
		TargetPacing:     DefaultTargetPacing,
		SenderPacing:     DefaultSenderPacing,
		FlushConcurrency: defaultFlushConcurrency,
	}
}

// CycleReport summarizes one distribution cycle.
type CycleReport struct {
	ID               string
	Skipped          bool
	Senders          int // promotable participants considered
	SendersProcessed int // senders that were due and had candidates
	Attempts         int
	Deliveries       int
	Written          int
	FlushFailures    int
}

// DistributionOption customizes a DistributionService, mostly for tests.
type DistributionOption func(*DistributionService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DistributionOption {
	return func(s *DistributionService) { s.now = now }
}

// WithSleeper replaces the pacing sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) DistributionOption {
	return func(s *DistributionService) { s.sleep = sleep }
}

// WithRand replaces the source used for sender and target shuffling.
func WithRand(rng *rand.Rand) DistributionOption {
	return func(s *DistributionService) { s.rng = rng }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) DistributionOption {
	return func(s *DistributionService) { s.metrics = m }
}

// DistributionService runs the scheduled cross-promotion cycle.
type DistributionService struct {
	participants participant.Repository
	destinations destination.Repository
	delivery     Deliverer
	cache        *cache.Layer
	cfg          DistributionConfig
	logger       *logrus.Entry
	metrics      Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rng   *rand.Rand // only touched while running is held

	running atomic.Bool
}

// NewDistributionService builds the service; a nil cacheLayer gets a private one with the default TTL.
func NewDistributionService(
	pr participant.Repository,
	dr destination.Repository,
	delivery Deliverer,
	cacheLayer *cache.Layer,
	cfg DistributionConfig,
	logger *logrus.Entry,
	opts ...DistributionOption,
) *DistributionService {
	if cacheLayer == nil {
		cacheLayer = cache.NewLayer(cache.DefaultTTL, time.Now)
	}
	s := &DistributionService{
		participants: pr,
		destinations: dr,
		delivery:     delivery,
		cache:        cacheLayer,
		cfg:          cfg,
		logger:       logger,
		metrics:      nopMetrics{},
		now:          time.Now,
		sleep:        sleepContext,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a cycle is in flight.
func (s *DistributionService) Running() bool {
	return s.running.Load()
}

// RunCycle executes one distribution cycle. It returns ErrCycleInProgress when another
// cycle still holds the slot. Per-target and per-community failures are logged and
// never surface here; only a failure to load state does.
func (s *DistributionService) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	report := &CycleReport{ID: ulid.Make().String()}
	log := s.logger.WithField("cycle_id", report.ID)

	err := s.runCycle(ctx, log, report)
	elapsed := s.now().Sub(start)

	switch {
	case err != nil:
		s.metrics.CycleFinished(CycleResultFailed, elapsed)
		log.WithError(err).Error("Distribution cycle failed")
		return report, err
	case report.Skipped:
		s.metrics.CycleFinished(CycleResultSkipped, elapsed)
	default:
		s.metrics.CycleFinished(CycleResultCompleted, elapsed)
		log.WithFields(logrus.Fields{
			"senders":        report.SendersProcessed,
			"attempts":       report.Attempts,
			"deliveries":     report.Deliveries,
			"written":        report.Written,
			"flush_failures": report.FlushFailures,
			"elapsed":        elapsed.String(),
		}).Info("Distribution cycle finished")
	}
	return report, nil
}

func (s *DistributionService) runCycle(ctx context.Context, log *logrus.Entry, report *CycleReport) error {
	allDestinations, err := s.destinations.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list destinations: %w", err)
	}
	enabled, err := s.participants.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled participants: %w", err)
	}

	enabledIDs := make(map[int64]bool, len(enabled))
	for _, p := range enabled {
		enabledIDs[p.CommunityID] = true
	}
	destinations := make([]*destination.Destination, 0, len(allDestinations))
	for _, d := range allDestinations {
		if enabledIDs[d.CommunityID] {
			destinations = append(destinations, d)
		}
	}
	senders := make([]*participant.Participant, 0, len(enabled))
	for _, p := range enabled {
		if p.CanBroadcast() {
			senders = append(senders, p)
		}
	}
	report.Senders = len(senders)

	if len(destinations) < minParties || len(senders) < minParties {
		report.Skipped = true
		log.WithFields(logrus.Fields{
			"destinations": len(destinations),
			"senders":      len(senders),
		}).Debug("Not enough parties for a cycle, skipping")
		return nil
	}

	s.rng.Shuffle(len(senders), func(i, j int) { senders[i], senders[j] = senders[j], senders[i] })

	agg := NewCounterAggregator(enabled)
	now := s.now()
	today := participant.Today(now)

	for _, sender := range senders {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("Cycle interrupted, flushing what was delivered")
			break
		}

		elig := s.cfg.Intervals.CheckEligibility(now, sender.Counters.LastBroadcastAt, sender.Plan)
		if !elig.Due {
			continue
		}

		targets := SelectTargets(destinations, sender.CommunityID, s.rng)
		if len(targets) == 0 {
			continue
		}
		report.SendersProcessed++

		var delivered int64
		for _, target := range targets {
			report.Attempts++
			if s.delivery.Deliver(ctx, sender, target.ChannelID) {
				delivered++
				agg.ApplyReceived(target.CommunityID, today)
			}
			if err := s.sleep(ctx, s.cfg.TargetPacing); err != nil {
				break
			}
		}
		report.Deliveries += int(delivered)

		if delivered > 0 {
			agg.ApplySent(sender.CommunityID, delivered, today, now)
		}
		log.WithFields(logrus.Fields{
			"sender_id": sender.CommunityID,
			"targets":   len(targets),
			"delivered": delivered,
			"interval":  elig.Interval.String(),
		}).Debug("Sender processed")

		if err := s.sleep(ctx, s.cfg.SenderPacing); err != nil {
			log.WithError(err).Warn("Cycle interrupted, flushing what was delivered")
			break
		}
	}

	// Flush even when interrupted so delivered broadcasts are not counted twice.
	res := agg.Commit(context.WithoutCancel(ctx), s.participants, s.cache.Counters, s.now(), s.cfg.FlushConcurrency)
	report.Written = len(res.Written)
	report.FlushFailures = len(res.Failed)
	for id, ferr := range res.Failed {
		s.metrics.FlushFailed()
		log.WithError(ferr).WithField("community_id", id).Error("Failed to persist counters")
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
