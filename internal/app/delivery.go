package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"promo_rotation_bot/internal/domain/participant"
	domainTelegram "promo_rotation_bot/internal/domain/telegram"
)

// DeliveryExecutor performs a single permission-checked promotional send.
type DeliveryExecutor struct {
	client  domainTelegram.Client
	logger  *logrus.Entry
	metrics Metrics
}

func NewDeliveryExecutor(client domainTelegram.Client, logger *logrus.Entry, metrics Metrics) *DeliveryExecutor {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &DeliveryExecutor{client: client, logger: logger, metrics: metrics}
}

// Deliver posts sender's content into channelID and reports whether it went out.
// Every failure, including a panic inside the messaging client, becomes false.
func (e *DeliveryExecutor) Deliver(ctx context.Context, sender *participant.Participant, channelID int64) (ok bool) {
	log := e.logger.WithFields(logrus.Fields{
		"sender_id":  sender.CommunityID,
		"channel_id": channelID,
	})
	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("panic: %v", r)).Error("Delivery panicked")
			ok = false
		}
		e.metrics.DeliveryAttempted(ok)
	}()

	ch, err := e.client.ResolveChannel(ctx, channelID)
	if err != nil {
		log.WithError(err).Debug("Channel resolution failed")
		return false
	}
	if ch == nil {
		log.Debug("Channel not found")
		return false
	}

	allowed, err := e.client.CanPost(ctx, ch)
	if err != nil {
		log.WithError(err).Debug("Capability check failed")
		return false
	}
	if !allowed {
		log.Debug("Missing view/send permission")
		return false
	}

	if err := e.client.SendPromotion(ctx, ch, sender.CommunityID, sender.Content); err != nil {
		log.WithError(err).Warn("Promotion send failed")
		return false
	}
	return true
}
