package services

import (
	"context"
	"fmt"
	"time"

	"gupayment/internal/database"
	"gupayment/internal/iugu"
	"gupayment/internal/models"
)

// SubscriptionService moves local subscriptions through their lifecycle,
// keeping the gateway in step. Gateway errors are returned unchanged and
// leave the local row untouched.
type SubscriptionService struct {
	gw    iugu.Gateway
	store *database.SubscriptionStore
}

func NewSubscriptionService(gw iugu.Gateway, store *database.SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{gw: gw, store: store}
}

// AsGatewaySubscription fetches the gateway side of sub.
func (s *SubscriptionService) AsGatewaySubscription(ctx context.Context, sub *models.Subscription) (iugu.Subscription, error) {
	return s.gw.GetSubscription(ctx, sub.GatewayID)
}

// Swap moves sub to plan. A cancelled subscription is reactivated as well.
func (s *SubscriptionService) Swap(ctx context.Context, sub *models.Subscription, plan string) error {
	if _, err := s.gw.ChangePlan(ctx, sub.GatewayID, plan); err != nil {
		return err
	}
	sub.PlanIdentifier = plan
	sub.EndsAt = nil
	return s.store.Save(ctx, sub)
}

// Cancel suspends sub at the end of the trial, or of the billing period
// when not on trial.
func (s *SubscriptionService) Cancel(ctx context.Context, sub *models.Subscription) error {
	remote, err := s.gw.SuspendSubscription(ctx, sub.GatewayID)
	if err != nil {
		return err
	}

	now := time.Now()
	if sub.OnTrialAt(now) {
		endsAt := *sub.TrialEndsAt
		sub.EndsAt = &endsAt
		return s.store.Save(ctx, sub)
	}

	expiresAt := remote.ExpiresAt
	if expiresAt == "" {
		fetched, err := s.AsGatewaySubscription(ctx, sub)
		if err != nil {
			return err
		}
		expiresAt = fetched.ExpiresAt
	}
	endsAt, err := dateAtCurrentTime(expiresAt, now)
	if err != nil {
		return fmt.Errorf("invalid expires_at %q for subscription %s: %w", expiresAt, sub.GatewayID, err)
	}
	sub.EndsAt = &endsAt
	return s.store.Save(ctx, sub)
}

// CancelNow suspends sub and ends it immediately.
func (s *SubscriptionService) CancelNow(ctx context.Context, sub *models.Subscription) error {
	if _, err := s.gw.SuspendSubscription(ctx, sub.GatewayID); err != nil {
		return err
	}
	return s.MarkAsCancelled(ctx, sub)
}

// MarkAsCancelled ends sub now without calling the gateway.
func (s *SubscriptionService) MarkAsCancelled(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	sub.EndsAt = &now
	return s.store.Save(ctx, sub)
}

// ExpireOn ends sub on a YYYY-MM-DD date at the current time of day.
func (s *SubscriptionService) ExpireOn(ctx context.Context, sub *models.Subscription, date string) error {
	endsAt, err := dateAtCurrentTime(date, time.Now())
	if err != nil {
		return fmt.Errorf("%w: invalid expires_at %q", ErrInvalidArgument, date)
	}
	sub.EndsAt = &endsAt
	return s.store.Save(ctx, sub)
}

// Resume reactivates a cancelled subscription that is still in its grace period.
func (s *SubscriptionService) Resume(ctx context.Context, sub *models.Subscription) error {
	if !sub.OnGracePeriod() {
		return ErrNotInGracePeriod
	}
	if _, err := s.gw.ActivateSubscription(ctx, sub.GatewayID); err != nil {
		return err
	}
	sub.EndsAt = nil
	return s.store.Save(ctx, sub)
}

// FindByGatewayID loads the local subscription mirroring a gateway one.
func (s *SubscriptionService) FindByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	return s.store.FindByGatewayID(ctx, gatewayID)
}
