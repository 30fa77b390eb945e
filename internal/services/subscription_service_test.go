package services

import (
	"context"
	"testing"
	"time"

	"gupayment/internal/iugu"
	"gupayment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribe(t *testing.T, svc *BillingService, customer *Customer, trialDays int) *models.Subscription {
	t.Helper()
	builder := customer.NewSubscription("main", "gold", nil)
	if trialDays > 0 {
		builder.TrialDays(trialDays)
	}
	sub, err := builder.Add(context.Background(), iugu.CustomerRequest{})
	require.NoError(t, err)
	return sub
}

func TestSwap_ChangesPlanAndClearsEnd(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()
	lifecycle := svc.Subscriptions()

	require.NoError(t, lifecycle.MarkAsCancelled(ctx, sub))
	require.NoError(t, lifecycle.Swap(ctx, sub, "silver"))

	assert.Equal(t, "silver", gw.subscriptions[sub.GatewayID].PlanIdentifier)
	reloaded, err := lifecycle.FindByGatewayID(ctx, sub.GatewayID)
	require.NoError(t, err)
	assert.Equal(t, "silver", reloaded.PlanIdentifier)
	assert.Nil(t, reloaded.EndsAt)
}

func TestCancel_UsesBillingPeriodEnd(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()

	expires := time.Now().AddDate(0, 0, 10)
	remote := gw.subscriptions[sub.GatewayID]
	remote.ExpiresAt = expires.Format("2006-01-02")
	gw.subscriptions[sub.GatewayID] = remote

	require.NoError(t, svc.Subscriptions().Cancel(ctx, sub))

	assert.True(t, gw.subscriptions[sub.GatewayID].Suspended)
	require.NotNil(t, sub.EndsAt)
	assert.Equal(t, expires.Format("2006-01-02"), sub.EndsAt.Format("2006-01-02"))
	assert.True(t, sub.Active())
	assert.True(t, sub.Cancelled())
	assert.True(t, sub.OnGracePeriod())

	past := time.Now().AddDate(0, 0, -5)
	sub.EndsAt = &past
	assert.False(t, sub.Active())
}

func TestCancel_OnTrialEndsWithTrial(t *testing.T) {
	svc, _, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 7)

	require.NoError(t, svc.Subscriptions().Cancel(context.Background(), sub))

	require.NotNil(t, sub.EndsAt)
	assert.True(t, sub.EndsAt.Equal(*sub.TrialEndsAt))
	assert.True(t, sub.OnGracePeriod())
}

func TestCancelNow(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)

	require.NoError(t, svc.Subscriptions().CancelNow(context.Background(), sub))

	assert.True(t, gw.subscriptions[sub.GatewayID].Suspended)
	assert.True(t, sub.Cancelled())
	assert.False(t, sub.OnGracePeriod())
	assert.False(t, sub.Valid())
}

func TestResume(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()

	future := time.Now().Add(48 * time.Hour)
	sub.EndsAt = &future
	require.NoError(t, svc.Subscriptions().Resume(ctx, sub))

	assert.True(t, gw.called("ActivateSubscription"))
	assert.True(t, sub.Active())
	assert.False(t, sub.Cancelled())
	assert.False(t, sub.OnGracePeriod())
}

func TestResume_OutsideGracePeriod(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()

	err := svc.Subscriptions().Resume(ctx, sub)
	assert.ErrorIs(t, err, ErrNotInGracePeriod)

	past := time.Now().Add(-time.Hour)
	sub.EndsAt = &past
	err = svc.Subscriptions().Resume(ctx, sub)
	assert.ErrorIs(t, err, ErrNotInGracePeriod)

	assert.Equal(t, &past, sub.EndsAt)
	assert.False(t, gw.called("ActivateSubscription"))
}

func TestLifecycle_GatewayErrorLeavesRowUntouched(t *testing.T) {
	svc, gw, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()
	gw.err = &iugu.APIError{StatusCode: 500}

	assert.Error(t, svc.Subscriptions().Swap(ctx, sub, "silver"))
	assert.Error(t, svc.Subscriptions().Cancel(ctx, sub))
	assert.Error(t, svc.Subscriptions().CancelNow(ctx, sub))

	reloaded, err := svc.Subscriptions().FindByGatewayID(ctx, sub.GatewayID)
	require.NoError(t, err)
	assert.Equal(t, "gold", reloaded.PlanIdentifier)
	assert.Nil(t, reloaded.EndsAt)
}

func TestExpireOn(t *testing.T) {
	svc, _, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)
	ctx := context.Background()

	today := time.Now().Format("2006-01-02")
	require.NoError(t, svc.Subscriptions().ExpireOn(ctx, sub, today))
	assert.True(t, sub.Cancelled())
	assert.Equal(t, today, sub.EndsAt.Format("2006-01-02"))

	assert.ErrorIs(t, svc.Subscriptions().ExpireOn(ctx, sub, "tomorrow"), ErrInvalidArgument)
}

func TestAsGatewaySubscription(t *testing.T) {
	svc, _, db := newTestService(t)
	customer, _ := customerWithCard(t, svc, db)
	sub := subscribe(t, svc, customer, 0)

	remote, err := svc.Subscriptions().AsGatewaySubscription(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, sub.GatewayID, remote.ID)
	assert.Equal(t, "gold", remote.PlanIdentifier)
}
