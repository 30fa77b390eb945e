package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gupayment/internal/iugu"
	"gupayment/internal/models"
)

// SubscriptionBuilder stages the options of a new subscription.
type SubscriptionBuilder struct {
	customer   *Customer
	name       string
	plan       string
	additional map[string]interface{}
	trialDays  int
	skipTrial  bool
	coupon     string
}

func newSubscriptionBuilder(customer *Customer, name, plan string, additional map[string]interface{}) *SubscriptionBuilder {
	if name == "" {
		name = DefaultSubscriptionName
	}
	return &SubscriptionBuilder{
		customer:   customer,
		name:       name,
		plan:       plan,
		additional: additional,
	}
}

// TrialDays sets the length of the trial.
func (b *SubscriptionBuilder) TrialDays(days int) *SubscriptionBuilder {
	b.trialDays = days
	return b
}

// SkipTrial bills the subscription right away, ignoring TrialDays.
func (b *SubscriptionBuilder) SkipTrial() *SubscriptionBuilder {
	b.skipTrial = true
	return b
}

// WithCoupon applies code when the gateway customer has to be created.
func (b *SubscriptionBuilder) WithCoupon(code string) *SubscriptionBuilder {
	b.coupon = code
	return b
}

// Add creates the subscription without a new card.
func (b *SubscriptionBuilder) Add(ctx context.Context, opts iugu.CustomerRequest) (*models.Subscription, error) {
	return b.Create(ctx, "", opts)
}

// Create provisions the gateway customer when needed, creates the gateway
// subscription and stores the local row. opts is only used when the
// customer is created.
func (b *SubscriptionBuilder) Create(ctx context.Context, token string, opts iugu.CustomerRequest) (*models.Subscription, error) {
	customerID, err := b.gatewayCustomer(ctx, token, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	remote, err := b.customer.CreateSubscription(ctx, b.buildPayload(customerID, now))
	if err != nil {
		return nil, err
	}

	var trialEndsAt *time.Time
	if !b.skipTrial && b.trialDays > 0 {
		t := now.AddDate(0, 0, b.trialDays)
		trialEndsAt = &t
	}

	subscription := &models.Subscription{
		Name:           b.name,
		GatewayID:      remote.ID,
		PlanIdentifier: b.plan,
		TrialEndsAt:    trialEndsAt,
	}
	if err := b.customer.svc.store.Create(ctx, b.customer.owner.GetID(), subscription, b.additional); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (b *SubscriptionBuilder) gatewayCustomer(ctx context.Context, token string, opts iugu.CustomerRequest) (string, error) {
	if !b.customer.HasID() {
		if b.coupon != "" {
			opts.Coupon = b.coupon
		}
		customer, err := b.customer.CreateAsCustomer(ctx, token, opts)
		if err != nil {
			return "", err
		}
		return customer.ID, nil
	}

	customer, err := b.customer.AsCustomer(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		if err := b.customer.UpdateCard(ctx, token); err != nil {
			return "", err
		}
	}
	return customer.ID, nil
}

func (b *SubscriptionBuilder) buildPayload(customerID string, now time.Time) iugu.SubscriptionRequest {
	return iugu.SubscriptionRequest{
		PlanIdentifier:  b.plan,
		CustomerID:      customerID,
		ExpiresAt:       b.trialEndForPayload(now),
		CustomVariables: b.customVariables(),
	}
}

// trialEndForPayload is the first billing date sent to the gateway. Today
// bills immediately; empty lets the plan decide.
func (b *SubscriptionBuilder) trialEndForPayload(now time.Time) string {
	if b.skipTrial {
		return now.Format(gatewayDateLayout)
	}
	if b.trialDays > 0 {
		return now.AddDate(0, 0, b.trialDays).Format(gatewayDateLayout)
	}
	return ""
}

func (b *SubscriptionBuilder) customVariables() []iugu.CustomVariable {
	if len(b.additional) == 0 {
		return nil
	}
	keys := make([]string, 0, len(b.additional))
	for k := range b.additional {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]iugu.CustomVariable, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, iugu.CustomVariable{Name: k, Value: fmt.Sprint(b.additional[k])})
	}
	return vars
}
