package services

import (
	"context"
	"fmt"

	"gupayment/internal/database"
	"gupayment/internal/iugu"
	"gupayment/internal/models"

	"gorm.io/gorm"
)

const (
	// DefaultSubscriptionName is used when a subscription name is left empty.
	DefaultSubscriptionName = "default"

	defaultChargeDescription = "Nova cobrança"
	defaultInvoicePageSize   = "24"
)

// BillingService wires the gateway, the local database and the mailer
// together and hands out Customer views over billable owners.
type BillingService struct {
	gw            iugu.Gateway
	db            *gorm.DB
	store         *database.SubscriptionStore
	mailer        Mailer
	subscriptions *SubscriptionService
}

// NewBillingService creates a billing service. mailer may be nil, in which
// case EmailInvoice fails with ErrMailerNotConfigured.
func NewBillingService(gw iugu.Gateway, db *gorm.DB, store *database.SubscriptionStore, mailer Mailer) *BillingService {
	return &BillingService{
		gw:            gw,
		db:            db,
		store:         store,
		mailer:        mailer,
		subscriptions: NewSubscriptionService(gw, store),
	}
}

// Customer returns the billing view of owner. owner must be a pointer to a
// gorm model since it is saved when its gateway customer id changes.
func (s *BillingService) Customer(owner models.Billable) *Customer {
	return &Customer{svc: s, owner: owner}
}

// Subscriptions returns the lifecycle service for local subscriptions.
func (s *BillingService) Subscriptions() *SubscriptionService {
	return s.subscriptions
}

// Customer performs billing operations on behalf of one owner.
type Customer struct {
	svc   *BillingService
	owner models.Billable
}

func (c *Customer) Owner() models.Billable {
	return c.owner
}

// HasID reports whether the owner is already a gateway customer.
func (c *Customer) HasID() bool {
	return c.owner.GetGatewayCustomerID() != ""
}

func (c *Customer) gatewayCustomerID() (string, error) {
	if !c.HasID() {
		return "", fmt.Errorf("%w: owner %d is not a gateway customer, create it with CreateAsCustomer first",
			ErrInvalidArgument, c.owner.GetID())
	}
	return c.owner.GetGatewayCustomerID(), nil
}

// AsCustomer fetches the gateway customer of the owner.
func (c *Customer) AsCustomer(ctx context.Context) (iugu.Customer, error) {
	id, err := c.gatewayCustomerID()
	if err != nil {
		return iugu.Customer{}, err
	}
	return c.svc.gw.GetCustomer(ctx, id)
}

// CreateAsCustomer creates the gateway customer, stores its id on the owner
// and, when token is set, attaches it as the default card. The owner's email
// always overrides opts.Email.
func (c *Customer) CreateAsCustomer(ctx context.Context, token string, opts iugu.CustomerRequest) (iugu.Customer, error) {
	opts.Email = c.owner.GetEmail()

	customer, err := c.svc.gw.CreateCustomer(ctx, opts)
	if err != nil {
		return iugu.Customer{}, err
	}

	c.owner.SetGatewayCustomerID(customer.ID)
	if err := c.svc.db.WithContext(ctx).Save(c.owner).Error; err != nil {
		return customer, fmt.Errorf("failed to save gateway customer id: %w", err)
	}

	if token != "" {
		if err := c.UpdateCard(ctx, token); err != nil {
			return customer, err
		}
	}
	return customer, nil
}

// ChargeOptions mirrors the gateway charge request. Empty fields are treated
// as not given.
type ChargeOptions struct {
	Token                   string
	Method                  string
	CustomerPaymentMethodID string
	CustomerID              string
	InvoiceID               string
	Email                   string
	Months                  int
	DiscountCents           int64
	Items                   []iugu.Item
}

func (o ChargeOptions) hasPaymentSource() bool {
	return o.Token != "" || o.Method != "" || o.CustomerPaymentMethodID != ""
}

// Charge makes a one off charge of amount cents. Without items or an invoice
// id a single item for amount is billed; without a payment source the
// customer's default card is used.
func (c *Customer) Charge(ctx context.Context, amount int64, opts ChargeOptions) (iugu.Charge, error) {
	if len(opts.Items) == 0 && opts.InvoiceID == "" {
		opts.Items = []iugu.Item{{
			Description: defaultChargeDescription,
			Quantity:    1,
			PriceCents:  amount,
		}}
	}

	if opts.CustomerID == "" && c.HasID() {
		opts.CustomerID = c.owner.GetGatewayCustomerID()
	}

	var defaultCard *Card
	if !opts.hasPaymentSource() {
		if c.HasID() {
			card, err := c.DefaultCard(ctx)
			if err != nil {
				return iugu.Charge{}, err
			}
			defaultCard = card
		}
		if defaultCard == nil {
			return iugu.Charge{}, fmt.Errorf("%w: no payment source provided", ErrInvalidArgument)
		}
	}

	if opts.InvoiceID == "" && opts.Email == "" && !c.HasID() {
		return iugu.Charge{}, fmt.Errorf("%w: no customer data provided, pass an invoice id or email or create the customer first",
			ErrInvalidArgument)
	}

	if defaultCard != nil {
		opts.CustomerPaymentMethodID = defaultCard.ID
	}

	return c.svc.gw.CreateCharge(ctx, iugu.ChargeRequest{
		Method:                  opts.Method,
		Token:                   opts.Token,
		CustomerPaymentMethodID: opts.CustomerPaymentMethodID,
		CustomerID:              opts.CustomerID,
		InvoiceID:               opts.InvoiceID,
		Email:                   opts.Email,
		Months:                  opts.Months,
		DiscountCents:           opts.DiscountCents,
		Items:                   opts.Items,
	})
}

// CreateSubscription creates a gateway subscription as is, without a local row.
func (c *Customer) CreateSubscription(ctx context.Context, req iugu.SubscriptionRequest) (iugu.Subscription, error) {
	return c.svc.gw.CreateSubscription(ctx, req)
}

// GetSubscription fetches a gateway subscription.
func (c *Customer) GetSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	return c.svc.gw.GetSubscription(ctx, id)
}

// NewSubscription starts building a subscription named name on plan.
// Entries of additional become custom variables on the gateway and are
// copied to matching local columns.
func (c *Customer) NewSubscription(name, plan string, additional map[string]interface{}) *SubscriptionBuilder {
	return newSubscriptionBuilder(c, name, plan, additional)
}

// OnPlan reports whether any local subscription of the owner is on plan.
func (c *Customer) OnPlan(ctx context.Context, plan string) (bool, error) {
	return c.svc.store.HasPlan(ctx, c.owner.GetID(), plan)
}

// Subscribed reports whether the named subscription exists and is valid,
// and when plan is set, whether it is on that plan.
func (c *Customer) Subscribed(ctx context.Context, name, plan string) (bool, error) {
	subscription, err := c.Subscription(ctx, name)
	if err != nil {
		return false, err
	}
	if subscription == nil {
		return false, nil
	}
	if plan == "" {
		return subscription.Valid(), nil
	}
	return subscription.Valid() && subscription.PlanIdentifier == plan, nil
}

// Subscription returns the newest local subscription with the given name,
// or nil when there is none.
func (c *Customer) Subscription(ctx context.Context, name string) (*models.Subscription, error) {
	if name == "" {
		name = DefaultSubscriptionName
	}
	return c.svc.store.LatestByName(ctx, c.owner.GetID(), name)
}

// Subscriptions returns all local subscriptions of the owner, newest first.
func (c *Customer) Subscriptions(ctx context.Context) ([]models.Subscription, error) {
	return c.svc.store.ForOwner(ctx, c.owner.GetID())
}
