package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gupayment/internal/iugu"
)

const (
	defaultCardDescription = "Credit card"
	creditCardItemType     = "credit_card"
)

// Card wraps a gateway payment method owned by a customer.
type Card struct {
	ID          string
	Description string
	Brand       string
	HolderName  string
	// DisplayNumber is the masked number, e.g. XXXX-XXXX-XXXX-1111
	DisplayNumber string
	ExpMonth      int
	ExpYear       int

	customerID string
	gw         iugu.Gateway
}

func newCard(gw iugu.Gateway, customerID string, pm iugu.PaymentMethod) *Card {
	if pm.CustomerID != "" {
		customerID = pm.CustomerID
	}
	return &Card{
		ID:            pm.ID,
		Description:   pm.Description,
		Brand:         pm.Data.Brand,
		HolderName:    pm.Data.HolderName,
		DisplayNumber: pm.Data.DisplayNumber,
		ExpMonth:      pm.Data.Month,
		ExpYear:       pm.Data.Year,
		customerID:    customerID,
		gw:            gw,
	}
}

// LastFour returns the last four digits of the masked card number.
func (c *Card) LastFour() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.DisplayNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Delete removes the payment method from the owning customer.
func (c *Card) Delete(ctx context.Context) error {
	return c.gw.DeletePaymentMethod(ctx, c.customerID, c.ID)
}

// CardOptions tunes CreateCard. A nil SetAsDefault means true.
type CardOptions struct {
	Description  string
	SetAsDefault *bool
}

// DefaultCard returns the customer's default payment method, or nil when
// none is set.
func (c *Customer) DefaultCard(ctx context.Context) (*Card, error) {
	customer, err := c.AsCustomer(ctx)
	if err != nil {
		return nil, err
	}
	if customer.DefaultPaymentMethodID == "" {
		return nil, nil
	}

	pm, err := c.svc.gw.GetPaymentMethod(ctx, customer.ID, customer.DefaultPaymentMethodID)
	if err != nil {
		if errors.Is(err, iugu.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return newCard(c.svc.gw, customer.ID, pm), nil
}

// Cards lists the customer's payment methods. Filters are sent to the gateway
// as query parameters and default to credit cards only.
func (c *Customer) Cards(ctx context.Context, filters map[string]string) ([]*Card, error) {
	customer, err := c.AsCustomer(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{"item_type": creditCardItemType}
	for k, v := range filters {
		params[k] = v
	}

	methods, err := c.svc.gw.ListPaymentMethods(ctx, customer.ID, params)
	if err != nil {
		return nil, err
	}

	cards := make([]*Card, 0, len(methods))
	for _, pm := range methods {
		cards = append(cards, newCard(c.svc.gw, customer.ID, pm))
	}
	return cards, nil
}

// CreateCard stores a tokenized card on the customer.
func (c *Customer) CreateCard(ctx context.Context, token string, opts CardOptions) (*Card, error) {
	customer, err := c.AsCustomer(ctx)
	if err != nil {
		return nil, err
	}

	req := iugu.PaymentMethodRequest{
		Description:  opts.Description,
		Token:        token,
		SetAsDefault: true,
	}
	if req.Description == "" {
		req.Description = defaultCardDescription
	}
	if opts.SetAsDefault != nil {
		req.SetAsDefault = *opts.SetAsDefault
	}

	pm, err := c.svc.gw.CreatePaymentMethod(ctx, customer.ID, req)
	if err != nil {
		return nil, err
	}
	return newCard(c.svc.gw, customer.ID, pm), nil
}

// UpdateCard adds a card from token and makes it the default one.
func (c *Customer) UpdateCard(ctx context.Context, token string) error {
	_, err := c.CreateCard(ctx, token, CardOptions{})
	return err
}

// FindCard looks a card up by id. A card the gateway does not know yields
// (nil, nil); any other failure is returned.
func (c *Customer) FindCard(ctx context.Context, id string) (*Card, error) {
	customerID, err := c.gatewayCustomerID()
	if err != nil {
		return nil, err
	}

	pm, err := c.svc.gw.GetPaymentMethod(ctx, customerID, id)
	if err != nil {
		if errors.Is(err, iugu.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return newCard(c.svc.gw, customerID, pm), nil
}

// FindCardOrFail is FindCard returning ErrNotFound instead of nil.
func (c *Customer) FindCardOrFail(ctx context.Context, id string) (*Card, error) {
	card, err := c.FindCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("%w: card %s", ErrNotFound, id)
	}
	return card, nil
}

func (c *Customer) DeleteCard(ctx context.Context, card *Card) error {
	return card.Delete(ctx)
}

// DeleteCards removes every credit card of the customer, stopping at the
// first failure.
func (c *Customer) DeleteCards(ctx context.Context) error {
	cards, err := c.Cards(ctx, nil)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if err := c.DeleteCard(ctx, card); err != nil {
			return err
		}
	}
	return nil
}
