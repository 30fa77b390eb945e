package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"gupayment/internal/database"
	"gupayment/internal/iugu"
	"gupayment/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGateway struct {
	customers      map[string]iugu.Customer
	paymentMethods map[string][]iugu.PaymentMethod
	invoices       map[string]iugu.Invoice
	subscriptions  map[string]iugu.Subscription

	customerRequests     []iugu.CustomerRequest
	paymentMethodRequest []iugu.PaymentMethodRequest
	chargeRequests       []iugu.ChargeRequest
	subscriptionRequests []iugu.SubscriptionRequest
	listFilters          map[string]string
	searchParams         map[string]string
	calls                []string

	// err is returned by every call when set
	err    error
	nextID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		customers:      map[string]iugu.Customer{},
		paymentMethods: map[string][]iugu.PaymentMethod{},
		invoices:       map[string]iugu.Invoice{},
		subscriptions:  map[string]iugu.Subscription{},
	}
}

func notFound() error {
	return &iugu.APIError{StatusCode: http.StatusNotFound}
}

func (f *fakeGateway) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeGateway) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeGateway) called(call string) bool {
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeGateway) CreateCustomer(ctx context.Context, req iugu.CustomerRequest) (iugu.Customer, error) {
	if err := f.record("CreateCustomer"); err != nil {
		return iugu.Customer{}, err
	}
	f.customerRequests = append(f.customerRequests, req)
	c := iugu.Customer{ID: f.id("cus"), Email: req.Email, Name: req.Name}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeGateway) GetCustomer(ctx context.Context, id string) (iugu.Customer, error) {
	if err := f.record("GetCustomer"); err != nil {
		return iugu.Customer{}, err
	}
	c, ok := f.customers[id]
	if !ok {
		return iugu.Customer{}, notFound()
	}
	return c, nil
}

func (f *fakeGateway) ListPaymentMethods(ctx context.Context, customerID string, filters map[string]string) ([]iugu.PaymentMethod, error) {
	if err := f.record("ListPaymentMethods"); err != nil {
		return nil, err
	}
	f.listFilters = filters
	return f.paymentMethods[customerID], nil
}

func (f *fakeGateway) CreatePaymentMethod(ctx context.Context, customerID string, req iugu.PaymentMethodRequest) (iugu.PaymentMethod, error) {
	if err := f.record("CreatePaymentMethod"); err != nil {
		return iugu.PaymentMethod{}, err
	}
	f.paymentMethodRequest = append(f.paymentMethodRequest, req)
	pm := iugu.PaymentMethod{
		ID:          f.id("pm"),
		Description: req.Description,
		ItemType:    "credit_card",
		Data: iugu.PaymentMethodData{
			Brand:         "VISA",
			DisplayNumber: "XXXX-XXXX-XXXX-1111",
			Month:         12,
			Year:          2030,
		},
	}
	f.paymentMethods[customerID] = append(f.paymentMethods[customerID], pm)
	if req.SetAsDefault {
		c := f.customers[customerID]
		c.DefaultPaymentMethodID = pm.ID
		f.customers[customerID] = c
	}
	return pm, nil
}

func (f *fakeGateway) GetPaymentMethod(ctx context.Context, customerID, id string) (iugu.PaymentMethod, error) {
	if err := f.record("GetPaymentMethod"); err != nil {
		return iugu.PaymentMethod{}, err
	}
	for _, pm := range f.paymentMethods[customerID] {
		if pm.ID == id {
			return pm, nil
		}
	}
	return iugu.PaymentMethod{}, notFound()
}

func (f *fakeGateway) DeletePaymentMethod(ctx context.Context, customerID, id string) error {
	if err := f.record("DeletePaymentMethod"); err != nil {
		return err
	}
	methods := f.paymentMethods[customerID]
	for i, pm := range methods {
		if pm.ID == id {
			f.paymentMethods[customerID] = append(methods[:i], methods[i+1:]...)
			return nil
		}
	}
	return notFound()
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req iugu.ChargeRequest) (iugu.Charge, error) {
	if err := f.record("CreateCharge"); err != nil {
		return iugu.Charge{}, err
	}
	f.chargeRequests = append(f.chargeRequests, req)
	return iugu.Charge{Success: true, Message: "Autorizado", InvoiceID: f.id("inv")}, nil
}

func (f *fakeGateway) SearchInvoices(ctx context.Context, params map[string]string) ([]iugu.Invoice, error) {
	if err := f.record("SearchInvoices"); err != nil {
		return nil, err
	}
	f.searchParams = params
	var out []iugu.Invoice
	for _, inv := range f.invoices {
		if inv.CustomerID == params["customer_id"] {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (f *fakeGateway) GetInvoice(ctx context.Context, id string) (iugu.Invoice, error) {
	if err := f.record("GetInvoice"); err != nil {
		return iugu.Invoice{}, err
	}
	inv, ok := f.invoices[id]
	if !ok {
		return iugu.Invoice{}, notFound()
	}
	return inv, nil
}

func (f *fakeGateway) CreateSubscription(ctx context.Context, req iugu.SubscriptionRequest) (iugu.Subscription, error) {
	if err := f.record("CreateSubscription"); err != nil {
		return iugu.Subscription{}, err
	}
	f.subscriptionRequests = append(f.subscriptionRequests, req)
	s := iugu.Subscription{
		ID:             f.id("sub"),
		CustomerID:     req.CustomerID,
		PlanIdentifier: req.PlanIdentifier,
		ExpiresAt:      req.ExpiresAt,
		Active:         true,
	}
	f.subscriptions[s.ID] = s
	return s, nil
}

func (f *fakeGateway) GetSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	if err := f.record("GetSubscription"); err != nil {
		return iugu.Subscription{}, err
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return iugu.Subscription{}, notFound()
	}
	return s, nil
}

func (f *fakeGateway) ChangePlan(ctx context.Context, id, plan string) (iugu.Subscription, error) {
	if err := f.record("ChangePlan"); err != nil {
		return iugu.Subscription{}, err
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return iugu.Subscription{}, notFound()
	}
	s.PlanIdentifier = plan
	f.subscriptions[id] = s
	return s, nil
}

func (f *fakeGateway) SuspendSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	if err := f.record("SuspendSubscription"); err != nil {
		return iugu.Subscription{}, err
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return iugu.Subscription{}, notFound()
	}
	s.Suspended = true
	f.subscriptions[id] = s
	return s, nil
}

func (f *fakeGateway) ActivateSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	if err := f.record("ActivateSubscription"); err != nil {
		return iugu.Subscription{}, err
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return iugu.Subscription{}, notFound()
	}
	s.Suspended = false
	f.subscriptions[id] = s
	return s, nil
}

func (f *fakeGateway) CreatePaymentToken(ctx context.Context, data iugu.CardData, test bool) (iugu.PaymentToken, error) {
	if err := f.record("CreatePaymentToken"); err != nil {
		return iugu.PaymentToken{}, err
	}
	return iugu.PaymentToken{ID: f.id("tok"), Method: "credit_card", Test: test}, nil
}

// newTestService returns a billing service over a fresh in-memory database.
func newTestService(t *testing.T) (*BillingService, *fakeGateway, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db, "subscriptions", "user_id"))
	store := database.NewSubscriptionStore(db, "subscriptions", "user_id")
	gw := newFakeGateway()
	return NewBillingService(gw, db, store, nil), gw, db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Taylor"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// customerWithCard provisions a gateway customer holding one default card.
func customerWithCard(t *testing.T, svc *BillingService, db *gorm.DB) (*Customer, *models.User) {
	t.Helper()
	user := createUser(t, db, "taylor@example.com")
	customer := svc.Customer(user)
	_, err := customer.CreateAsCustomer(context.Background(), "tok_visa", iugu.CustomerRequest{Name: "Taylor"})
	require.NoError(t, err)
	return customer, user
}
