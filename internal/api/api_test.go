package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gupayment/internal/config"
	"gupayment/internal/database"
	"gupayment/internal/iugu"
	"gupayment/internal/models"
	"gupayment/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAdminKey     = "admin-key"
	testWebhookToken = "hook-token"
)

// stubGateway implements the gateway calls the routes reach. Anything else
// panics through the nil embedded interface.
type stubGateway struct {
	iugu.Gateway

	invoices  map[string]iugu.Invoice
	suspended []string
	activated []string
	plans     map[string]string
	err       error
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		invoices: map[string]iugu.Invoice{},
		plans:    map[string]string{},
	}
}

func (s *stubGateway) GetCustomer(ctx context.Context, id string) (iugu.Customer, error) {
	if s.err != nil {
		return iugu.Customer{}, s.err
	}
	return iugu.Customer{ID: id}, nil
}

func (s *stubGateway) SearchInvoices(ctx context.Context, params map[string]string) ([]iugu.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []iugu.Invoice
	for _, inv := range s.invoices {
		if inv.CustomerID == params["customer_id"] {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *stubGateway) GetInvoice(ctx context.Context, id string) (iugu.Invoice, error) {
	if s.err != nil {
		return iugu.Invoice{}, s.err
	}
	inv, ok := s.invoices[id]
	if !ok {
		return iugu.Invoice{}, &iugu.APIError{StatusCode: http.StatusNotFound}
	}
	return inv, nil
}

func (s *stubGateway) SuspendSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	if s.err != nil {
		return iugu.Subscription{}, s.err
	}
	s.suspended = append(s.suspended, id)
	return iugu.Subscription{ID: id, Suspended: true, ExpiresAt: time.Now().AddDate(0, 0, 10).Format("2006-01-02")}, nil
}

func (s *stubGateway) ActivateSubscription(ctx context.Context, id string) (iugu.Subscription, error) {
	if s.err != nil {
		return iugu.Subscription{}, s.err
	}
	s.activated = append(s.activated, id)
	return iugu.Subscription{ID: id}, nil
}

func (s *stubGateway) ChangePlan(ctx context.Context, id, plan string) (iugu.Subscription, error) {
	if s.err != nil {
		return iugu.Subscription{}, s.err
	}
	s.plans[id] = plan
	return iugu.Subscription{ID: id, PlanIdentifier: plan}, nil
}

type testEnv struct {
	router *gin.Engine
	gw     *stubGateway
	db     *gorm.DB
	store  *database.SubscriptionStore
	cfg    *config.Config
	redis  *miniredis.Miniredis
}

type envOption func(*envConfig)

type envConfig struct {
	mailer      services.Mailer
	withRedis   bool
	callbackURL string
}

func withMailer(m services.Mailer) envOption {
	return func(c *envConfig) { c.mailer = m }
}

func withCallback(url string) envOption {
	return func(c *envConfig) { c.callbackURL = url }
}

func withRedis() envOption {
	return func(c *envConfig) { c.withRedis = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var ec envConfig
	for _, opt := range opts {
		opt(&ec)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db, "subscriptions", "user_id"))

	cfg := &config.Config{
		AdminAPIKey: testAdminKey,
		Iugu: config.IuguConfig{
			WebhookToken: testWebhookToken,
		},
	}

	env := &testEnv{
		gw:    newStubGateway(),
		db:    db,
		store: database.NewSubscriptionStore(db, "subscriptions", "user_id"),
		cfg:   cfg,
	}

	var lock *services.WebhookLock
	if ec.withRedis {
		env.redis = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		lock = services.NewWebhookLock(client, 30*time.Second)
	}

	billing := services.NewBillingService(env.gw, db, env.store, ec.mailer)
	env.router = gin.New()
	notifier := services.NewWebhookNotifier(ec.callbackURL, "callback-secret")
	SetupRoutes(env.router, NewHandler(billing, lock, notifier, cfg, db))
	return env
}

func (e *testEnv) createUser(t *testing.T, gatewayID string) *models.User {
	t.Helper()
	user := &models.User{Email: "taylor@example.com", Name: "Taylor"}
	if gatewayID != "" {
		user.SetGatewayCustomerID(gatewayID)
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createSubscription(t *testing.T, user *models.User, name, gatewayID string) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{Name: name, GatewayID: gatewayID, PlanIdentifier: "gold"}
	require.NoError(t, e.store.Create(context.Background(), user.ID, sub, nil))
	return sub
}

func (e *testEnv) reload(t *testing.T, gatewayID string) *models.Subscription {
	t.Helper()
	sub, err := e.store.FindByGatewayID(context.Background(), gatewayID)
	require.NoError(t, err)
	return sub
}

func (e *testEnv) admin(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", testAdminKey)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
