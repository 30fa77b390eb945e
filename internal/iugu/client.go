package iugu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway abstracts the Iugu operations the billing layer needs.
// Methods return values (not pointers) so callers never hold SDK state.
type Gateway interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)

	ListPaymentMethods(ctx context.Context, customerID string, filters map[string]string) ([]PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, customerID string, req PaymentMethodRequest) (PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, customerID, id string) (PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, customerID, id string) error

	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)

	SearchInvoices(ctx context.Context, params map[string]string) ([]Invoice, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)

	CreateSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error)
	GetSubscription(ctx context.Context, id string) (Subscription, error)
	ChangePlan(ctx context.Context, id, plan string) (Subscription, error)
	SuspendSubscription(ctx context.Context, id string) (Subscription, error)
	ActivateSubscription(ctx context.Context, id string) (Subscription, error)

	CreatePaymentToken(ctx context.Context, data CardData, test bool) (PaymentToken, error)
}

// Client talks to the Iugu REST API using HTTP basic auth with the API key
// as the user name.
type Client struct {
	apiKey     string
	accountID  string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithAccountID(accountID string) Option {
	return func(c *Client) { c.accountID = accountID }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a gateway client bound to apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://api.iugu.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodPost, "/customers", nil, req, &out)
	return out, err
}

func (c *Client) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListPaymentMethods(ctx context.Context, customerID string, filters map[string]string) ([]PaymentMethod, error) {
	var out []PaymentMethod
	err := c.do(ctx, http.MethodGet, paymentMethodsPath(customerID), toQuery(filters), nil, &out)
	return out, err
}

func (c *Client) CreatePaymentMethod(ctx context.Context, customerID string, req PaymentMethodRequest) (PaymentMethod, error) {
	var out PaymentMethod
	err := c.do(ctx, http.MethodPost, paymentMethodsPath(customerID), nil, req, &out)
	return out, err
}

func (c *Client) GetPaymentMethod(ctx context.Context, customerID, id string) (PaymentMethod, error) {
	var out PaymentMethod
	err := c.do(ctx, http.MethodGet, paymentMethodsPath(customerID)+"/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) DeletePaymentMethod(ctx context.Context, customerID, id string) error {
	return c.do(ctx, http.MethodDelete, paymentMethodsPath(customerID)+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	var out Charge
	err := c.do(ctx, http.MethodPost, "/charge", nil, req, &out)
	return out, err
}

func (c *Client) SearchInvoices(ctx context.Context, params map[string]string) ([]Invoice, error) {
	var out InvoiceList
	if err := c.do(ctx, http.MethodGet, "/invoices", toQuery(params), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	var out Invoice
	err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions", nil, req, &out)
	return out, err
}

func (c *Client) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ChangePlan(ctx context.Context, id, plan string) (Subscription, error) {
	var out Subscription
	path := "/subscriptions/" + url.PathEscape(id) + "/change_plan/" + url.PathEscape(plan)
	err := c.do(ctx, http.MethodPost, path, nil, nil, &out)
	return out, err
}

func (c *Client) SuspendSubscription(ctx context.Context, id string) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions/"+url.PathEscape(id)+"/suspend", nil, nil, &out)
	return out, err
}

func (c *Client) ActivateSubscription(ctx context.Context, id string) (Subscription, error) {
	var out Subscription
	err := c.do(ctx, http.MethodPost, "/subscriptions/"+url.PathEscape(id)+"/activate", nil, nil, &out)
	return out, err
}

// CreatePaymentToken tokenizes raw card data against the configured account.
func (c *Client) CreatePaymentToken(ctx context.Context, data CardData, test bool) (PaymentToken, error) {
	var out PaymentToken
	req := PaymentTokenRequest{
		AccountID: c.accountID,
		Method:    "credit_card",
		Test:      test,
		Data:      data,
	}
	err := c.do(ctx, http.MethodPost, "/payment_token", nil, req, &out)
	return out, err
}

// do sends a single request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Errors json.RawMessage `json:"errors"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Errors = envelope.Errors
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func paymentMethodsPath(customerID string) string {
	return "/customers/" + url.PathEscape(customerID) + "/payment_methods"
}

func toQuery(params map[string]string) url.Values {
	if len(params) == 0 {
		return nil
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}
