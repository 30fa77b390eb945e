package iugu

// CustomVariable is a free-form name/value pair Iugu stores on customers and
// subscriptions.
type CustomVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Customer struct {
	ID                     string           `json:"id"`
	Email                  string           `json:"email"`
	Name                   string           `json:"name"`
	Notes                  string           `json:"notes"`
	DefaultPaymentMethodID string           `json:"default_payment_method_id"`
	CustomVariables        []CustomVariable `json:"custom_variables"`
	CreatedAt              string           `json:"created_at"`
	UpdatedAt              string           `json:"updated_at"`
}

// CustomerRequest is the body of POST /customers.
type CustomerRequest struct {
	Email           string           `json:"email"`
	Name            string           `json:"name,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CPFCNPJ         string           `json:"cpf_cnpj,omitempty"`
	Coupon          string           `json:"coupon,omitempty"`
	CustomVariables []CustomVariable `json:"custom_variables,omitempty"`
}

type PaymentMethodData struct {
	HolderName    string `json:"holder_name"`
	DisplayNumber string `json:"display_number"`
	Brand         string `json:"brand"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
}

type PaymentMethod struct {
	ID          string            `json:"id"`
	CustomerID  string            `json:"customer_id,omitempty"`
	Description string            `json:"description"`
	ItemType    string            `json:"item_type"`
	Data        PaymentMethodData `json:"data"`
}

// PaymentMethodRequest is the body of POST /customers/:id/payment_methods.
type PaymentMethodRequest struct {
	Description  string `json:"description"`
	Token        string `json:"token,omitempty"`
	SetAsDefault bool   `json:"set_as_default"`
}

type Item struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
	Price       string `json:"price,omitempty"`
}

// ChargeRequest is the body of POST /charge. Exactly one payment source
// (Method, Token or CustomerPaymentMethodID) is expected by the gateway.
type ChargeRequest struct {
	Method                  string `json:"method,omitempty"`
	Token                   string `json:"token,omitempty"`
	CustomerPaymentMethodID string `json:"customer_payment_method_id,omitempty"`
	CustomerID              string `json:"customer_id,omitempty"`
	InvoiceID               string `json:"invoice_id,omitempty"`
	Email                   string `json:"email,omitempty"`
	Months                  int    `json:"months,omitempty"`
	DiscountCents           int64  `json:"discount_cents,omitempty"`
	Items                   []Item `json:"items,omitempty"`
}

type Charge struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	URL            string `json:"url"`
	PDF            string `json:"pdf"`
	Identification string `json:"identification"`
	InvoiceID      string `json:"invoice_id"`
	LR             string `json:"LR"`
}

type Invoice struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customer_id"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	Currency      string `json:"currency"`
	DueDate       string `json:"due_date"`
	PaidAt        string `json:"paid_at"`
	CreatedAtISO  string `json:"created_at_iso"`
	Total         string `json:"total"`
	TotalCents    int64  `json:"total_cents"`
	ItemsTotal    int64  `json:"items_total_cents"`
	DiscountCents int64  `json:"discount_cents"`
	SecureURL     string `json:"secure_url"`
	Items         []Item `json:"items"`
}

// InvoiceList is the envelope of GET /invoices.
type InvoiceList struct {
	TotalItems int       `json:"totalItems"`
	Items      []Invoice `json:"items"`
}

type Subscription struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id"`
	PlanIdentifier  string           `json:"plan_identifier"`
	ExpiresAt       string           `json:"expires_at"`
	Suspended       bool             `json:"suspended"`
	Active          bool             `json:"active"`
	PriceCents      int64            `json:"price_cents"`
	CustomVariables []CustomVariable `json:"custom_variables"`
}

// SubscriptionRequest is the body of POST /subscriptions.
type SubscriptionRequest struct {
	PlanIdentifier  string           `json:"plan_identifier"`
	CustomerID      string           `json:"customer_id"`
	ExpiresAt       string           `json:"expires_at,omitempty"`
	CustomVariables []CustomVariable `json:"custom_variables,omitempty"`
}

type CardData struct {
	Number            string `json:"number"`
	VerificationValue string `json:"verification_value"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Month             string `json:"month"`
	Year              string `json:"year"`
}

// PaymentTokenRequest is the body of POST /payment_token.
type PaymentTokenRequest struct {
	AccountID string   `json:"account_id"`
	Method    string   `json:"method"`
	Test      bool     `json:"test,omitempty"`
	Data      CardData `json:"data"`
}

type PaymentToken struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Test   bool   `json:"test"`
}
