package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gupayment/internal/iugu"
)

const (
	invoiceStatusPaid    = "paid"
	invoiceStatusPending = "pending"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(template.ParseFS(templateFS, "templates/invoice.html"))

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Invoice wraps a gateway invoice with formatting helpers.
type Invoice struct {
	raw iugu.Invoice
}

func newInvoice(raw iugu.Invoice) *Invoice {
	return &Invoice{raw: raw}
}

func (i *Invoice) ID() string         { return i.raw.ID }
func (i *Invoice) Status() string     { return i.raw.Status }
func (i *Invoice) Email() string      { return i.raw.Email }
func (i *Invoice) CustomerID() string { return i.raw.CustomerID }
func (i *Invoice) SecureURL() string  { return i.raw.SecureURL }
func (i *Invoice) TotalCents() int64  { return i.raw.TotalCents }

// Total is the amount due formatted in BRL.
func (i *Invoice) Total() string {
	return formatBRL(i.raw.TotalCents)
}

// SubtotalCents is the sum of the items before discounts.
func (i *Invoice) SubtotalCents() int64 {
	if i.raw.ItemsTotal > 0 {
		return i.raw.ItemsTotal
	}
	var sum int64
	for _, item := range i.raw.Items {
		sum += item.PriceCents * int64(item.Quantity)
	}
	return sum
}

func (i *Invoice) Subtotal() string {
	return formatBRL(i.SubtotalCents())
}

func (i *Invoice) Discount() string {
	return formatBRL(i.raw.DiscountCents)
}

func (i *Invoice) HasDiscount() bool {
	return i.raw.DiscountCents > 0
}

func (i *Invoice) Paid() bool {
	return i.raw.Status == invoiceStatusPaid
}

func (i *Invoice) Pending() bool {
	return i.raw.Status == invoiceStatusPending
}

// Date is the issue date, falling back to the due date. Zero when the
// gateway sent neither.
func (i *Invoice) Date() time.Time {
	if t, err := time.Parse(time.RFC3339, i.raw.CreatedAtISO); err == nil {
		return t
	}
	if t, err := time.Parse(gatewayDateLayout, i.raw.DueDate); err == nil {
		return t
	}
	return time.Time{}
}

// InvoiceItem is a line of an invoice with its amounts formatted.
type InvoiceItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Total       string `json:"total"`
}

func (i *Invoice) Items() []InvoiceItem {
	items := make([]InvoiceItem, 0, len(i.raw.Items))
	for _, item := range i.raw.Items {
		items = append(items, InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       formatBRL(item.PriceCents),
			Total:       formatBRL(item.PriceCents * int64(item.Quantity)),
		})
	}
	return items
}

// InvoiceDocument is a rendered invoice ready to be served or attached.
type InvoiceDocument struct {
	Filename    string
	ContentType string
	Content     []byte
}

type invoiceView struct {
	Invoice     iugu.Invoice
	Data        map[string]string
	Date        string
	Items       []InvoiceItem
	Subtotal    string
	Discount    string
	HasDiscount bool
	Total       string
}

// Download renders the invoice as an HTML document merged with data, which
// carries display fields such as vendor, product, street, location, phone
// and url. When storagePath is set the document is also written there.
func (i *Invoice) Download(data map[string]string, storagePath string) (*InvoiceDocument, error) {
	if data == nil {
		data = map[string]string{}
	}

	date := ""
	if d := i.Date(); !d.IsZero() {
		date = d.Format("02/01/2006")
	}

	var buf bytes.Buffer
	err := invoiceTemplate.Execute(&buf, invoiceView{
		Invoice:     i.raw,
		Data:        data,
		Date:        date,
		Items:       i.Items(),
		Subtotal:    i.Subtotal(),
		Discount:    i.Discount(),
		HasDiscount: i.HasDiscount(),
		Total:       i.Total(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	doc := &InvoiceDocument{
		Filename:    i.filename(data["product"]),
		ContentType: "text/html; charset=utf-8",
		Content:     buf.Bytes(),
	}

	if storagePath != "" {
		if err := os.MkdirAll(storagePath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create invoice storage: %w", err)
		}
		if err := os.WriteFile(filepath.Join(storagePath, doc.Filename), doc.Content, 0o644); err != nil {
			return nil, fmt.Errorf("failed to store invoice: %w", err)
		}
	}
	return doc, nil
}

// filename follows <product>_<month>_<year>.html
func (i *Invoice) filename(product string) string {
	product = strings.Trim(unsafeFilenameChars.ReplaceAllString(product, "-"), "-")
	if product == "" {
		product = "invoice"
	}
	date := i.Date()
	if date.IsZero() {
		return fmt.Sprintf("%s_%s.html", product, i.raw.ID)
	}
	return fmt.Sprintf("%s_%d_%d.html", product, int(date.Month()), date.Year())
}

// Invoices lists the customer's invoices, paid ones only unless
// includePending. Filters override the default page size of 24.
func (c *Customer) Invoices(ctx context.Context, includePending bool, filters map[string]string) ([]*Invoice, error) {
	customer, err := c.AsCustomer(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"limit":       defaultInvoicePageSize,
		"customer_id": customer.ID,
	}
	for k, v := range filters {
		params[k] = v
	}

	raw, err := c.svc.gw.SearchInvoices(ctx, params)
	if err != nil {
		return nil, err
	}

	invoices := make([]*Invoice, 0, len(raw))
	for _, inv := range raw {
		if inv.Status == invoiceStatusPaid || includePending {
			invoices = append(invoices, newInvoice(inv))
		}
	}
	return invoices, nil
}

// FindInvoice fetches an invoice by id. Unknown invoices, and invoices of
// another customer, yield (nil, nil); other failures are returned.
func (c *Customer) FindInvoice(ctx context.Context, id string) (*Invoice, error) {
	raw, err := c.svc.gw.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, iugu.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if raw.CustomerID != "" && c.HasID() && raw.CustomerID != c.owner.GetGatewayCustomerID() {
		return nil, nil
	}
	return newInvoice(raw), nil
}

// FindInvoiceOrFail is FindInvoice returning ErrNotFound instead of nil.
func (c *Customer) FindInvoiceOrFail(ctx context.Context, id string) (*Invoice, error) {
	invoice, err := c.FindInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, id)
	}
	return invoice, nil
}

// DownloadInvoice renders the invoice with the given id.
func (c *Customer) DownloadInvoice(ctx context.Context, id string, data map[string]string, storagePath string) (*InvoiceDocument, error) {
	invoice, err := c.FindInvoiceOrFail(ctx, id)
	if err != nil {
		return nil, err
	}
	return invoice.Download(data, storagePath)
}

// EmailInvoice sends the rendered invoice to the invoice email, or the
// owner's email when the invoice has none.
func (c *Customer) EmailInvoice(ctx context.Context, id string, data map[string]string) error {
	if c.svc.mailer == nil {
		return ErrMailerNotConfigured
	}

	invoice, err := c.FindInvoiceOrFail(ctx, id)
	if err != nil {
		return err
	}
	doc, err := invoice.Download(data, "")
	if err != nil {
		return err
	}

	to := invoice.Email()
	if to == "" {
		to = c.owner.GetEmail()
	}
	subject := fmt.Sprintf("Fatura %s", invoice.ID())
	if vendor := data["vendor"]; vendor != "" {
		subject = fmt.Sprintf("%s - %s", vendor, subject)
	}

	return c.svc.mailer.Send(ctx, EmailMessage{
		To:          to,
		Subject:     subject,
		HTMLContent: string(doc.Content),
		TextContent: fmt.Sprintf("Fatura %s no valor de %s.", invoice.ID(), invoice.Total()),
		Attachments: []EmailAttachment{{Name: doc.Filename, Content: doc.Content}},
	})
}
