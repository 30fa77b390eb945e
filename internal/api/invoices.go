package api

import (
	"fmt"
	"net/http"

	"gupayment/internal/response"
	"gupayment/internal/services"

	"github.com/gin-gonic/gin"
)

// invoiceDataKeys are the query parameters forwarded to the invoice template
var invoiceDataKeys = []string{"vendor", "product", "street", "location", "phone", "url"}

// InvoiceResponse is the JSON summary of a gateway invoice
type InvoiceResponse struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Date      string                 `json:"date,omitempty"`
	Total     string                 `json:"total"`
	Subtotal  string                 `json:"subtotal"`
	Discount  string                 `json:"discount,omitempty"`
	SecureURL string                 `json:"secure_url,omitempty"`
	Items     []services.InvoiceItem `json:"items"`
}

func newInvoiceResponse(inv *services.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:        inv.ID(),
		Status:    inv.Status(),
		Total:     inv.Total(),
		Subtotal:  inv.Subtotal(),
		SecureURL: inv.SecureURL(),
		Items:     inv.Items(),
	}
	if date := inv.Date(); !date.IsZero() {
		resp.Date = date.Format("2006-01-02")
	}
	if inv.HasDiscount() {
		resp.Discount = inv.Discount()
	}
	return resp
}

// ListInvoices lists a user's paid invoices, or all of them with ?pending=true
// GET /api/users/:id/invoices
func (h *Handler) ListInvoices(c *gin.Context) {
	customer := h.loadCustomer(c)
	if customer == nil {
		return
	}

	filters := map[string]string{}
	if limit := c.Query("limit"); limit != "" {
		filters["limit"] = limit
	}

	invoices, err := customer.Invoices(c.Request.Context(), c.Query("pending") == "true", filters)
	if err != nil {
		writeError(c, err)
		return
	}

	data := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		data = append(data, newInvoiceResponse(inv))
	}
	response.SuccessJSON(c, data)
}

// DownloadInvoice renders an invoice document
// GET /api/users/:id/invoices/:invoice/download
func (h *Handler) DownloadInvoice(c *gin.Context) {
	customer := h.loadCustomer(c)
	if customer == nil {
		return
	}

	data := make(map[string]string)
	for _, key := range invoiceDataKeys {
		if v := c.Query(key); v != "" {
			data[key] = v
		}
	}

	doc, err := customer.DownloadInvoice(c.Request.Context(), c.Param("invoice"), data, h.cfg.InvoiceStoragePath)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// EmailInvoice sends an invoice document to the customer
// POST /api/users/:id/invoices/:invoice/email
func (h *Handler) EmailInvoice(c *gin.Context) {
	customer := h.loadCustomer(c)
	if customer == nil {
		return
	}

	data := make(map[string]string)
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&data); err != nil {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
			return
		}
	}

	if err := customer.EmailInvoice(c.Request.Context(), c.Param("invoice"), data); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Invoice sent",
	})
}
