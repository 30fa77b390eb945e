package api

import (
	"errors"
	"net/http"
	"strconv"

	"gupayment/internal/config"
	"gupayment/internal/iugu"
	"gupayment/internal/middleware"
	"gupayment/internal/models"
	"gupayment/internal/response"
	"gupayment/internal/services"
	"gupayment/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler carries the dependencies shared by every route
type Handler struct {
	billing  *services.BillingService
	lock     *services.WebhookLock
	notifier *services.WebhookNotifier
	cfg      *config.Config
	db       *gorm.DB
}

// NewHandler creates a route handler. lock and notifier may be nil.
func NewHandler(billing *services.BillingService, lock *services.WebhookLock, notifier *services.WebhookNotifier, cfg *config.Config, db *gorm.DB) *Handler {
	return &Handler{
		billing:  billing,
		lock:     lock,
		notifier: notifier,
		cfg:      cfg,
		db:       db,
	}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Gateway notifications
		iuguGroup := api.Group("/iugu")
		iuguGroup.Use(middleware.WebhookAuthMiddleware(h.cfg.Iugu.WebhookToken))
		{
			iuguGroup.POST("/webhook", h.HandleWebhook)
		}

		// Billing administration (requires admin api key)
		users := api.Group("/users/:id")
		users.Use(middleware.AdminAuthMiddleware(h.cfg.AdminAPIKey))
		{
			users.GET("/invoices", h.ListInvoices)
			users.GET("/invoices/:invoice/download", h.DownloadInvoice)
			users.POST("/invoices/:invoice/email", h.EmailInvoice)

			users.GET("/subscriptions", h.ListSubscriptions)
			users.POST("/subscriptions/:name/cancel", h.CancelSubscription)
			users.POST("/subscriptions/:name/resume", h.ResumeSubscription)
			users.POST("/subscriptions/:name/swap", h.SwapSubscription)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "gupayment",
		})
	})
}

// loadCustomer resolves the :id path parameter to a billable customer.
// It writes the error response itself and returns nil on failure.
func (h *Handler) loadCustomer(c *gin.Context) *services.Customer {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid user id")
		return nil
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, uint(id)).Error; err != nil {
		writeError(c, err)
		return nil
	}
	return h.billing.Customer(&user)
}

// statusFor maps domain and gateway errors to HTTP status codes
func statusFor(err error) int {
	var apiErr *iugu.APIError
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, iugu.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotInGracePeriod):
		return http.StatusConflict
	case errors.Is(err, services.ErrMailerNotConfigured),
		errors.Is(err, iugu.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	response.ErrorJSON(c, status, err.Error())
}
