package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gupayment/internal/models"
	"gupayment/internal/response"
	"gupayment/internal/services"
	"gupayment/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	webhookHandled    = "Webhook Handled"
	webhookSkipped    = "Webhook Skipped"
	webhookInProgress = "Webhook In Progress"
)

// webhookHandler applies one gateway event and returns the status and body
// to answer with.
type webhookHandler func(h *Handler, c *gin.Context, data map[string]string) (int, string)

// webhookHandlers maps normalized event names to their handlers.
// Events missing from the table are acknowledged and ignored.
var webhookHandlers = map[string]webhookHandler{
	"SubscriptionSuspended": (*Handler).handleSubscriptionSuspended,
	"SubscriptionExpired":   (*Handler).handleSubscriptionExpired,
}

// WebhookRequest is the JSON form of a gateway notification
type WebhookRequest struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// HandleWebhook receives gateway notifications
// POST /api/iugu/webhook
func (h *Handler) HandleWebhook(c *gin.Context) {
	event, data, err := parseWebhook(c)
	if err != nil {
		logging.Errorf("Failed to parse webhook payload: %v", err)
		response.Text(c, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if event == "" {
		response.Text(c, http.StatusBadRequest, "Missing event")
		return
	}

	handler, ok := webhookHandlers[webhookMethod(event)]
	if !ok {
		logging.Infof("Ignoring webhook event %s", event)
		c.Status(http.StatusOK)
		return
	}

	// repeats are applied again, only a concurrent identical delivery is turned away
	ctx := c.Request.Context()
	fingerprint := services.WebhookFingerprint(event, data)
	if !h.lock.Acquire(ctx, fingerprint) {
		response.Text(c, http.StatusConflict, webhookInProgress)
		return
	}
	defer h.lock.Release(ctx, fingerprint)

	status, body := handler(h, c, data)
	logging.Infof("Webhook %s processed - status: %d, result: %s", event, status, body)
	response.Text(c, status, body)
}

func (h *Handler) handleSubscriptionSuspended(c *gin.Context, data map[string]string) (int, string) {
	id := data["id"]
	if id == "" {
		return http.StatusBadRequest, "Missing subscription id"
	}

	sub, status, body := h.findWebhookSubscription(c, id)
	if sub == nil {
		return status, body
	}

	if err := h.billing.Subscriptions().MarkAsCancelled(c.Request.Context(), sub); err != nil {
		logging.Errorf("Failed to cancel subscription %s from webhook: %v", id, err)
		return http.StatusInternalServerError, "Webhook Failed"
	}
	h.notifier.NotifySubscriptionChanged("subscription.suspended", sub)
	return http.StatusOK, webhookHandled
}

func (h *Handler) handleSubscriptionExpired(c *gin.Context, data map[string]string) (int, string) {
	id := data["id"]
	if id == "" {
		return http.StatusBadRequest, "Missing subscription id"
	}
	expiresAt := data["expires_at"]
	if expiresAt == "" {
		return http.StatusBadRequest, "Missing expires_at"
	}

	sub, status, body := h.findWebhookSubscription(c, id)
	if sub == nil {
		return status, body
	}

	if err := h.billing.Subscriptions().ExpireOn(c.Request.Context(), sub, expiresAt); err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			return http.StatusBadRequest, err.Error()
		}
		logging.Errorf("Failed to expire subscription %s from webhook: %v", id, err)
		return http.StatusInternalServerError, "Webhook Failed"
	}
	h.notifier.NotifySubscriptionChanged("subscription.expired", sub)
	return http.StatusOK, webhookHandled
}

// findWebhookSubscription loads the local row for a gateway subscription.
// A nil subscription comes with the response to send instead.
func (h *Handler) findWebhookSubscription(c *gin.Context, gatewayID string) (*models.Subscription, int, string) {
	sub, err := h.billing.Subscriptions().FindByGatewayID(c.Request.Context(), gatewayID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Warnf("Webhook skipped: no local subscription for %s", gatewayID)
		return nil, http.StatusOK, webhookSkipped
	}
	if err != nil {
		logging.Errorf("Failed to load subscription %s: %v", gatewayID, err)
		return nil, http.StatusInternalServerError, "Webhook Failed"
	}
	return sub, http.StatusOK, ""
}

// parseWebhook reads the event name and its data fields from either a JSON
// body or the form encoding the gateway posts by default.
func parseWebhook(c *gin.Context) (string, map[string]string, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req WebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", nil, err
		}
		data := make(map[string]string, len(req.Data))
		for k, v := range req.Data {
			if v == nil {
				continue
			}
			data[k] = fmt.Sprint(v)
		}
		return req.Event, data, nil
	}

	return c.PostForm("event"), c.PostFormMap("data"), nil
}

// webhookMethod turns "subscription.expired" into "SubscriptionExpired"
func webhookMethod(event string) string {
	parts := strings.FieldsFunc(event, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}
