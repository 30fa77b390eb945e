package api

import (
	"net/http"
	"time"

	"gupayment/internal/models"
	"gupayment/internal/response"
	"gupayment/internal/services"

	"github.com/gin-gonic/gin"
)

// SubscriptionStatusResponse represents one subscription's status
type SubscriptionStatusResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	GatewayID   string `json:"gateway_id"`
	Plan        string `json:"plan"`
	Status      string `json:"status"`
	IsValid     bool   `json:"is_valid"`
	OnTrial     bool   `json:"on_trial"`
	Cancelled   bool   `json:"cancelled"`
	TrialEndsAt string `json:"trial_ends_at,omitempty"`
	EndsAt      string `json:"ends_at,omitempty"`
}

func newSubscriptionStatus(sub *models.Subscription) SubscriptionStatusResponse {
	resp := SubscriptionStatusResponse{
		ID:        sub.ID,
		Name:      sub.Name,
		GatewayID: sub.GatewayID,
		Plan:      sub.PlanIdentifier,
		Status:    sub.Status(),
		IsValid:   sub.Valid(),
		OnTrial:   sub.OnTrial(),
		Cancelled: sub.Cancelled(),
	}
	if sub.TrialEndsAt != nil {
		resp.TrialEndsAt = sub.TrialEndsAt.Format(time.RFC3339)
	}
	if sub.EndsAt != nil {
		resp.EndsAt = sub.EndsAt.Format(time.RFC3339)
	}
	return resp
}

// ListSubscriptions lists a user's subscriptions, newest first
// GET /api/users/:id/subscriptions
func (h *Handler) ListSubscriptions(c *gin.Context) {
	customer := h.loadCustomer(c)
	if customer == nil {
		return
	}

	subs, err := customer.Subscriptions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	statuses := make([]SubscriptionStatusResponse, 0, len(subs))
	for i := range subs {
		statuses = append(statuses, newSubscriptionStatus(&subs[i]))
	}
	response.SuccessJSON(c, statuses)
}

// CancelSubscription cancels at the end of the billing period, or immediately with ?now=true
// POST /api/users/:id/subscriptions/:name/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	h.withSubscription(c, func(sub *models.Subscription) error {
		if c.Query("now") == "true" {
			return h.billing.Subscriptions().CancelNow(c.Request.Context(), sub)
		}
		return h.billing.Subscriptions().Cancel(c.Request.Context(), sub)
	})
}

// ResumeSubscription reactivates a subscription within its grace period
// POST /api/users/:id/subscriptions/:name/resume
func (h *Handler) ResumeSubscription(c *gin.Context) {
	h.withSubscription(c, func(sub *models.Subscription) error {
		return h.billing.Subscriptions().Resume(c.Request.Context(), sub)
	})
}

// SwapSubscriptionRequest represents swap plan request
type SwapSubscriptionRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// SwapSubscription moves a subscription to another plan
// POST /api/users/:id/subscriptions/:name/swap
func (h *Handler) SwapSubscription(c *gin.Context) {
	var req SwapSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	h.withSubscription(c, func(sub *models.Subscription) error {
		return h.billing.Subscriptions().Swap(c.Request.Context(), sub, req.Plan)
	})
}

// withSubscription loads the user's newest subscription named :name, applies
// fn and answers with the resulting status.
func (h *Handler) withSubscription(c *gin.Context, fn func(sub *models.Subscription) error) {
	customer := h.loadCustomer(c)
	if customer == nil {
		return
	}

	sub, err := customer.Subscription(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if sub == nil {
		writeError(c, services.ErrNotFound)
		return
	}

	if err := fn(sub); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, newSubscriptionStatus(sub))
}
