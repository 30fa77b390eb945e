package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gupayment/internal/models"
	"gupayment/pkg/logging"

	"github.com/cenkalti/backoff/v4"
)

const signatureHeader = "X-Gupayment-Signature"

// WebhookNotifier forwards subscription changes applied from gateway
// webhooks to the app backend.
type WebhookNotifier struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewWebhookNotifier creates a notifier posting to callbackURL. An empty URL
// disables notifications.
func NewWebhookNotifier(callbackURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		callbackURL: callbackURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// SubscriptionEvent is the payload sent to the app backend
type SubscriptionEvent struct {
	Event          string `json:"event"`
	OwnerID        uint   `json:"owner_id"`
	Name           string `json:"name"`
	GatewayID      string `json:"gateway_id"`
	PlanIdentifier string `json:"plan_identifier"`
	Status         string `json:"status"`
	EndsAt         string `json:"ends_at,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Enabled reports whether a callback URL is configured
func (wn *WebhookNotifier) Enabled() bool {
	return wn != nil && wn.callbackURL != ""
}

// NotifySubscriptionChanged posts sub's new state in the background.
func (wn *WebhookNotifier) NotifySubscriptionChanged(event string, sub *models.Subscription) {
	if !wn.Enabled() {
		return
	}

	payload := SubscriptionEvent{
		Event:          event,
		OwnerID:        sub.OwnerID,
		Name:           sub.Name,
		GatewayID:      sub.GatewayID,
		PlanIdentifier: sub.PlanIdentifier,
		Status:         sub.Status(),
		Timestamp:      time.Now().Format(time.RFC3339),
	}
	if sub.EndsAt != nil {
		payload.EndsAt = sub.EndsAt.Format(time.RFC3339)
	}

	go wn.sendWithRetry(context.Background(), payload)
}

// scheduleBackOff waits the given delays in order, then stops.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.next]
	b.next++
	return d
}

func (b *scheduleBackOff) Reset() {
	b.next = 0
}

// sendWithRetry makes a first attempt and one more after each retry delay.
func (wn *WebhookNotifier) sendWithRetry(ctx context.Context, payload SubscriptionEvent) error {
	attempt := 0
	operation := func() error {
		attempt++
		return wn.send(ctx, payload)
	}
	notify := func(err error, wait time.Duration) {
		logging.Errorf("Subscription callback failed - url: %s, subscription: %s, attempt: %d, retry in: %s, error: %v",
			wn.callbackURL, payload.GatewayID, attempt, wait, err)
	}

	policy := backoff.WithContext(&scheduleBackOff{delays: wn.retryDelays}, ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		logging.Errorf("Subscription callback failed after %d attempts - url: %s, subscription: %s, error: %v",
			attempt, wn.callbackURL, payload.GatewayID, err)
		return err
	}

	logging.Infof("Subscription callback sent - url: %s, subscription: %s, attempt: %d",
		wn.callbackURL, payload.GatewayID, attempt)
	return nil
}

func (wn *WebhookNotifier) send(ctx context.Context, payload SubscriptionEvent) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gupayment-webhook/1.0")
	if wn.secret != "" {
		req.Header.Set(signatureHeader, SignPayload(body, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
