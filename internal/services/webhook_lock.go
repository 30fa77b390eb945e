package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"gupayment/pkg/logging"

	"github.com/redis/go-redis/v9"
)

const webhookLockPrefix = "gupayment:webhook:lock:"

// WebhookLock keeps two deliveries of the same webhook from being applied
// at the same time. The key lives only while a delivery is processed, so a
// later repeat of the same event is applied again. A nil client disables
// the lock.
type WebhookLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWebhookLock creates a lock whose keys expire after ttl if a delivery
// never releases them.
func NewWebhookLock(client *redis.Client, ttl time.Duration) *WebhookLock {
	return &WebhookLock{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured
func (l *WebhookLock) Enabled() bool {
	return l != nil && l.client != nil
}

// Acquire takes the lock for fingerprint and reports whether this delivery
// holds it. Redis failures are logged and let the delivery through.
func (l *WebhookLock) Acquire(ctx context.Context, fingerprint string) bool {
	if !l.Enabled() || fingerprint == "" {
		return true
	}

	stored, err := l.client.SetNX(ctx, webhookLockPrefix+fingerprint, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		logging.Errorf("Webhook lock unavailable: %v", err)
		return true
	}
	if !stored {
		logging.Infof("Webhook already in progress - fingerprint: %s", fingerprint)
	}
	return stored
}

// Release drops the lock for fingerprint
func (l *WebhookLock) Release(ctx context.Context, fingerprint string) {
	if !l.Enabled() || fingerprint == "" {
		return
	}
	if err := l.client.Del(ctx, webhookLockPrefix+fingerprint).Err(); err != nil {
		logging.Errorf("Failed to release webhook lock %s: %v", fingerprint, err)
	}
}

// WebhookFingerprint hashes an event name and its data fields, independent
// of field order.
func WebhookFingerprint(event string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(event)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(data[k])
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
