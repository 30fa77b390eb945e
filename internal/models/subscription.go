package models

import (
	"time"
)

const (
	SubscriptionStatusTrialing    = "trialing"
	SubscriptionStatusActive      = "active"
	SubscriptionStatusGracePeriod = "grace_period"
	SubscriptionStatusExpired     = "expired"
)

// Subscription is the local mirror of a gateway subscription.
// The owner column name is configurable, so it is never written through this
// struct; queries alias it to owner_id on read.
type Subscription struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	OwnerID        uint       `json:"owner_id" gorm:"column:owner_id;->;-:migration"`
	Name           string     `json:"name" gorm:"not null;size:100;index"`
	GatewayID      string     `json:"gateway_id" gorm:"column:gateway_id;not null;size:100;index"`
	PlanIdentifier string     `json:"plan_identifier" gorm:"column:plan_identifier;not null;size:100"`
	TrialEndsAt    *time.Time `json:"trial_ends_at"`
	EndsAt         *time.Time `json:"ends_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Valid reports whether the subscription is active, on trial, or within its grace period.
func (s *Subscription) Valid() bool {
	return s.ValidAt(time.Now())
}

func (s *Subscription) ValidAt(now time.Time) bool {
	return s.ActiveAt(now) || s.OnTrialAt(now) || s.OnGracePeriodAt(now)
}

// Active is true until the subscription is cancelled and its grace period has run out.
func (s *Subscription) Active() bool {
	return s.ActiveAt(time.Now())
}

func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriodAt(now)
}

// Cancelled is true once an end date is set, whether or not it has passed.
func (s *Subscription) Cancelled() bool {
	return s.EndsAt != nil
}

func (s *Subscription) OnTrial() bool {
	return s.OnTrialAt(time.Now())
}

// OnTrialAt compares against the start of the day, so a trial ending later
// today still counts.
func (s *Subscription) OnTrialAt(now time.Time) bool {
	if s.TrialEndsAt == nil {
		return false
	}
	return startOfDay(now).Before(*s.TrialEndsAt)
}

func (s *Subscription) OnGracePeriod() bool {
	return s.OnGracePeriodAt(time.Now())
}

func (s *Subscription) OnGracePeriodAt(now time.Time) bool {
	if s.EndsAt == nil {
		return false
	}
	return now.Before(*s.EndsAt)
}

// Ended is true for a cancelled subscription past its grace period.
func (s *Subscription) Ended() bool {
	return s.Cancelled() && !s.OnGracePeriod()
}

// Status is a display label derived from the timestamps.
func (s *Subscription) Status() string {
	now := time.Now()
	switch {
	case s.OnGracePeriodAt(now):
		return SubscriptionStatusGracePeriod
	case s.Cancelled():
		return SubscriptionStatusExpired
	case s.OnTrialAt(now):
		return SubscriptionStatusTrialing
	default:
		return SubscriptionStatusActive
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
