package model

import (
	"time"

	"github.com/manojnerkar/viep/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is allowed. Expired and
// cancelled are terminal.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	switch s {
	case SubscriptionStatusActive:
		return next == SubscriptionStatusExpired || next == SubscriptionStatusCancelled
	case SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return false
	}
	return false
}

// Subscription is the entitlement window granted by a completed payment.
type Subscription struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	PlanID       string             `json:"plan_id"`
	PaymentID    string             `json:"payment_id"`
	Status       SubscriptionStatus `json:"status"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	AutoRenew    bool               `json:"auto_renew"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	// CarriedFromID names the superseded subscription whose unused time opens
	// this window; that time runs until CarriedUntil.
	CarriedFromID *string    `json:"carried_from_id,omitempty"`
	CarriedUntil  *time.Time `json:"carried_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewSubscription builds an active subscription for a completed payment.
// The window starts at now. When prior still has time left at now, that
// time is consumed first and the plan duration follows it.
func NewSubscription(id string, payment *Payment, plan *Plan, now time.Time, prior *Subscription) (*Subscription, error) {
	if id == "" || payment == nil || plan.IsZero() || plan.DurationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if payment.Status != PaymentStatusCompleted {
		return nil, domain.ErrInvalidStateTransition
	}
	s := &Subscription{
		ID:        id,
		UserID:    payment.UserID,
		PlanID:    plan.ID,
		PaymentID: payment.ID,
		Status:    SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.Add(plan.Duration()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prior != nil && prior.EndDate.After(now) {
		priorID, until := prior.ID, prior.EndDate
		s.CarriedFromID = &priorID
		s.CarriedUntil = &until
		s.EndDate = until.Add(plan.Duration())
	}
	return s, nil
}

// OwnStart is where the time bought by this subscription's own payment
// begins: after any carried time.
func (s *Subscription) OwnStart() time.Time {
	if s.CarriedUntil != nil && s.CarriedUntil.After(s.StartDate) {
		return *s.CarriedUntil
	}
	return s.StartDate
}

// UnusedAt is the part of the own window not yet consumed at t.
func (s *Subscription) UnusedAt(t time.Time) time.Duration {
	from := s.OwnStart()
	if t.After(from) {
		from = t
	}
	if !s.EndDate.After(from) {
		return 0
	}
	return s.EndDate.Sub(from)
}

// Shift moves the end of the window, and the end of the carried part, d earlier.
func (s *Subscription) Shift(d time.Duration) {
	s.EndDate = s.EndDate.Add(-d)
	if s.CarriedUntil != nil {
		c := s.CarriedUntil.Add(-d)
		s.CarriedUntil = &c
	}
}

// IsCurrent reports whether s grants entitlement at t.
func (s *Subscription) IsCurrent(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.EndDate.Before(t)
}
