package services

import (
	"database/sql"
	"time"
)

// WindowPolicy decides whether free-form outbound messaging is allowed
// on a WhatsApp thread. The provider only accepts free-form messages
// within a fixed window after the contact's latest inbound message;
// outside it, pre-approved templates are the only option.
type WindowPolicy struct {
	window time.Duration
	now    func() time.Time
}

func NewWindowPolicy(window time.Duration) *WindowPolicy {
	return &WindowPolicy{window: window, now: time.Now}
}

// NewWindowPolicyWithClock injects a clock for tests.
func NewWindowPolicyWithClock(window time.Duration, now func() time.Time) *WindowPolicy {
	return &WindowPolicy{window: window, now: now}
}

// IsOpen reports whether the thread's free-form window is open. A
// thread that has never received an inbound message has a closed
// window.
func (p *WindowPolicy) IsOpen(lastInboundAt sql.NullTime) bool {
	if !lastInboundAt.Valid {
		return false
	}
	return p.now().Sub(lastInboundAt.Time) < p.window
}

// ExpiresAt returns when the window closes, or nil if it never opened.
func (p *WindowPolicy) ExpiresAt(lastInboundAt sql.NullTime) *time.Time {
	if !lastInboundAt.Valid {
		return nil
	}
	expiry := lastInboundAt.Time.Add(p.window)
	return &expiry
}
