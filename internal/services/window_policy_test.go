package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowPolicyNeverOpenedWithoutInbound(t *testing.T) {
	policy := NewWindowPolicy(24 * time.Hour)

	assert.False(t, policy.IsOpen(sql.NullTime{}))
	assert.Nil(t, policy.ExpiresAt(sql.NullTime{}))
}

func TestWindowPolicyBoundaries(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lastInbound := sql.NullTime{Time: base, Valid: true}

	tests := []struct {
		name string
		now  time.Time
		open bool
	}{
		{"immediately after inbound", base.Add(time.Second), true},
		{"just inside the window", base.Add(24*time.Hour - time.Second), true},
		{"exactly at the window edge", base.Add(24 * time.Hour), false},
		{"well past the window", base.Add(48 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewWindowPolicyWithClock(24*time.Hour, func() time.Time { return tt.now })
			assert.Equal(t, tt.open, policy.IsOpen(lastInbound))
		})
	}
}

func TestWindowPolicyExpiresAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := NewWindowPolicy(24 * time.Hour)

	expiry := policy.ExpiresAt(sql.NullTime{Time: base, Valid: true})
	require.NotNil(t, expiry)
	assert.Equal(t, base.Add(24*time.Hour), *expiry)
}

func TestWindowPolicyReopensOnNewInbound(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(30 * time.Hour)
	policy := NewWindowPolicyWithClock(24*time.Hour, func() time.Time { return now })

	stale := sql.NullTime{Time: base, Valid: true}
	assert.False(t, policy.IsOpen(stale))

	fresh := sql.NullTime{Time: now.Add(-time.Minute), Valid: true}
	assert.True(t, policy.IsOpen(fresh))
}
