package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLink_EvictionReason(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		link Link
		want EvictionReason
	}{
		{"live unlimited", Link{ExpiresAt: now.Add(time.Minute)}, ""},
		{"live with quota", Link{ExpiresAt: now.Add(time.Minute), RemainingVisits: IntPtr(1)}, ""},
		{"expires exactly now", Link{ExpiresAt: now}, ReasonExpired},
		{"expired", Link{ExpiresAt: now.Add(-time.Second)}, ReasonExpired},
		{"quota exhausted", Link{ExpiresAt: now.Add(time.Hour), RemainingVisits: IntPtr(0)}, ReasonQuotaExhausted},
		{"expired wins over quota", Link{ExpiresAt: now.Add(-time.Hour), RemainingVisits: IntPtr(0)}, ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.EvictionReason(now))
			assert.Equal(t, tt.want == "", tt.link.IsLive(now))
		})
	}
}

func TestLink_Clone(t *testing.T) {
	orig := Link{Token: "abc123", RemainingVisits: IntPtr(3)}
	cp := orig.Clone()
	*cp.RemainingVisits = 1

	assert.Equal(t, 3, *orig.RemainingVisits)
	assert.Equal(t, "abc123", cp.Token)
	assert.Nil(t, Link{}.Clone().RemainingVisits)
}
