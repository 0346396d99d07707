package model

import "time"

// EvictionReason says why a link stopped being live
type EvictionReason string

const (
	ReasonExpired        EvictionReason = "expired"
	ReasonQuotaExhausted EvictionReason = "quota_exhausted"
)

// User owns a collection of links
type User struct {
	ID        string    `json:"uuid"`       // stable opaque identifier
	Name      string    `json:"name"`       // unique, letters only
	CreatedAt time.Time `json:"created_at"` // first authentication
}

// Link is a short token mapped to a destination, bounded by expiry and an optional visit quota
type Link struct {
	Token           string    `json:"token"`                      // globally unique
	Destination     string    `json:"destination"`                // reachable at create/edit time
	CreatedAt       time.Time `json:"created_at"`                 // timestamp of creation
	ExpiresAt       time.Time `json:"expires_at"`                 // absolute expiry
	RemainingVisits *int      `json:"remaining_visits,omitempty"` // nil means unlimited
	VisitCount      uint64    `json:"visit_count"`                // successful redirects so far
}

// EvictionReason returns "" while the link is live at now
func (l Link) EvictionReason(now time.Time) EvictionReason {
	if !now.Before(l.ExpiresAt) {
		return ReasonExpired
	}
	if l.RemainingVisits != nil && *l.RemainingVisits <= 0 {
		return ReasonQuotaExhausted
	}
	return ""
}

// IsLive reports whether the link may still serve redirects at now
func (l Link) IsLive(now time.Time) bool {
	return l.EvictionReason(now) == ""
}

// Clone returns a copy that shares no memory with l
func (l Link) Clone() Link {
	if l.RemainingVisits != nil {
		v := *l.RemainingVisits
		l.RemainingVisits = &v
	}
	return l
}

// IntPtr is a small helper for optional visit limits
func IntPtr(v int) *int {
	return &v
}
