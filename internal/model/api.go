package model

import "time"

// AuthenticateRequest is the body of POST /api/users
type AuthenticateRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// UserResponse is returned after authentication
type UserResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"` // false when an existing user was resumed
}

// CreateLinkRequest is the API request body
type CreateLinkRequest struct {
	URL        string `json:"url" validate:"required,url,max=2048"`
	Duration   string `json:"duration" validate:"required"` // e.g. "1d 2h 30m"
	VisitLimit *int   `json:"visit_limit,omitempty" validate:"omitempty,min=1"`
}

// CreateLinkResponse is the API response
type CreateLinkResponse struct {
	ShortURL        string    `json:"short_url"` // base URL + token
	Token           string    `json:"token"`
	Destination     string    `json:"destination"`
	ExpiresAt       time.Time `json:"expires_at"`
	RemainingVisits *int      `json:"remaining_visits,omitempty"`
	Warnings        []string  `json:"warnings,omitempty"` // skipped duration tokens
}

// EditLinkRequest carries optional replacements; nil keeps the current value
type EditLinkRequest struct {
	Destination *string `json:"url,omitempty" validate:"omitempty,url,max=2048"`
	Duration    *string `json:"duration,omitempty"`
	VisitLimit  *int    `json:"visit_limit,omitempty" validate:"omitempty,min=1"`
}

// IsEmpty reports whether the edit changes nothing
func (r EditLinkRequest) IsEmpty() bool {
	return r.Destination == nil && r.Duration == nil && r.VisitLimit == nil
}

// LinkResponse is the display form of a link
type LinkResponse struct {
	Token           string    `json:"token"`
	ShortURL        string    `json:"short_url"`
	Destination     string    `json:"destination"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	ExpiresIn       string    `json:"expires_in"`
	RemainingVisits *int      `json:"remaining_visits,omitempty"`
	VisitCount      uint64    `json:"visit_count"`
}
