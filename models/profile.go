package models

import "time"

// DomainProfile is the persisted winning configuration for one domain.
// The key is the canonical hostname: lowercased, one leading "www." removed,
// subdomains kept distinct.
type DomainProfile struct {
	Domain         string    `json:"domain" binding:"required"`
	Engine         string    `json:"engine" binding:"required,oneof=fast browser stealth unblock"`
	RenderJs       bool      `json:"renderJs"`
	RenderDelayMs  int       `json:"renderDelayMs"`
	UseProxy       bool      `json:"useProxy"`
	Preset         string    `json:"preset,omitempty"`
	HitCount       int       `json:"hitCount"`
	LastStatusCode int       `json:"lastStatusCode"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfilesResponse is the response for GET /api/domain-profiles.
type ProfilesResponse struct {
	Profiles []DomainProfile `json:"profiles"`
	Count    int             `json:"count"`
}
