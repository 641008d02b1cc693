package models

import (
	"time"
)

// Link is the durable short code -> original URL mapping. Short codes are
// globally unique and never reused: deactivation flips IsActive, the row stays.
type Link struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	UserID      *int64     `json:"user_id,omitempty"`
	CustomAlias bool       `json:"custom_alias"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateLinkInput struct {
	OriginalURL string
	CustomAlias *string
	UserID      *int64
	ExpiresIn   *int // minutes
}

// Resolution is what the redirect hot path works with. Source tells whether
// the target came from the cache or from the database.
type Resolution struct {
	OriginalURL string `json:"original_url"`
	Source      string `json:"source"`
}

// LinkStats is a per-link summary row for owner listings.
type LinkStats struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	TotalClicks int64     `json:"total_clicks"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
