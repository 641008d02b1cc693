package models

import (
	"time"
)

// Click is the durable, append-only record of one redirect.
type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	ShortCode string    `json:"short_code"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   string    `json:"country,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClickEvent is the wire-level tracking payload before the short code has
// been resolved to a link id.
type ClickEvent struct {
	ShortCode string
	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
}

// ClickStats is derived from the durable click log and is exact.
type ClickStats struct {
	ShortCode   string `json:"short_code"`
	TotalClicks int64  `json:"total_clicks"`
	UniqueIPs   int64  `json:"unique_ips"`
	ClicksToday int64  `json:"clicks_today"`
}

type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// CounterSnapshot comes from the real-time Redis counters. The counters are
// best-effort and may diverge from the click log; dashboards only.
type CounterSnapshot struct {
	ShortCode   string `json:"short_code"`
	TotalClicks int64  `json:"total_clicks"`
	ClicksToday int64  `json:"clicks_today"`
}
