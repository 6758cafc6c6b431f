package models

import "time"

// DiscoveryProgress tracks how much of one regulation type's listing has
// been crawled, and when, so discovery can be skipped while fresh.
type DiscoveryProgress struct {
	Source           string     `json:"source"`
	RegType          string     `json:"reg_type"`
	TotalKnown       int        `json:"total_known"`
	TotalPages       int        `json:"total_pages"`
	PagesCrawled     int        `json:"pages_crawled"`
	LastDiscoveredAt *time.Time `json:"last_discovered_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsFresh returns true when the last discovery ran within maxAge
func (p *DiscoveryProgress) IsFresh(maxAge time.Duration) bool {
	if p == nil || p.LastDiscoveredAt == nil {
		return false
	}
	return time.Since(*p.LastDiscoveredAt) < maxAge
}

// Complete returns true when every listing page has been crawled
func (p *DiscoveryProgress) Complete() bool {
	return p != nil && p.TotalPages > 0 && p.PagesCrawled >= p.TotalPages
}
