package domain

import (
	"fmt"
	"strings"
)

// GenerationKind is what a completed generation produced.
type GenerationKind string

const (
	KindText  GenerationKind = "text"
	KindImage GenerationKind = "image"
)

// ParseGenerationKind returns ErrBadRequest for anything but text or image.
func ParseGenerationKind(s string) (GenerationKind, error) {
	switch k := GenerationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindImage:
		return k, nil
	default:
		return "", fmt.Errorf("unknown generation kind %q: %w", s, ErrBadRequest)
	}
}

// Counts holds per-kind generation counters.
type Counts struct {
	Text  int64 `json:"text" validate:"gte=0"`
	Image int64 `json:"image" validate:"gte=0"`
}

// Inc adds one to the counter for kind.
func (c *Counts) Inc(kind GenerationKind) {
	switch kind {
	case KindText:
		c.Text++
	case KindImage:
		c.Image++
	}
}

// Of returns the counter for kind.
func (c Counts) Of(kind GenerationKind) int64 {
	switch kind {
	case KindText:
		return c.Text
	case KindImage:
		return c.Image
	}
	return 0
}

// Sum returns Text + Image.
func (c Counts) Sum() int64 { return c.Text + c.Image }

// UsageStats is the persisted per-user blob. Daily is keyed by YYYY-MM-DD,
// Monthly by YYYY-MM, both in UTC. Buckets are never pruned.
type UsageStats struct {
	Daily       map[string]Counts `json:"daily" validate:"dive,keys,datetime=2006-01-02,endkeys"`
	Monthly     map[string]Counts `json:"monthly" validate:"dive,keys,datetime=2006-01,endkeys"`
	Total       Counts            `json:"total"`
	LastUpdated int64             `json:"lastUpdated" validate:"gte=0"` // unix millis
}

// PeriodSummary is one bucket with its derived total.
type PeriodSummary struct {
	Text  int64 `json:"text"`
	Image int64 `json:"image"`
	Total int64 `json:"total"`
}

// SummaryOf derives a PeriodSummary from c.
func SummaryOf(c Counts) PeriodSummary {
	return PeriodSummary{Text: c.Text, Image: c.Image, Total: c.Sum()}
}

// StatsSummary is the normalised view returned to callers: only today's and
// this month's buckets plus the all-time total.
type StatsSummary struct {
	Daily       PeriodSummary `json:"daily"`
	Monthly     PeriodSummary `json:"monthly"`
	Total       PeriodSummary `json:"total"`
	LastUpdated int64         `json:"lastUpdated"`
}

// HistoryItem is one (day, kind) row of the usage history.
type HistoryItem struct {
	ID          string         `json:"id"`
	Kind        GenerationKind `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        string         `json:"date"`
	Count       int64          `json:"count"`
}

// Plan names a usage tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)
