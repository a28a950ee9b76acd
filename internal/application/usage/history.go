package usage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ai-content-platform/internal/domain"
)

// Limit caps generations per day and per month. Zero means unlimited.
type Limit struct {
	Daily   int64
	Monthly int64
}

// DefaultLimits returns the free and pro caps.
func DefaultLimits() map[domain.Plan]Limit {
	return map[domain.Plan]Limit{
		domain.PlanFree: {Daily: 100, Monthly: 1000},
		domain.PlanPro:  {Daily: 1000, Monthly: 10000},
	}
}

// LimitError reports which allowance was used up. It unwraps to
// domain.ErrLimitReached.
type LimitError struct {
	Period string // "daily" or "monthly"
	Limit  int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s usage limit of %d generations reached", e.Period, e.Limit)
}

func (e *LimitError) Unwrap() error { return domain.ErrLimitReached }

// Title is the user-facing headline, e.g. "Daily usage limit reached".
func (e *LimitError) Title() string {
	if e.Period == "" {
		return "Usage limit reached"
	}
	return strings.ToUpper(e.Period[:1]) + e.Period[1:] + " usage limit reached"
}

// CheckLimit reports domain.ErrLimitReached when the current user has used up
// today's or this month's allowance for plan. Unknown plans fall back to free.
func (t *Tracker) CheckLimit(ctx context.Context, plan domain.Plan) error {
	limit, ok := t.limits[plan]
	if !ok {
		limit = t.limits[domain.PlanFree]
	}
	s := t.GetStats(ctx)
	if limit.Daily > 0 && s.Daily.Total >= limit.Daily {
		return &LimitError{Period: "daily", Limit: limit.Daily}
	}
	if limit.Monthly > 0 && s.Monthly.Total >= limit.Monthly {
		return &LimitError{Period: "monthly", Limit: limit.Monthly}
	}
	return nil
}

// History lists one item per day and kind with a non-zero count, newest day
// first and text before image within a day.
func (t *Tracker) History(ctx context.Context) []domain.HistoryItem {
	stats := t.current(ctx)

	days := make([]string, 0, len(stats.Daily))
	for day := range stats.Daily {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	items := make([]domain.HistoryItem, 0, 2*len(days))
	for _, day := range days {
		c := stats.Daily[day]
		if c.Text > 0 {
			items = append(items, domain.HistoryItem{
				ID:          "text-" + day,
				Kind:        domain.KindText,
				Title:       "Text Generation",
				Description: generatedLabel(c.Text, "text"),
				Date:        day,
				Count:       c.Text,
			})
		}
		if c.Image > 0 {
			items = append(items, domain.HistoryItem{
				ID:          "image-" + day,
				Kind:        domain.KindImage,
				Title:       "Image Generation",
				Description: generatedLabel(c.Image, "image"),
				Date:        day,
				Count:       c.Image,
			})
		}
	}
	return items
}

func generatedLabel(n int64, noun string) string {
	if n > 1 {
		noun += "s"
	}
	return fmt.Sprintf("Generated %d %s", n, noun)
}
