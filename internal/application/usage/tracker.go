package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ai-content-platform/internal/domain"
)

// Storage key prefixes. Keys are "<prefix>_<userID>".
const (
	StatsKey             = "usage_stats"
	PreservedStatsPrefix = "preserved_stats"
)

// Store is a string-valued key/value store that survives restarts.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// UserResolver reports the signed-in user for ctx.
type UserResolver interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// UserResolverFunc adapts a function to UserResolver.
type UserResolverFunc func(ctx context.Context) (string, bool)

func (f UserResolverFunc) CurrentUserID(ctx context.Context) (string, bool) { return f(ctx) }

// Tracker keeps per-user generation counters bucketed by UTC day and month.
// Without a resolvable user every tracking call is inert.
type Tracker struct {
	store  Store
	users  UserResolver
	now    func() time.Time
	limits map[domain.Plan]Limit
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for bucketing.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLimits sets the per-plan caps used by CheckLimit.
func WithLimits(limits map[domain.Plan]Limit) Option {
	return func(t *Tracker) { t.limits = limits }
}

func NewTracker(store Store, users UserResolver, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		users:  users,
		now:    time.Now,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func statsKey(userID string) string     { return StatsKey + "_" + userID }
func preservedKey(userID string) string { return PreservedStatsPrefix + "_" + userID }

func (t *Tracker) today() (day, month string) {
	day = t.now().UTC().Format("2006-01-02")
	return day, day[:7]
}

func (t *Tracker) fresh() *domain.UsageStats {
	day, month := t.today()
	return &domain.UsageStats{
		Daily:       map[string]domain.Counts{day: {}},
		Monthly:     map[string]domain.Counts{month: {}},
		LastUpdated: t.now().UnixMilli(),
	}
}

// load reads and decodes key. A missing key returns nil, nil.
func (t *Tracker) load(ctx context.Context, key string) (*domain.UsageStats, error) {
	raw, found, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return decodeStats(raw)
}

// TrackGeneration counts one completed generation of kind for the current
// user and returns the updated stats. With no signed-in user it returns
// nil, nil and writes nothing.
func (t *Tracker) TrackGeneration(ctx context.Context, kind domain.GenerationKind) (*domain.UsageStats, error) {
	userID, ok := t.users.CurrentUserID(ctx)
	if !ok || userID == "" {
		return nil, nil
	}
	if _, err := domain.ParseGenerationKind(string(kind)); err != nil {
		return nil, err
	}

	stats, err := t.loadForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	day, month := t.today()
	d := stats.Daily[day]
	d.Inc(kind)
	stats.Daily[day] = d
	m := stats.Monthly[month]
	m.Inc(kind)
	stats.Monthly[month] = m
	stats.Total.Inc(kind)
	stats.LastUpdated = t.now().UnixMilli()

	raw, err := encodeStats(stats)
	if err != nil {
		return nil, err
	}
	if err := t.store.Set(ctx, statsKey(userID), raw); err != nil {
		return nil, fmt.Errorf("write usage stats: %w", err)
	}
	// the preserved copy keeps the increment even if sign-out races this call
	if err := t.store.Set(ctx, preservedKey(userID), raw); err != nil {
		return stats, fmt.Errorf("write preserved usage stats: %w", err)
	}
	return stats, nil
}

// loadForUpdate returns the stats the next increment builds on. A missing or
// corrupt active blob falls back to the preserved copy, so a clean preserved
// copy is never overwritten without its counts. Only when neither decodes
// does counting start from zero.
func (t *Tracker) loadForUpdate(ctx context.Context, userID string) (*domain.UsageStats, error) {
	active, err := t.load(ctx, statsKey(userID))
	if err != nil && !errors.Is(err, domain.ErrCorruptStats) {
		return nil, err
	}
	if active != nil {
		return active, nil
	}
	activeErr := err

	preserved, err := t.load(ctx, preservedKey(userID))
	if err != nil && !errors.Is(err, domain.ErrCorruptStats) {
		return nil, err
	}
	if preserved != nil {
		if activeErr != nil {
			slog.Warn("active usage stats corrupt, counting on preserved copy", "user_id", userID, "err", activeErr)
		}
		return preserved, nil
	}
	if activeErr != nil || err != nil {
		slog.Warn("discarding corrupt usage stats", "user_id", userID, "active_err", activeErr, "preserved_err", err)
	}
	return t.fresh(), nil
}

// GetStats returns today's, this month's and all-time counters for the
// current user. It never fails: missing or unreadable data yields zeros.
func (t *Tracker) GetStats(ctx context.Context) domain.StatsSummary {
	stats := t.current(ctx)
	day, month := t.today()
	lastUpdated := stats.LastUpdated
	if lastUpdated == 0 {
		lastUpdated = t.now().UnixMilli()
	}
	return domain.StatsSummary{
		Daily:       domain.SummaryOf(stats.Daily[day]),
		Monthly:     domain.SummaryOf(stats.Monthly[month]),
		Total:       domain.SummaryOf(stats.Total),
		LastUpdated: lastUpdated,
	}
}

// current loads the active stats for the signed-in user, falling back to the
// preserved copy and then to a zeroed structure.
func (t *Tracker) current(ctx context.Context) *domain.UsageStats {
	userID, ok := t.users.CurrentUserID(ctx)
	if !ok || userID == "" {
		return t.fresh()
	}
	stats, err := t.load(ctx, statsKey(userID))
	if err != nil {
		slog.Warn("could not read usage stats", "user_id", userID, "err", err)
		return t.fresh()
	}
	if stats != nil {
		return stats
	}
	stats, err = t.RestoreUserStats(ctx, userID)
	if err != nil {
		slog.Warn("could not restore usage stats", "user_id", userID, "err", err)
	}
	return stats
}

// PreserveUserStats copies userID's active stats to the preserved slot.
// It is a no-op for an empty id or a user without stats.
func (t *Tracker) PreserveUserStats(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	raw, found, err := t.store.Get(ctx, statsKey(userID))
	if err != nil {
		return fmt.Errorf("preserve usage stats: %w", err)
	}
	if !found {
		return nil
	}
	if err := t.store.Set(ctx, preservedKey(userID), raw); err != nil {
		return fmt.Errorf("preserve usage stats: %w", err)
	}
	return nil
}

// RestoreUserStats moves userID's preserved stats back to the active slot and
// returns them. Without preserved stats it returns a fresh zeroed structure.
// On failure the fresh structure is returned together with the error.
func (t *Tracker) RestoreUserStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	if userID == "" {
		return t.fresh(), nil
	}
	raw, found, err := t.store.Get(ctx, preservedKey(userID))
	if err != nil {
		return t.fresh(), fmt.Errorf("restore usage stats: %w", err)
	}
	if !found {
		return t.fresh(), nil
	}
	stats, err := decodeStats(raw)
	if err != nil {
		return t.fresh(), fmt.Errorf("restore usage stats: %w", err)
	}
	if err := t.store.Set(ctx, statsKey(userID), raw); err != nil {
		return t.fresh(), fmt.Errorf("restore usage stats: %w", err)
	}
	if err := t.store.Remove(ctx, preservedKey(userID)); err != nil {
		return stats, fmt.Errorf("drop preserved usage stats: %w", err)
	}
	return stats, nil
}

// ClearStats deletes both the active and the preserved stats of the current user.
func (t *Tracker) ClearStats(ctx context.Context) error {
	userID, ok := t.users.CurrentUserID(ctx)
	if !ok || userID == "" {
		return nil
	}
	if err := t.store.Remove(ctx, statsKey(userID)); err != nil {
		return fmt.Errorf("clear usage stats: %w", err)
	}
	if err := t.store.Remove(ctx, preservedKey(userID)); err != nil {
		return fmt.Errorf("clear preserved usage stats: %w", err)
	}
	return nil
}
