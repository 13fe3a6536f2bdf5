// Package watch periodically re-checks tracked pages and pushes a
// notification when an item goes on sale or becomes free.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"steamwatch/bot"
	"steamwatch/pkg/tracker"
	"steamwatch/steamurl"
)

// Fetcher fetches and parses one product page.
type Fetcher interface {
	GameInfo(ctx context.Context, url string) (*tracker.GameInfo, error)
}

// Lister exposes the watchlists to sweep.
type Lister interface {
	Users() []int64
	List(user int64) []tracker.TrackedItem
}

// Notifier delivers a push message to a user.
type Notifier interface {
	Notify(ctx context.Context, user int64, text string) error
}

// Monitor sweeps all tracked pages and compares each against its own
// previous observation. Its memory is volatile, like everything else
// here: after a restart the first sweep only records baselines.
type Monitor struct {
	fetcher  Fetcher
	list     Lister
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	observed map[string]tracker.PriceKind // canonical URL -> last seen shape
}

// New creates a new watch monitor.
func New(fetcher Fetcher, list Lister, notifier Notifier, logger *slog.Logger) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		list:     list,
		notifier: notifier,
		logger:   logger,
		observed: make(map[string]tracker.PriceKind),
	}
}

type fetchOutcome struct {
	info    *tracker.GameInfo
	err     error
	dropped bool
}

// CheckAll sweeps every user's watchlist. Each distinct URL is fetched
// once per sweep; per-item failures are logged and skipped.
func (m *Monitor) CheckAll(ctx context.Context) error {
	users := m.list.Users()
	m.logger.Info("Starting price sweep", "users", len(users))

	cache := make(map[string]fetchOutcome)
	var checked, notified int

	for _, user := range users {
		for _, item := range m.list.List(user) {
			select {
			case <-ctx.Done():
				m.logger.Info("Context cancelled, stopping price sweep", "error", ctx.Err())
				return ctx.Err()
			default:
			}

			checked++
			key := steamurl.Normalize(item.URL)

			outcome, ok := cache[key]
			if !ok {
				info, err := m.fetcher.GameInfo(ctx, item.URL)
				outcome = fetchOutcome{info: info, err: err}
				if err == nil {
					// Decided once per URL per sweep so every owner of a
					// shared URL gets the same verdict.
					outcome.dropped = m.dropped(key, info.Price.Kind)
				}
				cache[key] = outcome
			}
			if outcome.err != nil {
				m.logger.Warn("Price check failed", "user", user, "url", item.URL, "error", outcome.err)
				continue
			}

			if !outcome.dropped {
				continue
			}

			text := fmt.Sprintf("🔔 Price drop!\n%s", bot.FormatReport(outcome.info))
			if err := m.notifier.Notify(ctx, user, text); err != nil {
				m.logger.Warn("Failed to deliver price drop notice", "user", user, "url", item.URL, "error", err)
				continue
			}
			notified++
		}
	}

	m.logger.Info("Price sweep completed", "checked", checked, "notified", notified)
	return nil
}

// dropped records the observation and reports whether the page moved into
// a discounted or free shape since the previous sweep. The first
// observation of a URL only sets the baseline.
func (m *Monitor) dropped(key string, kind tracker.PriceKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.observed[key]
	m.observed[key] = kind

	if !seen || prev == kind {
		return false
	}
	return kind == tracker.PriceDiscounted || kind == tracker.PriceFree
}
