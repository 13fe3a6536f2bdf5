// Package bot drives the per-user conversation flows: it interprets
// inbound events against the user's session state, runs the add/remove
// pipelines, and emits reply payloads for the transport to deliver.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"steamwatch/pkg/tracker"
	"steamwatch/scraper"
	"steamwatch/session"
	"steamwatch/steamurl"
	"steamwatch/store"
)

// Command names understood by the orchestrator.
const (
	CmdStart  = "start"
	CmdList   = "list"
	CmdAdd    = "add"
	CmdDelete = "delete"
	CmdFinish = "finish"
	CmdCancel = "cancel"
)

const deleteTokenPrefix = "delete_"

// Fetcher fetches and parses one product page.
type Fetcher interface {
	GameInfo(ctx context.Context, url string) (*tracker.GameInfo, error)
}

// Watchlist is the per-user tracked-item store.
type Watchlist interface {
	List(user int64) []tracker.TrackedItem
	Count(user int64) int
	Add(user int64, item tracker.TrackedItem) error
	RemoveAt(user int64, index int) (tracker.TrackedItem, error)
}

// Sessions tracks conversation state per user.
type Sessions interface {
	State(user int64) session.State
	Set(user int64, st session.State)
	Clear(user int64)
}

// Bot is the orchestrator composing validator, fetcher, store, and
// session state machine.
type Bot struct {
	fetcher  Fetcher
	list     Watchlist
	sessions Sessions
	logger   *slog.Logger
}

// Config holds orchestrator dependencies.
type Config struct {
	Fetcher  Fetcher
	List     Watchlist
	Sessions Sessions
	Logger   *slog.Logger
}

// New creates a new orchestrator.
func New(cfg *Config) *Bot {
	return &Bot{
		fetcher:  cfg.Fetcher,
		list:     cfg.List,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
	}
}

// Handle processes one inbound event and returns the replies to deliver.
// Every (state, event) pair has a defined outcome; recoverable failures
// become corrective replies and never escape a single event's handling.
func (b *Bot) Handle(ctx context.Context, ev tracker.Event) []tracker.Reply {
	switch ev.Kind {
	case tracker.EventCommand:
		return b.handleCommand(ctx, ev.User, ev.Text)
	case tracker.EventFreeText:
		return b.handleText(ctx, ev.User, ev.Text)
	case tracker.EventSelection:
		return b.handleSelection(ev.User, ev.Text)
	default:
		b.logger.Warn("Unknown event kind", "user", ev.User, "kind", int(ev.Kind))
		return nil
	}
}

func (b *Bot) handleCommand(ctx context.Context, user int64, name string) []tracker.Reply {
	state := b.sessions.State(user)

	switch name {
	case CmdStart:
		return []tracker.Reply{{
			Text: "Hi! I track Steam game prices for you.",
			Menu: tracker.MenuMain,
		}}

	case CmdList:
		return b.priceReport(ctx, user)

	case CmdAdd:
		b.sessions.Set(user, session.AwaitingURL)
		return []tracker.Reply{{
			Text: "Send me a Steam game URL (e.g. https://store.steampowered.com/app/123456/Game_Name/)\n\n" +
				"You can add several URLs in a row. Press the button below or send /cancel to finish.",
			Menu: tracker.MenuFinish,
		}}

	case CmdDelete:
		if state == session.AwaitingURL {
			return []tracker.Reply{{Text: "Finish adding first, then pick a game to remove."}}
		}
		if b.list.Count(user) == 0 {
			b.sessions.Clear(user)
			return []tracker.Reply{{Text: "Your game list is empty", Menu: tracker.MenuMain}}
		}
		b.sessions.Set(user, session.AwaitingDeletion)
		return []tracker.Reply{b.deleteMenu(user)}

	case CmdFinish, CmdCancel:
		// Tolerates late or duplicate finish signals: already Idle means
		// the state was reset (e.g. after a restart) and we just confirm.
		if state == session.Idle {
			return []tracker.Reply{{Text: "Back to the main menu", Menu: tracker.MenuMain}}
		}
		b.sessions.Clear(user)
		return []tracker.Reply{{
			Text: fmt.Sprintf("Done. Games tracked: %d", b.list.Count(user)),
			Menu: tracker.MenuMain,
		}}

	default:
		b.logger.Warn("Unknown command", "user", user, "command", name)
		return []tracker.Reply{{Text: "Unknown command", Menu: tracker.MenuMain}}
	}
}

func (b *Bot) handleText(ctx context.Context, user int64, text string) []tracker.Reply {
	switch b.sessions.State(user) {
	case session.AwaitingURL:
		return b.addURL(ctx, user, text)
	case session.AwaitingDeletion:
		return []tracker.Reply{
			{Text: "Pick a game from the list, or press Finish to go back."},
			b.deleteMenu(user),
		}
	default:
		return []tracker.Reply{{Text: "Use the menu buttons below", Menu: tracker.MenuMain}}
	}
}

// addURL runs the add pipeline: validate, dedup, fetch, extract, store.
// Any failure leaves the user in AwaitingURL so they can retry.
func (b *Bot) addURL(ctx context.Context, user int64, text string) []tracker.Reply {
	rawURL := strings.TrimSpace(text)

	if !steamurl.Valid(rawURL) {
		return []tracker.Reply{{Text: "That doesn't look like a Steam game URL. Try again"}}
	}

	// Duplicate check before fetching saves a pointless page load.
	norm := steamurl.Normalize(rawURL)
	for _, item := range b.list.List(user) {
		if steamurl.Normalize(item.URL) == norm {
			return []tracker.Reply{{Text: "⚠️ This game is already on your list!"}}
		}
	}

	info, err := b.fetcher.GameInfo(ctx, rawURL)
	if err != nil {
		if scraper.IsParseError(err) {
			return []tracker.Reply{{Text: fmt.Sprintf("Error: %s\nTry another URL", err)}}
		}
		return []tracker.Reply{{Text: fmt.Sprintf("Network error: %s\nTry again", err)}}
	}

	// The fetch is the only suspension point; the user may have cancelled
	// the add flow while it was in flight. Discard the result then, so a
	// stale confirmation never lands after a cancel.
	if b.sessions.State(user) != session.AwaitingURL {
		b.logger.Info("Discarding fetch result, add flow no longer active", "user", user, "url", rawURL)
		return nil
	}

	if err := b.list.Add(user, tracker.TrackedItem{URL: rawURL, Name: info.Name}); err != nil {
		if store.IsDuplicate(err) {
			return []tracker.Reply{{Text: "⚠️ This game is already on your list!"}}
		}
		b.logger.Error("Failed to add item", "user", user, "url", rawURL, "error", err)
		return []tracker.Reply{{Text: "Something went wrong, try again"}}
	}

	return []tracker.Reply{{
		Text: fmt.Sprintf("✅ %s added!\n%s\nGames tracked: %d",
			info.Name, FormatPrice(info.Price), b.list.Count(user)),
	}}
}

func (b *Bot) handleSelection(user int64, token string) []tracker.Reply {
	if b.sessions.State(user) != session.AwaitingDeletion {
		// A leftover menu from before a state reset; its choices no
		// longer mean anything.
		return []tracker.Reply{{Text: "This menu has expired", Menu: tracker.MenuMain}}
	}

	index, err := parseDeleteToken(token)
	if err != nil {
		b.logger.Warn("Malformed selection token", "user", user, "token", token)
		return []tracker.Reply{b.deleteMenu(user)}
	}

	removed, err := b.list.RemoveAt(user, index)
	if err != nil {
		if store.IsOutOfRange(err) {
			// Stale index from a superseded menu: re-sync silently by
			// re-emitting the current list.
			b.logger.Info("Stale deletion index", "user", user, "index", index)
			return []tracker.Reply{b.deleteMenu(user)}
		}
		b.logger.Error("Failed to remove item", "user", user, "index", index, "error", err)
		return []tracker.Reply{{Text: "Something went wrong, try again"}}
	}

	if b.list.Count(user) == 0 {
		b.sessions.Clear(user)
		return []tracker.Reply{{Text: "Your game list is empty", Menu: tracker.MenuMain}}
	}

	// Indices shift after every removal; the menu is re-emitted so the
	// user always selects against current positions.
	return []tracker.Reply{
		{Text: fmt.Sprintf("%s removed", removed.Name)},
		b.deleteMenu(user),
	}
}

// deleteMenu builds the enumerated deletion choice list, one option per
// item with its positional index at emission time.
func (b *Bot) deleteMenu(user int64) tracker.Reply {
	items := b.list.List(user)
	choices := make([]tracker.Choice, 0, len(items))
	for i, item := range items {
		choices = append(choices, tracker.Choice{
			Label: "❌ " + item.Name,
			Token: deleteTokenPrefix + strconv.Itoa(i),
		})
	}
	return tracker.Reply{Text: "Select a game to remove:", Choices: choices}
}

func parseDeleteToken(token string) (int, error) {
	raw, ok := strings.CutPrefix(token, deleteTokenPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected token %q", token)
	}
	return strconv.Atoi(raw)
}

// priceReport fetches every tracked page and renders one price line per
// item. Per-item failures are reported in place and never abort the rest.
func (b *Bot) priceReport(ctx context.Context, user int64) []tracker.Reply {
	items := b.list.List(user)
	if len(items) == 0 {
		return []tracker.Reply{{Text: "Your game list is empty", Menu: tracker.MenuMain}}
	}

	replies := make([]tracker.Reply, 0, len(items))
	for _, item := range items {
		info, err := b.fetcher.GameInfo(ctx, item.URL)
		if err != nil {
			replies = append(replies, tracker.Reply{
				Text: fmt.Sprintf("Failed to check %s: %s", item.Name, err),
			})
			continue
		}
		replies = append(replies, tracker.Reply{Text: FormatReport(info)})
	}
	return replies
}
