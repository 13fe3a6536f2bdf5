// Package telegram adapts the Telegram Bot API to the orchestrator's
// event/reply contract: it classifies inbound updates, renders replies
// with the right keyboards, and delivers push notifications.
package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"steamwatch/bot"
	"steamwatch/pkg/tracker"

	tele "gopkg.in/telebot.v4"
)

// Main-menu and finish-keyboard button labels. Button presses arrive as
// plain text, so these double as the command vocabulary.
const (
	btnListLabel   = "📋 My games"
	btnAddLabel    = "➕ Add game"
	btnDeleteLabel = "🗑 Remove game"
	btnFinishLabel = "🛑 Done"
)

const deleteUnique = "delete"

// Handler processes one inbound event.
type Handler interface {
	Handle(ctx context.Context, ev tracker.Event) []tracker.Reply
}

// Transport runs the Telegram long-poll loop and bridges updates to the
// orchestrator.
type Transport struct {
	bot     *tele.Bot
	handler Handler
	logger  *slog.Logger

	mu    sync.Mutex
	menus map[int64]tele.Editable // last inline menu per user, for cleanup
}

// New creates a transport bound to the given bot token.
func New(token string, pollTimeout time.Duration, handler Handler, logger *slog.Logger) (*Transport, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, err
	}

	t := &Transport{
		bot:     b,
		handler: handler,
		logger:  logger,
		menus:   make(map[int64]tele.Editable),
	}
	t.route()
	return t, nil
}

func (t *Transport) route() {
	command := func(name string) func(tele.Context) error {
		return func(c tele.Context) error {
			return t.dispatch(c, tracker.Event{
				User: c.Sender().ID,
				Kind: tracker.EventCommand,
				Text: name,
			})
		}
	}

	t.bot.Handle("/start", command(bot.CmdStart))
	t.bot.Handle("/list", command(bot.CmdList))
	t.bot.Handle("/add", command(bot.CmdAdd))
	t.bot.Handle("/delete", command(bot.CmdDelete))
	t.bot.Handle("/cancel", command(bot.CmdCancel))

	t.bot.Handle(tele.OnText, func(c tele.Context) error {
		ev := tracker.Event{User: c.Sender().ID, Kind: tracker.EventFreeText, Text: c.Text()}
		// Keyboard presses arrive as ordinary text messages.
		switch c.Text() {
		case btnListLabel:
			ev = tracker.Event{User: ev.User, Kind: tracker.EventCommand, Text: bot.CmdList}
		case btnAddLabel:
			ev = tracker.Event{User: ev.User, Kind: tracker.EventCommand, Text: bot.CmdAdd}
		case btnDeleteLabel:
			ev = tracker.Event{User: ev.User, Kind: tracker.EventCommand, Text: bot.CmdDelete}
		case btnFinishLabel:
			ev = tracker.Event{User: ev.User, Kind: tracker.EventCommand, Text: bot.CmdFinish}
		}
		return t.dispatch(c, ev)
	})

	t.bot.Handle(&tele.Btn{Unique: deleteUnique}, func(c tele.Context) error {
		if err := c.Respond(); err != nil {
			t.logger.Warn("Failed to answer callback", "error", err)
		}
		// The tapped menu is superseded either way; drop it best-effort.
		t.deleteMenu(c.Sender().ID)
		return t.dispatch(c, tracker.Event{
			User: c.Sender().ID,
			Kind: tracker.EventSelection,
			Text: c.Data(),
		})
	})
}

// dispatch hands one event to the orchestrator and delivers its replies.
// Delivery failures are logged, never propagated: one broken send must
// not take down the poll loop.
func (t *Transport) dispatch(c tele.Context, ev tracker.Event) error {
	replies := t.handler.Handle(context.Background(), ev)

	for _, reply := range replies {
		if err := t.deliver(c, ev.User, reply); err != nil {
			t.logger.Error("Failed to deliver reply", "user", ev.User, "error", err)
		}
	}
	return nil
}

func (t *Transport) deliver(c tele.Context, user int64, reply tracker.Reply) error {
	if len(reply.Choices) > 0 {
		markup := &tele.ReplyMarkup{}
		rows := make([]tele.Row, 0, len(reply.Choices))
		for _, choice := range reply.Choices {
			rows = append(rows, markup.Row(markup.Data(choice.Label, deleteUnique, choice.Token)))
		}
		markup.Inline(rows...)

		// A fresh menu invalidates the previous one.
		t.deleteMenu(user)

		msg, err := t.bot.Send(c.Recipient(), reply.Text, markup)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.menus[user] = msg
		t.mu.Unlock()
		return nil
	}

	switch reply.Menu {
	case tracker.MenuMain:
		return c.Send(reply.Text, mainMenu())
	case tracker.MenuFinish:
		return c.Send(reply.Text, finishMenu())
	default:
		return c.Send(reply.Text)
	}
}

// deleteMenu removes the user's last inline menu message. Best-effort by
// contract: the message may already be gone or too old to delete, and
// neither case matters.
func (t *Transport) deleteMenu(user int64) {
	t.mu.Lock()
	msg, ok := t.menus[user]
	delete(t.menus, user)
	t.mu.Unlock()

	if !ok {
		return
	}
	if err := t.bot.Delete(msg); err != nil {
		t.logger.Debug("Failed to delete stale menu", "user", user, "error", err)
	}
}

func mainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text(btnListLabel)),
		markup.Row(markup.Text(btnAddLabel), markup.Text(btnDeleteLabel)),
	)
	return markup
}

func finishMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Text(btnFinishLabel)))
	return markup
}

// Notify pushes a plain text message to a user outside any update
// context. Used by the price watch monitor.
func (t *Transport) Notify(ctx context.Context, user int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(&tele.User{ID: user}, text)
	return err
}

// Start begins long-polling for updates. Blocks until Stop is called.
func (t *Transport) Start() {
	t.logger.Info("Starting Telegram long-poll loop")
	t.bot.Start()
}

// Stop terminates the long-poll loop.
func (t *Transport) Stop() {
	t.bot.Stop()
}
