package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"steamwatch/pkg/tracker"
)

type fakeFetcher struct {
	mu    sync.Mutex
	infos map[string]*tracker.GameInfo
	errs  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		infos: make(map[string]*tracker.GameInfo),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) GameInfo(_ context.Context, url string) (*tracker.GameInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.infos[url], nil
}

func (f *fakeFetcher) setPrice(url string, kind tracker.PriceKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos[url] = &tracker.GameInfo{
		Name:  "Game",
		Price: tracker.PriceInfo{Kind: kind, Price: "299 руб."},
	}
}

type fakeLister struct {
	lists map[int64][]tracker.TrackedItem
}

func (f *fakeLister) Users() []int64 {
	users := make([]int64, 0, len(f.lists))
	for u := range f.lists {
		users = append(users, u)
	}
	return users
}

func (f *fakeLister) List(user int64) []tracker.TrackedItem {
	return f.lists[user]
}

type notice struct {
	user int64
	text string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notice
}

func (f *fakeNotifier) Notify(_ context.Context, user int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notice{user: user, text: text})
	return nil
}

func newTestMonitor(fetcher *fakeFetcher, lister *fakeLister, notifier *fakeNotifier) *Monitor {
	return New(fetcher, lister, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFirstSweepOnlyRecordsBaseline(t *testing.T) {
	url := "https://store.steampowered.com/app/1/Game/"
	fetcher := newFakeFetcher()
	fetcher.setPrice(url, tracker.PriceDiscounted)
	notifier := &fakeNotifier{}
	m := newTestMonitor(fetcher, &fakeLister{lists: map[int64][]tracker.TrackedItem{
		1: {{URL: url, Name: "Game"}},
	}}, notifier)

	if err := m.CheckAll(context.Background()); err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	if len(notifier.sent) != 0 {
		t.Errorf("first sweep sent %d notices, want 0 (baseline only)", len(notifier.sent))
	}
}

func TestNotifiesOnDropTransition(t *testing.T) {
	url := "https://store.steampowered.com/app/1/Game/"
	fetcher := newFakeFetcher()
	fetcher.setPrice(url, tracker.PriceRegular)
	notifier := &fakeNotifier{}
	m := newTestMonitor(fetcher, &fakeLister{lists: map[int64][]tracker.TrackedItem{
		1: {{URL: url, Name: "Game"}},
	}}, notifier)
	ctx := context.Background()

	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("baseline sweep error = %v", err)
	}

	fetcher.setPrice(url, tracker.PriceDiscounted)
	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notices after drop, want 1", len(notifier.sent))
	}
	if notifier.sent[0].user != 1 {
		t.Errorf("notice went to user %d, want 1", notifier.sent[0].user)
	}

	// A third sweep with the discount unchanged must stay quiet.
	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("third sweep error = %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("sent %d notices for an unchanged discount, want still 1", len(notifier.sent))
	}
}

func TestSharedURLFetchedOncePerSweep(t *testing.T) {
	// Two users track the same page, one with different casing.
	url := "https://store.steampowered.com/app/1/Game/"
	alias := "https://store.steampowered.com/app/1/GAME/"
	fetcher := newFakeFetcher()
	fetcher.setPrice(url, tracker.PriceRegular)
	fetcher.setPrice(alias, tracker.PriceRegular)
	notifier := &fakeNotifier{}
	m := newTestMonitor(fetcher, &fakeLister{lists: map[int64][]tracker.TrackedItem{
		1: {{URL: url, Name: "Game"}},
		2: {{URL: alias, Name: "Game"}},
	}}, notifier)
	ctx := context.Background()

	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("baseline sweep error = %v", err)
	}

	total := fetcher.calls[url] + fetcher.calls[alias]
	if total != 1 {
		t.Errorf("shared URL fetched %d times in one sweep, want 1", total)
	}

	fetcher.setPrice(url, tracker.PriceFree)
	fetcher.setPrice(alias, tracker.PriceFree)
	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}

	// Both owners get the drop notice even though only one fetch ran.
	if len(notifier.sent) != 2 {
		t.Errorf("sent %d notices for a shared URL drop, want 2", len(notifier.sent))
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	badURL := "https://store.steampowered.com/app/1/Bad/"
	goodURL := "https://store.steampowered.com/app/2/Good/"
	fetcher := newFakeFetcher()
	fetcher.errs[badURL] = errors.New("timeout")
	fetcher.setPrice(goodURL, tracker.PriceRegular)
	notifier := &fakeNotifier{}
	m := newTestMonitor(fetcher, &fakeLister{lists: map[int64][]tracker.TrackedItem{
		1: {{URL: badURL, Name: "Bad"}, {URL: goodURL, Name: "Good"}},
	}}, notifier)
	ctx := context.Background()

	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("baseline sweep error = %v", err)
	}

	fetcher.setPrice(goodURL, tracker.PriceDiscounted)
	if err := m.CheckAll(ctx); err != nil {
		t.Fatalf("second sweep error = %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Errorf("sent %d notices, want 1 (failure on one item must not mask the other)", len(notifier.sent))
	}
}

func TestContextCancellationStopsSweep(t *testing.T) {
	url := "https://store.steampowered.com/app/1/Game/"
	fetcher := newFakeFetcher()
	fetcher.setPrice(url, tracker.PriceRegular)
	m := newTestMonitor(fetcher, &fakeLister{lists: map[int64][]tracker.TrackedItem{
		1: {{URL: url, Name: "Game"}},
	}}, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.CheckAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("CheckAll() error = %v, want context.Canceled", err)
	}
}
