// Package tracker contains the core domain types for the Steam watchlist bot.
package tracker

// TrackedItem is one entry in a user's watchlist. The URL keeps its
// original casing for fetching and display; only the normalized form is
// used for dedup comparison. Items are never mutated after creation.
type TrackedItem struct {
	URL  string
	Name string
}

// PriceKind classifies the price shape extracted from a storefront page.
type PriceKind int

const (
	// PriceFree marks a free-to-play product.
	PriceFree PriceKind = iota
	// PriceRegular marks a plain, non-discounted price.
	PriceRegular
	// PriceDiscounted marks an active discount.
	PriceDiscounted
)

// PriceInfo is the closed price variant produced by the extractor.
// Price strings are verbatim page text; numeric stripping is the
// renderer's responsibility.
type PriceInfo struct {
	Kind          PriceKind
	Price         string // current price text, empty for free products
	OriginalPrice string // pre-discount price, set only for PriceDiscounted
	Discount      string // discount label (e.g. "-50%"), set only for PriceDiscounted
}

// GameInfo is the result of a successful page extraction.
type GameInfo struct {
	Name  string
	Price PriceInfo
}

// EventKind discriminates inbound user events.
type EventKind int

const (
	// EventCommand is a named command (start, add, delete, list, finish).
	EventCommand EventKind = iota
	// EventFreeText is arbitrary message text (a candidate URL while adding).
	EventFreeText
	// EventSelection is a choice-token callback (deletion menu).
	EventSelection
)

// Event is one inbound user action delivered by the transport.
type Event struct {
	User int64
	Kind EventKind
	Text string // command name, free text, or selection token
}

// Menu tells the transport which persistent keyboard to attach to a reply.
type Menu int

const (
	// MenuKeep leaves the current keyboard untouched.
	MenuKeep Menu = iota
	// MenuMain shows the main command keyboard.
	MenuMain
	// MenuFinish shows only the finish button.
	MenuFinish
)

// Choice is one option of an inline selection list. Token is opaque to
// the transport and round-trips back as an EventSelection.
type Choice struct {
	Label string
	Token string
}

// Reply is one outbound message for the originating user.
type Reply struct {
	Text    string
	Choices []Choice // inline selection list, nil for plain text
	Menu    Menu
}
