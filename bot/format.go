package bot

import (
	"fmt"
	"strings"
	"unicode"

	"steamwatch/pkg/tracker"
)

// FormatReport renders one price report message for a parsed page.
func FormatReport(info *tracker.GameInfo) string {
	return fmt.Sprintf("🎮 %s\n%s", info.Name, FormatPrice(info.Price))
}

// FormatPrice renders the price lines of a report.
func FormatPrice(price tracker.PriceInfo) string {
	switch price.Kind {
	case tracker.PriceFree:
		return "💰 Free to play"
	case tracker.PriceDiscounted:
		return fmt.Sprintf("🔥 Discount %s\n💵 %s rub. (was %s)",
			price.Discount, StripPrice(price.Price), StripPrice(price.OriginalPrice))
	default:
		return fmt.Sprintf("💵 %s rub.", StripPrice(price.Price))
	}
}

// StripPrice reduces verbatim page price text to digits and separators.
// Page text carries currency symbols, non-breaking spaces, and whatever
// else the template felt like; none of it is machine-stable.
func StripPrice(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	// "299 руб." leaves a dangling dot behind.
	return strings.Trim(b.String(), ",.")
}
