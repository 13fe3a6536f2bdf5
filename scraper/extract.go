package scraper

import (
	"io"
	"strings"

	"steamwatch/pkg/tracker"

	"github.com/PuerkitoBio/goquery"
)

// Purchase-block candidates, most specific first. Steam renders several
// structural variants of the same block across templates and locales.
var purchaseSelectors = []string{
	"div.game_purchase_action",
	"div.game_area_purchase_game_wrapper",
	"div.game_area_purchase_game",
}

func containsAny(text string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Extract parses already-fetched page markup into a name and price shape.
// The fallback ladder is ordered and first-match-wins at every stage:
// locate the product name, locate a purchase block containing a buy
// marker, then test free, discounted, and regular shapes in that order.
func Extract(body io.Reader) (*tracker.GameInfo, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &ParseError{Reason: "unreadable markup"}
	}

	name := strings.TrimSpace(doc.Find("div.apphub_AppName").First().Text())
	if name == "" {
		return nil, &ParseError{Reason: "name not found"}
	}

	var block *goquery.Selection
	for _, sel := range purchaseSelectors {
		cand := doc.Find(sel).First()
		if cand.Length() == 0 {
			continue
		}
		if containsAny(cand.Text(), "Купить", "Buy") {
			block = cand
			break
		}
	}
	if block == nil {
		return nil, &ParseError{Reason: "price block not found"}
	}

	// Free-to-play check comes first: a free product also renders a
	// game_purchase_price div, just without an amount in it.
	free := false
	block.Find("div.game_purchase_price").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsAny(s.Text(), "Бесплатно", "Free") {
			free = true
			return false
		}
		return true
	})
	if free {
		return &tracker.GameInfo{
			Name:  name,
			Price: tracker.PriceInfo{Kind: tracker.PriceFree},
		}, nil
	}

	if finalPrice := block.Find("div.discount_final_price").First(); finalPrice.Length() > 0 {
		price := strings.TrimSpace(finalPrice.Text())
		original := strings.TrimSpace(block.Find("div.discount_original_price").First().Text())
		pct := strings.TrimSpace(block.Find("div.discount_pct").First().Text())
		if price == "" || original == "" || pct == "" {
			return nil, &ParseError{Reason: "malformed discount block"}
		}
		return &tracker.GameInfo{
			Name: name,
			Price: tracker.PriceInfo{
				Kind:          tracker.PriceDiscounted,
				Price:         price,
				OriginalPrice: original,
				Discount:      pct,
			},
		}, nil
	}

	if regular := block.Find("div.game_purchase_price").First(); regular.Length() > 0 {
		return &tracker.GameInfo{
			Name: name,
			Price: tracker.PriceInfo{
				Kind:  tracker.PriceRegular,
				Price: strings.TrimSpace(regular.Text()),
			},
		}, nil
	}

	return nil, &ParseError{Reason: "price not determined"}
}
