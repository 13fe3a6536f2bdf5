// Package scraper handles fetching and parsing Steam storefront product pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"steamwatch/pkg/tracker"

	"github.com/codeGROOVE-dev/retry"
)

// ParseError indicates a fetched page whose markup did not match any
// known price shape. The reason is surfaced verbatim to the user.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// IsParseError checks if an error is a page parse error.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Scraper fetches and parses Steam product pages.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a new scraper.
func New(client *http.Client, logger *slog.Logger) *Scraper {
	return &Scraper{
		client: client,
		logger: logger,
	}
}

// GameInfo fetches a product page and extracts its name and price shape.
// Transport failures and non-OK statuses come back as plain wrapped
// errors; unrecognized markup comes back as a *ParseError.
func (s *Scraper) GameInfo(ctx context.Context, pageURL string) (*tracker.GameInfo, error) {
	var info *tracker.GameInfo

	err := retry.Do(
		func() error {
			s.logger.Info("HTTP request starting",
				"method", "GET",
				"url", pageURL,
				"purpose", "fetch_product_page")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			// Browser-like headers plus the age-gate bypass cookie; without
			// these Steam serves an age check instead of the purchase block.
			req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
			req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
			req.Header.Set("Cookie", "birthtime=283993201; lastagecheckage=1-0-1900; mature_content=1")

			startTime := time.Now()
			resp, err := s.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Warn("HTTP request failed, will retry",
					"url", pageURL,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					s.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			s.logger.Info("HTTP request completed",
				"url", pageURL,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
				"content_length", resp.ContentLength)

			if resp.StatusCode != http.StatusOK {
				s.logger.Warn("HTTP request returned non-OK status, will retry", "status_code", resp.StatusCode)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			info, err = Extract(resp.Body)
			if err != nil {
				// A parse failure is a property of the page, not of the fetch.
				s.logger.Warn("Failed to extract price from page", "url", pageURL, "error", err)
				return retry.Unrecoverable(err)
			}

			s.logger.Info("Product page parsed",
				"url", pageURL,
				"name", info.Name,
				"price", info.Price.Price)

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("Retrying fetch after error", "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !IsParseError(err)
		}),
	)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			// Strip the retry wrapping; the reason is surfaced verbatim.
			return nil, pe
		}
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	return info, nil
}
