package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGameInfoFetchesAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cookie"); got == "" {
			t.Error("expected age-gate cookie on request")
		}
		if _, err := io.WriteString(w, pageDiscount); err != nil {
			t.Errorf("write fixture: %v", err)
		}
	}))
	defer srv.Close()

	s := New(srv.Client(), testLogger())

	info, err := s.GameInfo(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GameInfo() error = %v", err)
	}
	if info.Name != "Portal 2" {
		t.Errorf("GameInfo() name = %q, want %q", info.Name, "Portal 2")
	}
	if info.Price.Discount != "-50%" {
		t.Errorf("GameInfo() discount = %q, want %q", info.Price.Discount, "-50%")
	}
}

func TestGameInfoParseErrorNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if _, err := io.WriteString(w, pageNoName); err != nil {
			t.Errorf("write fixture: %v", err)
		}
	}))
	defer srv.Close()

	s := New(srv.Client(), testLogger())

	_, err := s.GameInfo(context.Background(), srv.URL)
	if !IsParseError(err) {
		t.Fatalf("GameInfo() error = %v, want ParseError", err)
	}
	if requests != 1 {
		t.Errorf("parse failure fetched %d times, want 1", requests)
	}
}

func TestGameInfoServerError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping retry test in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(srv.Client(), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.GameInfo(ctx, srv.URL)
	if err == nil {
		t.Fatal("GameInfo() expected error for HTTP 500")
	}
	if IsParseError(err) {
		t.Errorf("GameInfo() classified HTTP 500 as ParseError: %v", err)
	}
}
