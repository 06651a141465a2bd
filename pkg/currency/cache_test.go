package currency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateSameCurrency(t *testing.T) {
	c := NewCache("http://unused.test", time.Hour)
	rate, err := c.Rate(context.Background(), "usd", "USD")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rate != 1 {
		t.Errorf("rate = %v, want 1", rate)
	}
}

func TestRateFromPrimedCache(t *testing.T) {
	c := NewCache("http://unused.test", time.Hour)
	c.SetRates("USD", map[string]float64{"EUR": 0.9, "VND": 25000})

	rate, err := c.Rate(context.Background(), "USD", "EUR")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rate != 0.9 {
		t.Errorf("rate = %v, want 0.9", rate)
	}

	if _, err := c.Rate(context.Background(), "USD", "JPY"); err == nil {
		t.Error("expected an error for a currency the base has no rate for")
	}
}

func TestRateFetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rates": map[string]float64{"EUR": 0.85},
		})
	}))
	defer srv.Close()

	c := NewCache(srv.URL, time.Hour)

	for i := 0; i < 3; i++ {
		rate, err := c.Rate(context.Background(), "USD", "EUR")
		if err != nil {
			t.Fatalf("Rate: %v", err)
		}
		if rate != 0.85 {
			t.Errorf("rate = %v, want 0.85", rate)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("API called %d times, want 1 (cached)", got)
	}
}

func TestRateRefreshAfterTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rates": map[string]float64{"EUR": 0.85},
		})
	}))
	defer srv.Close()

	c := NewCache(srv.URL, time.Nanosecond)

	if _, err := c.Rate(context.Background(), "USD", "EUR"); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := c.Rate(context.Background(), "USD", "EUR"); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("API called %d times, want 2 (expired)", got)
	}
}

func TestRateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCache(srv.URL, time.Hour)
	if _, err := c.Rate(context.Background(), "USD", "EUR"); err == nil {
		t.Error("expected an error when the API fails")
	}
}
