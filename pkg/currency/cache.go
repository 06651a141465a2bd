package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Cache holds exchange rates per base currency with a TTL. Rates refresh
// lazily on first access after expiry; concurrent readers share one snapshot.
type Cache struct {
	mu          sync.RWMutex
	rates       map[string]map[string]float64
	refreshedAt map[string]time.Time

	baseURL string
	ttl     time.Duration
	client  *http.Client
}

// NewCache creates an exchange-rate cache against the given API base URL.
func NewCache(baseURL string, ttl time.Duration) *Cache {
	return &Cache{
		rates:       make(map[string]map[string]float64),
		refreshedAt: make(map[string]time.Time),
		baseURL:     strings.TrimRight(baseURL, "/"),
		ttl:         ttl,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Rate returns how many units of `to` one unit of `from` buys.
func (c *Cache) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return 1, nil
	}

	c.mu.RLock()
	rates, fresh := c.freshRatesLocked(from)
	c.mu.RUnlock()

	if !fresh {
		var err error
		rates, err = c.refresh(ctx, from)
		if err != nil {
			return 0, err
		}
	}

	rate, ok := rates[to]
	if !ok {
		return 0, fmt.Errorf("no rate from %s to %s", from, to)
	}
	return rate, nil
}

func (c *Cache) freshRatesLocked(base string) (map[string]float64, bool) {
	rates, ok := c.rates[base]
	if !ok {
		return nil, false
	}
	return rates, time.Since(c.refreshedAt[base]) < c.ttl
}

func (c *Cache) refresh(ctx context.Context, base string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate API returned no rates for %s", base)
	}

	c.mu.Lock()
	c.rates[base] = payload.Rates
	c.refreshedAt[base] = time.Now()
	c.mu.Unlock()

	return payload.Rates, nil
}

// SetRates primes the cache directly. Used by tests and warm starts.
func (c *Cache) SetRates(base string, rates map[string]float64) {
	c.mu.Lock()
	c.rates[strings.ToUpper(base)] = rates
	c.refreshedAt[strings.ToUpper(base)] = time.Now()
	c.mu.Unlock()
}
