// Package price keeps the latest fiat conversion rate per asset symbol,
// refreshed on a fixed interval from an external feed.
package price

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultInterval is the refresh period used when none is configured
const DefaultInterval = 6 * time.Second

var ErrAlreadyStarted = errors.New("price cache already started")

// Feed fetches the current rates. A rate is how many units of the symbol one
// unit of fiat buys, so fiat = amount / rate.
type Feed interface {
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Rate is one cached conversion rate
type Rate struct {
	Value     decimal.Decimal
	UpdatedAt time.Time
}

// Cache holds the last successfully fetched rate per symbol. Reads never wait
// on a fetch.
type Cache struct {
	feed     Feed
	interval time.Duration
	timeout  time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time

	mu    sync.RWMutex
	rates map[string]Rate

	inflight *atomic.Bool

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCache creates a stopped cache. A non-positive interval means
// DefaultInterval. Each fetch is bounded by the interval unless WithTimeout
// sets another limit.
func NewCache(feed Feed, interval time.Duration, log *zap.SugaredLogger) *Cache {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Cache{
		feed:     feed,
		interval: interval,
		timeout:  interval,
		log:      log,
		now:      time.Now,
		rates:    make(map[string]Rate),
		inflight: atomic.NewBool(false),
		subs:     make(map[chan struct{}]struct{}),
	}
}

// WithTimeout bounds every fetch to d. Non-positive values are ignored.
func (c *Cache) WithTimeout(d time.Duration) *Cache {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Start refreshes immediately and then on every tick until Stop is called or
// ctx ends. A tick that fires while the previous fetch is still running is
// skipped.
func (c *Cache) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.loop(ctx)

	return nil
}

// Stop cancels the refresh timer and waits for any fetch in flight
func (c *Cache) Stop() {
	c.runMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

func (c *Cache) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Cache) tick(ctx context.Context) {
	if !c.inflight.CAS(false, true) {
		c.log.Debugw("skipping price refresh, previous fetch still running")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Store(false)
		c.fetch(ctx)
	}()
}

// Refresh runs one fetch synchronously. It returns false without fetching
// when another fetch is in flight.
func (c *Cache) Refresh(ctx context.Context) bool {
	if !c.inflight.CAS(false, true) {
		return false
	}
	defer c.inflight.Store(false)
	c.fetch(ctx)
	return true
}

func (c *Cache) fetch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rates, err := c.feed.FetchRates(ctx)
	if err != nil {
		// Keep serving the previous rates.
		c.log.Warnw("price refresh failed", "err", err)
		return
	}
	if len(rates) == 0 {
		return
	}

	now := c.now()
	c.mu.Lock()
	for symbol, value := range rates {
		c.rates[strings.ToUpper(symbol)] = Rate{Value: value, UpdatedAt: now}
	}
	c.mu.Unlock()

	c.log.Debugw("price cache refreshed", "symbols", len(rates))
	c.notify()
}

// Get returns the last known rate for symbol
func (c *Cache) Get(symbol string) (Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[strings.ToUpper(symbol)]
	return r, ok
}

// Rate implements the intent package's rate source
func (c *Cache) Rate(symbol string) (decimal.Decimal, bool) {
	r, ok := c.Get(symbol)
	return r.Value, ok
}

// Snapshot copies the current rates
func (c *Cache) Snapshot() map[string]Rate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Rate, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}

// Subscribe returns a channel that receives a value after each successful
// refresh. Notifications coalesce; a slow reader sees at most one pending.
func (c *Cache) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()
	return ch
}

// Unsubscribe stops notifications on ch
func (c *Cache) Unsubscribe(ch <-chan struct{}) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for sub := range c.subs {
		if sub == ch {
			delete(c.subs, sub)
		}
	}
}

func (c *Cache) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
