package stockfolio

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PriceSource provides daily closing prices and FX rates. Implementations
// are read-only from the engine's point of view; providers fill their
// backing data out of band.
type PriceSource interface {
	// CloseOn returns the closing price of an instrument on a date, in the
	// instrument's currency. The second return is false when no close exists
	// for that exact date.
	CloseOn(instr Instrument, on Date) (Money, bool, error)
	// FXRate returns the USD to reporting-currency rate applicable on a
	// date. Sources without historical rates may return a single current
	// rate for every date.
	FXRate(on Date) (decimal.Decimal, error)
}

// closeKey identifies one memoized price lookup.
type closeKey struct {
	ticker string
	on     Date
}

type closeValue struct {
	price Money
	ok    bool
}

// cachedPriceSource memoizes lookups for the duration of one replay run.
// A full-history rebuild asks for the same (instrument, date) close once per
// fallback probe and the same FX rate once per day; without the cache a
// network-backed source would be hammered.
type cachedPriceSource struct {
	src PriceSource

	mu     sync.Mutex
	closes map[closeKey]closeValue
	fx     map[Date]decimal.Decimal
}

// CachePrices wraps a price source with per-run memoization. Safe for
// concurrent use across per-user replays.
func CachePrices(src PriceSource) PriceSource {
	return &cachedPriceSource{
		src:    src,
		closes: make(map[closeKey]closeValue),
		fx:     make(map[Date]decimal.Decimal),
	}
}

func (c *cachedPriceSource) CloseOn(instr Instrument, on Date) (Money, bool, error) {
	key := closeKey{ticker: instr.Ticker, on: on}

	c.mu.Lock()
	v, hit := c.closes[key]
	c.mu.Unlock()
	if hit {
		return v.price, v.ok, nil
	}

	price, ok, err := c.src.CloseOn(instr, on)
	if err != nil {
		return Money{}, false, err
	}

	c.mu.Lock()
	c.closes[key] = closeValue{price: price, ok: ok}
	c.mu.Unlock()
	return price, ok, nil
}

func (c *cachedPriceSource) FXRate(on Date) (decimal.Decimal, error) {
	c.mu.Lock()
	rate, hit := c.fx[on]
	c.mu.Unlock()
	if hit {
		return rate, nil
	}

	rate, err := c.src.FXRate(on)
	if err != nil {
		return decimal.Decimal{}, err
	}

	c.mu.Lock()
	c.fx[on] = rate
	c.mu.Unlock()
	return rate, nil
}

// maxPriceGapDays bounds how far back a missing close may be substituted by
// the most recent earlier close. Beyond this the instrument contributes zero
// for the day rather than a stale value.
const maxPriceGapDays = 10

// closeWithFallback resolves a close for valuation: the exact date, else the
// most recent close within the prior gap window, else absent.
func closeWithFallback(src PriceSource, instr Instrument, on Date) (Money, bool, error) {
	for back := 0; back <= maxPriceGapDays; back++ {
		price, ok, err := src.CloseOn(instr, on.Add(-back))
		if err != nil {
			return Money{}, false, err
		}
		if ok {
			return price, true, nil
		}
	}
	return Money{}, false, nil
}
