// Package yahoo fetches daily closes and FX rates from the Yahoo Finance v8
// chart API. It is a backfill source: batch jobs write its results into the
// price store, and the engine never talks to it directly.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/kwahn/stockfolio"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://query2.finance.yahoo.com"

// ErrNoResult is returned when the chart payload carries no result for the
// requested symbol.
var ErrNoResult = errors.New("yahoo: no result")

// Close is one daily close of an instrument, in its currency.
type Close struct {
	Date  stockfolio.Date
	Price stockfolio.Money
}

// Rate is one daily USD rate in the reporting currency.
type Rate struct {
	Date stockfolio.Date
	Rate decimal.Decimal
}

// Client talks to the Yahoo Finance chart API. Responses are cached on disk
// with daily expiry, so repeated backfills within a day do not refetch.
type Client struct {
	cli *http.Client

	// BaseURL overrides the API endpoint. Set in tests.
	BaseURL string
}

// New creates a client with the daily disk cache.
func New() *Client {
	return &Client{cli: daily()}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// Symbol maps an instrument to its Yahoo symbol. Korean tickers carry the
// KOSPI suffix; US tickers are used as is.
func Symbol(instr stockfolio.Instrument) string {
	if instr.Market == stockfolio.MarketKR {
		return instr.Ticker + ".KS"
	}
	return instr.Ticker
}

// fxPair is the Yahoo symbol for the USD rate in a reporting currency,
// e.g. "USDKRW=X".
func fxPair(reporting string) string { return "USD" + reporting + "=X" }

// History fetches the daily closes of an instrument over a date range, in
// the instrument's currency, oldest first. Days the exchange was closed are
// simply absent.
func (c *Client) History(ctx context.Context, instr stockfolio.Instrument, rng stockfolio.Range) ([]Close, error) {
	dates, prices, err := c.chart(ctx, Symbol(instr), rng)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", instr.Ticker, err)
	}
	closes := make([]Close, len(prices))
	for i, p := range prices {
		closes[i] = Close{Date: dates[i], Price: stockfolio.M(p, instr.Currency())}
	}
	return closes, nil
}

// FXHistory fetches the daily USD rates in the reporting currency over a
// date range, oldest first.
func (c *Client) FXHistory(ctx context.Context, reporting string, rng stockfolio.Range) ([]Rate, error) {
	dates, rates, err := c.chart(ctx, fxPair(reporting), rng)
	if err != nil {
		return nil, fmt.Errorf("fx history USD/%s: %w", reporting, err)
	}
	out := make([]Rate, len(rates))
	for i, r := range rates {
		out[i] = Rate{Date: dates[i], Rate: r}
	}
	return out, nil
}

// chart fetches and parses one v8 chart payload.
func (c *Client) chart(ctx context.Context, symbol string, rng stockfolio.Range) ([]stockfolio.Date, []decimal.Decimal, error) {
	// period2 is exclusive, so reach one day past the range end.
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL(), url.PathEscape(symbol),
		rng.From.Time().Unix(), rng.To.Add(1).Time().Unix())

	jobj, err := c.jwget(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	if result, err := jsonpath.Get("$.chart.result", jobj); err != nil {
		return nil, nil, ErrNoResult
	} else if list, ok := result.([]any); !ok || len(list) == 0 {
		return nil, nil, ErrNoResult
	}

	// The exchange's UTC offset decides which calendar day a timestamp
	// belongs to. Seoul closes land on the next UTC-naive day otherwise.
	offset := time.Duration(0)
	if v, err := jsonpath.Get("$.chart.result[0].meta.gmtoffset", jobj); err == nil {
		if f, ok := v.(float64); ok {
			offset = time.Duration(f) * time.Second
		}
	}

	timestamps, err := jsonpath.Get("$.chart.result[0].timestamp", jobj)
	if err != nil {
		return nil, nil, ErrNoResult // symbol exists but has no bars in range
	}
	closes, err := jsonpath.Get("$.chart.result[0].indicators.quote[0].close", jobj)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", symbol, err)
	}

	tsList, ok1 := timestamps.([]any)
	closeList, ok2 := closes.([]any)
	if !ok1 || !ok2 || len(tsList) != len(closeList) {
		return nil, nil, fmt.Errorf("parsing %s: timestamps and closes disagree", symbol)
	}

	var dates []stockfolio.Date
	var prices []decimal.Decimal
	for i := range tsList {
		ts, ok := tsList[i].(float64)
		if !ok {
			continue
		}
		price, ok := closeList[i].(float64)
		if !ok || price <= 0 {
			continue // null close, e.g. a half-session
		}
		t := time.Unix(int64(ts), 0).UTC().Add(offset)
		d := stockfolio.NewDate(t.Date())
		if !rng.Contains(d) {
			continue
		}
		dates = append(dates, d)
		prices = append(prices, decimal.NewFromFloat(price))
	}
	return dates, prices, nil
}

// CurrentFXRate fetches the latest USD rate in the reporting currency.
func (c *Client) CurrentFXRate(ctx context.Context, reporting string) (decimal.Decimal, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d",
		c.baseURL(), url.PathEscape(fxPair(reporting)))

	jobj, err := c.jwget(ctx, addr)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("current fx USD/%s: %w", reporting, err)
	}

	jval, err := jsonpath.Get("$.chart.result[0].meta.regularMarketPrice", jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("current fx USD/%s: %w", reporting, ErrNoResult)
	}
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	rate, ok := jval.(float64)
	if !ok || rate <= 0 {
		return decimal.Decimal{}, fmt.Errorf("current fx USD/%s: not a price: %v", reporting, jval)
	}
	return decimal.NewFromFloat(rate), nil
}
