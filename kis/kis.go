// Package kis is a client for the KIS (Korea Investment & Securities) open
// API: Korean market quotes and daily closes. Like the yahoo package it is a
// backfill source feeding the price store.
package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kwahn/stockfolio"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://openapi.koreainvestment.com:9443"

// authExpiredCode is the KIS message code for an expired or revoked token.
const authExpiredCode = "EGW00123"

// Config carries the KIS app credentials.
type Config struct {
	AppKey    string
	AppSecret string

	// BaseURL overrides the API endpoint. Set in tests.
	BaseURL string
	// TokenPath overrides where the token cache file lives,
	// os.TempDir()/kis_token_cache.json when empty.
	TokenPath string
}

// Client talks to the KIS open API. Requests are throttled under the API's
// rate cap and authenticated with a cached access token.
type Client struct {
	cfg     Config
	cli     *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	token cachedToken
}

// New creates a client. The limiter stays under KIS's 20 requests/second
// account cap.
func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		cli:     &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(60*time.Millisecond), 1),
	}
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) tokenPath() string {
	if c.cfg.TokenPath != "" {
		return c.cfg.TokenPath
	}
	return filepath.Join(os.TempDir(), "kis_token_cache.json")
}

// response is the common KIS payload envelope.
type response struct {
	RtCd   string          `json:"rt_cd"`
	MsgCd  string          `json:"msg_cd"`
	Msg    string          `json:"msg1"`
	Output json.RawMessage `json:"output"`
}

// request performs one authenticated GET. An auth failure invalidates the
// token and retries exactly once with a fresh one.
func (c *Client) request(ctx context.Context, endpoint, trID string, params url.Values) (json.RawMessage, error) {
	out, retry, err := c.do(ctx, endpoint, trID, params)
	if retry {
		c.invalidateToken()
		out, _, err = c.do(ctx, endpoint, trID, params)
	}
	return out, err
}

func (c *Client) do(ctx context.Context, endpoint, trID string, params url.Values) (out json.RawMessage, authFailed bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("content-type", "application/json; charset=utf-8")

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, true, fmt.Errorf("GET %s: %v", endpoint, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("GET %s: %v", endpoint, resp.Status)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	if payload.RtCd != "0" {
		if payload.MsgCd == authExpiredCode {
			return nil, true, fmt.Errorf("%s: token expired (%s)", endpoint, payload.Msg)
		}
		return nil, false, fmt.Errorf("%s: %s (%s)", endpoint, payload.Msg, payload.MsgCd)
	}
	return payload.Output, false, nil
}

// Quote is the current state of one Korean ticker.
type Quote struct {
	Ticker        string
	Price         stockfolio.Money
	Change        stockfolio.Money
	ChangePercent stockfolio.Percent
	Volume        int64
}

// Quote fetches the current price of a Korean ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (Quote, error) {
	params := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {ticker},
	}
	out, err := c.request(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", "FHKST01010100", params)
	if err != nil {
		return Quote{}, fmt.Errorf("quote of %s: %w", ticker, err)
	}

	var raw struct {
		Price         string `json:"stck_prpr"`
		Change        string `json:"prdy_vrss"`
		ChangePercent string `json:"prdy_ctrt"`
		Volume        string `json:"acml_vol"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return Quote{}, fmt.Errorf("quote of %s: %w", ticker, err)
	}

	q := Quote{Ticker: ticker}
	if q.Price, err = parseKRW(raw.Price); err != nil {
		return Quote{}, fmt.Errorf("quote of %s: %w", ticker, err)
	}
	if q.Change, err = parseKRW(raw.Change); err != nil {
		return Quote{}, fmt.Errorf("quote of %s: %w", ticker, err)
	}
	if pct, err := strconv.ParseFloat(raw.ChangePercent, 64); err == nil {
		q.ChangePercent = stockfolio.Percent(pct)
	}
	if vol, err := strconv.ParseInt(raw.Volume, 10, 64); err == nil {
		q.Volume = vol
	}
	return q, nil
}

// Close is one daily close of a Korean ticker.
type Close struct {
	Date  stockfolio.Date
	Price stockfolio.Money
}

// DailyCloses fetches the recent daily closes of a Korean ticker, oldest
// first. The endpoint returns roughly the last 30 sessions; longer backfills
// come from the yahoo package.
func (c *Client) DailyCloses(ctx context.Context, ticker string) ([]Close, error) {
	params := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {ticker},
		"FID_PERIOD_DIV_CODE":    {"D"},
		"FID_ORG_ADJ_PRC":        {"0"},
	}
	out, err := c.request(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-price", "FHKST01010400", params)
	if err != nil {
		return nil, fmt.Errorf("daily closes of %s: %w", ticker, err)
	}

	var raw []struct {
		Date  string `json:"stck_bsop_date"` // "20250102"
		Close string `json:"stck_clpr"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("daily closes of %s: %w", ticker, err)
	}

	closes := make([]Close, 0, len(raw))
	for _, r := range raw {
		t, err := time.Parse("20060102", r.Date)
		if err != nil {
			continue // skip the occasional blank row
		}
		price, err := parseKRW(r.Close)
		if err != nil {
			continue
		}
		closes = append(closes, Close{Date: stockfolio.NewDate(t.Date()), Price: price})
	}
	// newest first on the wire
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}

func parseKRW(s string) (stockfolio.Money, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return stockfolio.Money{}, fmt.Errorf("not a KRW amount: %q", s)
	}
	return stockfolio.KRW(v), nil
}
