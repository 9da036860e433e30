package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	// earlyExpiry retires a token before the server-declared expiry so a
	// request never flies with a token about to lapse mid-flight.
	earlyExpiry = 5 * time.Minute
	// maxTokenAge caps how long a token is trusted regardless of what the
	// server declared.
	maxTokenAge = 12 * time.Hour
)

// cachedToken is the on-disk token cache format.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	IssuedAt    time.Time `json:"issued_at"`
}

func (t cachedToken) valid(now time.Time) bool {
	return t.AccessToken != "" &&
		now.Before(t.ExpiresAt) &&
		now.Sub(t.IssuedAt) < maxTokenAge
}

// accessToken returns a usable token: memory first, then the disk cache,
// then a fresh request. The mutex makes the refresh single-flight so
// concurrent callers never race to mint duplicate tokens.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.token.valid(now) {
		return c.token.AccessToken, nil
	}

	if tok, ok := c.loadTokenFromDisk(now); ok {
		c.token = tok
		return tok.AccessToken, nil
	}

	tok, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	c.saveTokenToDisk(tok)
	return tok.AccessToken, nil
}

// invalidateToken drops the cached token everywhere. The next request mints
// a fresh one.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = cachedToken{}
	if err := os.Remove(c.tokenPath()); err != nil && !os.IsNotExist(err) {
		log.Printf("[kis] removing token cache: %v", err)
	}
}

func (c *Client) loadTokenFromDisk(now time.Time) (cachedToken, bool) {
	content, err := os.ReadFile(c.tokenPath())
	if err != nil {
		return cachedToken{}, false
	}
	var tok cachedToken
	if err := json.Unmarshal(content, &tok); err != nil {
		return cachedToken{}, false
	}
	return tok, tok.valid(now)
}

// saveTokenToDisk is best effort: a failed write only costs a refetch.
func (c *Client) saveTokenToDisk(tok cachedToken) {
	content, err := json.Marshal(tok)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.tokenPath(), content, 0o600); err != nil {
		log.Printf("[kis] writing token cache: %v", err)
	}
}

// requestToken mints a new access token.
func (c *Client) requestToken(ctx context.Context) (cachedToken, error) {
	body, _ := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return cachedToken{}, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.cli.Do(req)
	if err != nil {
		return cachedToken{}, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cachedToken{}, fmt.Errorf("requesting token: %v", resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return cachedToken{}, fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return cachedToken{}, fmt.Errorf("token response carries no access token")
	}
	if payload.ExpiresIn == 0 {
		payload.ExpiresIn = 86400
	}

	now := time.Now()
	return cachedToken{
		AccessToken: payload.AccessToken,
		ExpiresAt:   now.Add(time.Duration(payload.ExpiresIn)*time.Second - earlyExpiry),
		IssuedAt:    now,
	}, nil
}
