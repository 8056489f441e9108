// Package paypal is the REST client for the payment processor. It owns the
// client-credential access token (cached, refreshed transparently) and
// exposes the payout, identity and token-exchange endpoints the core
// consumes.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"casita/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type Client struct {
	cfg    config.Processor
	client *http.Client

	mu sync.Mutex
	ts oauth2.TokenSource
}

func NewClient(cfg config.Processor) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (c *Client) tokenURL() string {
	return c.cfg.BaseURL + "/v1/oauth2/token"
}

// tokenSource returns the cached client-credential token source, creating
// it on first use. The oauth2 package refreshes the token when it expires;
// resetTokenSource forces a fresh grant after a 401.
func (c *Client) tokenSource(ctx context.Context) oauth2.TokenSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts == nil {
		cc := &clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			TokenURL:     c.tokenURL(),
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		c.ts = cc.TokenSource(context.WithoutCancel(ctx))
	}
	return c.ts
}

func (c *Client) resetTokenSource() {
	c.mu.Lock()
	c.ts = nil
	c.mu.Unlock()
}

// doAuthorized performs an app-authenticated request, retrying once with a
// fresh token when the processor reports 401.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	for attempt := 0; ; attempt++ {
		tok, err := c.tokenSource(ctx).Token()
		if err != nil {
			return fmt.Errorf("processor token grant failed: %w", err)
		}

		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		tok.SetAuthHeader(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("processor request failed: %w", err)
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.resetTokenSource()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeAPIError(resp.StatusCode, respBody)
		}

		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, dest); err != nil {
			return fmt.Errorf("failed to decode processor response: %w", err)
		}
		return nil
	}
}

func decodeAPIError(status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	name := ae.Name
	message := ae.Message
	if name == "" && ae.Error != "" {
		name = ae.Error
		message = ae.ErrorDescription
	}
	if message == "" {
		message = string(body)
	}
	err := &APIError{StatusCode: status, Name: name, Message: message}
	if err.CredentialRejected() || name == "invalid_token" {
		return fmt.Errorf("%w: %s", ErrTokenExpired, message)
	}
	return err
}

// CreatePayout submits a single-item payout batch. senderItemID is the
// item-level idempotency key: resubmitting the same id returns the
// original batch instead of paying twice.
func (c *Client) CreatePayout(ctx context.Context, receiver, value, currency, note, senderItemID string) (*BatchResult, error) {
	req := payoutRequest{
		SenderBatchHeader: senderBatchHeader{
			SenderBatchID: "casita-" + senderItemID,
			EmailSubject:  "You have a payout from Casita",
		},
		Items: []payoutItem{{
			RecipientType: "EMAIL",
			Amount:        amount{Value: value, Currency: currency},
			Note:          note,
			SenderItemID:  senderItemID,
			Receiver:      receiver,
		}},
	}

	var resp payoutResponse
	if err := c.doAuthorized(ctx, http.MethodPost, "/v1/payments/payouts", req, &resp); err != nil {
		return nil, err
	}

	result := &BatchResult{
		BatchID: resp.BatchHeader.PayoutBatchID,
		Status:  resp.BatchHeader.BatchStatus,
	}
	if len(resp.Items) > 0 {
		result.ItemID = resp.Items[0].PayoutItemID
	}
	return result, nil
}

// GetPayoutStatus polls a previously created batch.
func (c *Client) GetPayoutStatus(ctx context.Context, batchID string) (*BatchResult, error) {
	var resp payoutResponse
	path := "/v1/payments/payouts/" + batchID
	if err := c.doAuthorized(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	result := &BatchResult{
		BatchID: resp.BatchHeader.PayoutBatchID,
		Status:  resp.BatchHeader.BatchStatus,
	}
	if len(resp.Items) > 0 {
		result.ItemID = resp.Items[0].PayoutItemID
	}
	return result, nil
}

// GetUserInfo fetches the identity behind a user access token, used to
// backfill a missing destination email.
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/v1/identity/oauth2/userinfo?schema=paypalv1.1", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var out struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Emails        []struct {
			Value   string `json:"value"`
			Primary bool   `json:"primary"`
		} `json:"emails"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	info := &UserInfo{Email: out.Email, Verified: out.EmailVerified}
	for _, e := range out.Emails {
		if e.Primary || info.Email == "" {
			info.Email = e.Value
		}
	}
	return info, nil
}

// oauthConfig is the authorization-code flow used when a user links their
// processor account.
func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "https://uri.paypal.com/services/payments/payouts"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.BaseURL + "/signin/authorize",
			TokenURL: c.tokenURL(),
		},
	}
}

// ExchangeAuthCode trades an authorization code for user tokens.
func (c *Client) ExchangeAuthCode(ctx context.Context, code, redirectURI string) (*Tokens, error) {
	conf := c.oauthConfig()
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth code exchange failed: %w", err)
	}

	tokens := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		tokens.ExpiresAt = tok.Expiry.Unix()
	}
	return tokens, nil
}
