// Package gocardless is a client for the GoCardless Bank Account Data API.
package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/bankbal/internal/secrets"
	"github.com/matsen/bankbal/internal/tokencache"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Bank Account Data API v2 base URL.
	BaseURL = "https://bankaccountdata.gocardless.com/api/v2"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit caps outgoing requests per second. The API enforces much
	// stricter per-account daily quotas; this only prevents bursts.
	RateLimit = 4.0

	// accessSkew is how long before expiry an access token is refreshed.
	accessSkew = 30 * time.Second
)

// TokenStore persists refresh tokens between runs.
type TokenStore interface {
	Load(ctx context.Context) (*tokencache.Token, error)
	Save(ctx context.Context, tok *tokencache.Token) error
}

// CredentialsFunc supplies the user secrets used to mint a new token pair.
// It is only called when no valid refresh token is cached.
type CredentialsFunc func() (secrets.UserSecrets, error)

// Client is a rate-limited HTTP client for the Bank Account Data API.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	tokens      TokenStore
	credentials CredentialsFunc
	now         func() time.Time
	logger      *slog.Logger

	access          string
	accessExpiresAt time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTokenStore sets where refresh tokens are cached.
func WithTokenStore(s TokenStore) ClientOption {
	return func(c *Client) {
		c.tokens = s
	}
}

// WithCredentials sets the source of user secrets.
func WithCredentials(fn CredentialsFunc) ClientOption {
	return func(c *Client) {
		c.credentials = fn
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithClock overrides time.Now (for testing).
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Bank Account Data API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one API request. When authorized is true the request carries
// a bearer access token. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authorized bool) error {
	var token string
	if authorized {
		var err error
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gocardless request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return parseAPIError(resp, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}

// parseAPIError builds an *APIError from an error response, tolerating non-JSON bodies.
func parseAPIError(resp *http.Response, path string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && (body.Summary != "" || body.Detail != "") {
		apiErr.Summary = body.Summary
		apiErr.Detail = body.Detail
	} else if text := strings.TrimSpace(string(data)); text != "" {
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		apiErr.Summary = text
	} else {
		apiErr.Summary = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// accessToken returns a bearer token, refreshing it when needed. The token
// lives in memory only.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.access != "" && c.now().Before(c.accessExpiresAt.Add(-accessSkew)) {
		return c.access, nil
	}

	refresh, cached, err := c.refreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		// A freshly minted pair already set the access token.
		return c.access, nil
	}

	err = c.refreshAccess(ctx, refresh)
	if err != nil && cached && IsAuthError(err) {
		c.logger.Warn("cached refresh token rejected, requesting a new token pair", "error", err)
		if err = c.mintToken(ctx); err != nil {
			return "", err
		}
		return c.access, nil
	}
	if err != nil {
		return "", err
	}
	return c.access, nil
}

// refreshToken returns a cached refresh token (cached=true), or mints a new
// pair and returns an empty refresh token.
func (c *Client) refreshToken(ctx context.Context) (refresh string, cached bool, err error) {
	if c.tokens != nil {
		tok, err := c.tokens.Load(ctx)
		if err == nil {
			return tok.Refresh, true, nil
		}
		if !errors.Is(err, tokencache.ErrMiss) {
			return "", false, fmt.Errorf("loading token cache: %w", err)
		}
		c.logger.Debug("refresh token cache miss", "reason", err)
	}
	if err := c.mintToken(ctx); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// mintToken exchanges user secrets for a new token pair and caches the refresh token.
func (c *Client) mintToken(ctx context.Context) error {
	if c.credentials == nil {
		return fmt.Errorf("%w: no user secrets configured", ErrAuthError)
	}
	creds, err := c.credentials()
	if err != nil {
		return err
	}

	var pair tokenPair
	body := map[string]string{"secret_id": creds.SecretID, "secret_key": creds.SecretKey}
	if err := c.do(ctx, http.MethodPost, "/token/new/", body, &pair, false); err != nil {
		return fmt.Errorf("requesting token pair: %w", err)
	}
	if pair.Refresh == "" || pair.Access == "" {
		return fmt.Errorf("%w: token pair without tokens", ErrInvalidResponse)
	}

	now := c.now()
	c.setAccess(pair.Access, pair.AccessExpires, now)

	if c.tokens != nil {
		tok := &tokencache.Token{Refresh: pair.Refresh}
		if pair.RefreshExpires > 0 {
			tok.RefreshExpiresAt = now.Unix() + pair.RefreshExpires
		}
		if err := c.tokens.Save(ctx, tok); err != nil {
			c.logger.Warn("could not cache refresh token", "error", err)
		}
	}
	return nil
}

// refreshAccess exchanges a refresh token for a new access token.
func (c *Client) refreshAccess(ctx context.Context, refresh string) error {
	var tok accessToken
	if err := c.do(ctx, http.MethodPost, "/token/refresh/", map[string]string{"refresh": refresh}, &tok, false); err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}
	if tok.Access == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidResponse)
	}
	c.setAccess(tok.Access, tok.AccessExpires, c.now())
	return nil
}

func (c *Client) setAccess(access string, expiresIn int64, now time.Time) {
	c.access = access
	if expiresIn > 0 {
		c.accessExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	} else {
		// Unknown lifetime: use it for this request only.
		c.accessExpiresAt = now.Add(accessSkew)
	}
}

// Institutions lists the banks available in a country (ISO 3166 two-letter code).
func (c *Client) Institutions(ctx context.Context, country string) ([]Institution, error) {
	path := "/institutions/?country=" + url.QueryEscape(strings.ToLower(country))
	var out []Institution
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRequisition starts a bank-link flow.
func (c *Client) CreateRequisition(ctx context.Context, req RequisitionRequest) (*Requisition, error) {
	var out Requisition
	if err := c.do(ctx, http.MethodPost, "/requisitions/", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requisition fetches a requisition by ID.
func (c *Client) Requisition(ctx context.Context, id string) (*Requisition, error) {
	var out Requisition
	if err := c.do(ctx, http.MethodGet, "/requisitions/"+url.PathEscape(id)+"/", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountBalances fetches the balances of an account.
func (c *Client) AccountBalances(ctx context.Context, accountID string) (*Balances, error) {
	var out Balances
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/balances/", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
