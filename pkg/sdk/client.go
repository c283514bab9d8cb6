package talentsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "talentsearch-go"
	maxErrorBody     = 64 << 10
)

// Client is the talentsearch SDK entry point. Safe for concurrent use.
type Client struct {
	base        *url.URL
	http        *http.Client
	credentials CredentialSource
	scheme      string
	userAgent   string
	obs         *observer
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		scheme:    "Token",
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("talentsearch: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		base:        u,
		http:        hc,
		credentials: cfg.credentials,
		scheme:      cfg.scheme,
		userAgent:   cfg.userAgent,
		obs:         obs,
	}, nil
}

// Search starts a search request.
func (c *Client) Search() *SearchBuilder {
	return &SearchBuilder{client: c, params: url.Values{}}
}

// get sends GET path?query and decodes a 2xx JSON body into out.
// authenticated requests carry a fresh credential.
func (c *Client) get(ctx context.Context, path string, query url.Values, authenticated bool, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("talentsearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if authenticated && c.credentials != nil {
		cred, err := c.credentials(ctx)
		if err != nil {
			return fmt.Errorf("talentsearch: credential: %w", err)
		}
		req.Header.Set("Authorization", c.scheme+" "+cred)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("talentsearch: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("talentsearch: decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Code = "unknown"
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsRetryable reports whether err is worth retrying with a fresh credential.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}
