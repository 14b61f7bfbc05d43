// Package dexcom is a client for the Dexcom Share follower API, the remote
// service the panel reads glucose values from.
package dexcom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/harveysanders/glucopanel/xslog"
)

// Region selects the Share deployment an account lives in.
type Region string

const (
	RegionUS    Region = "us"
	RegionOUS   Region = "ous"
	RegionJapan Region = "jp"
)

type regionInfo struct {
	baseURL       string
	applicationID string
}

var regions = map[Region]regionInfo{
	RegionUS:    {baseURL: "https://share2.dexcom.com/ShareWebServices/Services", applicationID: "d89443d2-327c-4a6f-89e5-496bbb0317db"},
	RegionOUS:   {baseURL: "https://shareous1.dexcom.com/ShareWebServices/Services", applicationID: "d89443d2-327c-4a6f-89e5-496bbb0317db"},
	RegionJapan: {baseURL: "https://share.dexcom.jp/ShareWebServices/Services", applicationID: "d8665ade-9673-4e27-9ff6-92db4ce13d13"},
}

// ParseRegion validates a region name.
func ParseRegion(s string) (Region, error) {
	r := Region(s)
	if _, ok := regions[r]; !ok {
		return "", fmt.Errorf("unknown dexcom region %q (valid: us, ous, jp)", s)
	}
	return r, nil
}

const userAgent = "glucopanel/1"

// Client holds one Share session. It is safe for concurrent use.
type Client struct {
	baseURL       string
	applicationID string
	httpClient    *http.Client
	logger        *slog.Logger

	mu        sync.Mutex
	sessionID string
}

type clientConfig struct {
	region  Region
	baseURL string
	logger  *slog.Logger
	timeout time.Duration
	client  *http.Client
}

type Option func(*clientConfig)

func WithRegion(r Region) Option {
	return func(cfg *clientConfig) { cfg.region = r }
}

// WithBaseURL points the client at another server, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = u }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.client = c }
}

func New(opts ...Option) *Client {
	cfg := &clientConfig{
		region:  RegionUS,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	info, ok := regions[cfg.region]
	if !ok {
		info = regions[RegionUS]
	}
	if cfg.baseURL != "" {
		info.baseURL = cfg.baseURL
	}

	httpClient := &http.Client{Timeout: cfg.timeout}
	if cfg.client != nil {
		*httpClient = *cfg.client
	}
	httpClient.Transport = &shareTransport{base: httpClient.Transport}

	return &Client{
		baseURL:       info.baseURL,
		applicationID: info.applicationID,
		httpClient:    httpClient,
		logger:        xslog.OrDiscard(cfg.logger),
	}
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// do POSTs body as JSON to path and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, path string, query url.Values, body any, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		b, err := go_json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.Debug("dexcom:request", slog.String("path", path), slog.Int("status", resp.StatusCode), xslog.Duration(time.Since(start)))

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := go_json.NewDecoder(bytes.NewReader(b)).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w\nbody: %s", err, string(b))
	}
	return nil
}

type shareTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*shareTransport)(nil)

func (t *shareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
