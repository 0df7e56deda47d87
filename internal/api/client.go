package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/market-recorder/internal/auth"
	"github.com/rickgao/market-recorder/internal/version"
)

// Coinbase rejects requests without a User-Agent.
var userAgent = "market-recorder/" + version.Version

// Client provides access to the Coinbase Exchange REST API.
type Client struct {
	baseURL     string
	credentials *auth.Credentials
	httpClient  *http.Client
	logger      *slog.Logger
	now         func() time.Time

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. Public endpoints need no
// credentials.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		now:          time.Now,
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithCredentials signs every request with creds.
func WithCredentials(creds *auth.Credentials) ClientOption {
	return func(c *Client) {
		c.credentials = creds
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
