package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryBackoff is the pause before the single retry.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultMaxBodySize caps the size of a page body.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// DefaultUserAgent is a desktop browser string. Several providers serve
	// a stripped page or a captcha to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/61.0.3163.100 Safari/537.36"

	maxAttempts = 2
)

// Page is a fetched and decoded HTML page.
type Page struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status. It is 2xx, or a 4xx from the
	// allow-list that providers inspect themselves.
	StatusCode int

	// ContentType is the Content-Type response header.
	ContentType string

	// Charset is the encoding that was used to decode Body.
	Charset string

	// Declared is the encoding declared by the server or the document.
	// It differs from Charset when the fallback decoder was applied.
	Declared string

	// Body is the page decoded to UTF-8.
	Body []byte
}

// NotFound reports whether the server answered with a "gone" status.
func (p *Page) NotFound() bool {
	return p.StatusCode == http.StatusNotFound || p.StatusCode == http.StatusGone
}

// allowedStatus lists the 4xx statuses that return a page instead of an
// error. Wikis answer missing articles with 404 and a readable body.
var allowedStatus = map[int]bool{
	http.StatusNotFound: true,
	http.StatusGone:     true,
}

// Client fetches pages, optionally through a SOCKS5 proxy.
// It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	proxyAddress string
	timeout      time.Duration
	userAgent    string
	retryBackoff time.Duration
	maxBodySize  int64
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes every request through the SOCKS5 proxy at address
// ("host:port"), typically Tor's SOCKS port.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryBackoff sets the pause before the retry of a transient failure.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		c.retryBackoff = backoff
	}
}

// WithMaxBodySize sets the largest body the client reads.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithLogger sets the logger for retries and charset fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client. The proxy and timeout
// options are ignored when it is set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a Client. It does not contact the proxy; the Tor
// controller verifies reachability before the first fetch.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:      DefaultTimeout,
		userAgent:    DefaultUserAgent,
		retryBackoff: DefaultRetryBackoff,
		maxBodySize:  DefaultMaxBodySize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		return c, nil
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
	}

	if c.proxyAddress != "" {
		if !ValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		// Tor's SOCKS port does not require authentication.
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// ValidProxyAddress reports whether address is "host:port" with a non-empty
// host and a port between 1 and 65535.
func ValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured SOCKS5 proxy address, or "".
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Fetch downloads rawURL and decodes it to UTF-8.
//
// A transient failure (timeout, connection reset, 5xx, 408 or 429) is
// retried exactly once after the retry backoff. Anything else fails at once.
// A 404 or 410 is returned as a Page so that the caller can read the body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Attempts: 0, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		page, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		transient := isTransient(ctx, err)
		if !transient || attempt == maxAttempts {
			return nil, newFetchError(rawURL, attempt, transient, err)
		}

		c.logger.Debug("retrying after transient failure",
			"url", rawURL,
			"error", err,
			"backoff", c.retryBackoff,
		)

		timer := time.NewTimer(c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, newFetchError(rawURL, attempt, false, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, newFetchError(rawURL, maxAttempts, true, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !allowedStatus[resp.StatusCode] {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
		return nil, &statusError{code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > c.maxBodySize {
		return nil, ErrBodyTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	decoded := Decode(raw, contentType)
	if decoded.Charset != decoded.Declared {
		c.logger.Debug("charset fallback applied",
			"url", rawURL,
			"declared", decoded.Declared,
			"used", decoded.Charset,
		)
	}

	return &Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Charset:     decoded.Charset,
		Declared:    decoded.Declared,
		Body:        decoded.Body,
	}, nil
}

// CloseIdleConnections drops pooled keep-alive connections so that the next
// request opens a new one. After a Tor identity rotation this makes the
// following requests use the new circuit.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func newFetchError(rawURL string, attempts int, transient bool, err error) *FetchError {
	fe := &FetchError{URL: rawURL, Attempts: attempts, Transient: transient, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		fe.StatusCode = se.code
	}
	return fe
}

// isTransient reports whether err is worth one retry.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
