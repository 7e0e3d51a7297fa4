package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscrape/internal/cache"
)

// BrowserUserAgent is a desktop Chrome identity. Many sites answer bare Go
// clients with 403s or bot challenges.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 10 * time.Second

// Client wraps http.Client with a browser user agent, a per-request timeout
// and optional conditional caching.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero means a single attempt.
	MaxAttempts int
	// PerRequestTimeout bounds each request. Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.PageCache
	// BypassCache skips conditional headers but still stores the fresh response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
}

// New returns a Client with the browser user agent and the given timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{UserAgent: BrowserUserAgent, MaxAttempts: 1, PerRequestTimeout: timeout}
}

func (c *Client) timeout() time.Duration {
	if c.PerRequestTimeout > 0 {
		return c.PerRequestTimeout
	}
	return DefaultTimeout
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.timeout(), CheckRedirect: c.checkRedirectFunc()}
}

// FetchHTML retrieves the page at rawURL and returns its body decoded to
// UTF-8. Every failure is reported as *Error.
func (c *Client) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	body, ct, err := c.Get(ctx, rawURL)
	if err != nil {
		ferr := &Error{URL: rawURL, Err: err}
		var se *StatusError
		if errors.As(err, &se) {
			ferr.Status = se.Code
		}
		return "", ferr
	}
	text, err := decodeBody(body, ct)
	if err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("decode body: %w", err)}
	}
	log.Debug().Str("url", rawURL).Int("bytes", len(body)).Str("content_type", ct).Msg("fetched page")
	return text, nil
}

// Get issues a GET with context, user-agent, and bounded retry for transient errors.
// It returns the raw body and the response content type. With a cache, a
// stored page is revalidated and served again on 304.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	var cached *cache.Page
	if c.Cache != nil && !c.BypassCache {
		if p, err := c.Cache.Lookup(ctx, rawURL); err == nil && p.Revalidatable() {
			cached = p
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := c.tryOnce(ctx, rawURL, cached)
		if err == nil && res.status == http.StatusNotModified {
			if cached == nil {
				return nil, "", fmt.Errorf("unexpected %d without a cached copy", res.status)
			}
			log.Debug().Str("url", rawURL).Str("charset", cached.Charset).Msg("page not modified; serving cached copy")
			return cached.Body, withCharset(cached.ContentType, cached.Charset), nil
		}
		if err == nil {
			c.store(ctx, rawURL, res)
			return res.body, res.contentType, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			return nil, "", err
		}
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, "", lastErr
}

func (c *Client) store(ctx context.Context, rawURL string, res response) {
	if c.Cache == nil || res.status != http.StatusOK {
		return
	}
	p := &cache.Page{
		URL:          rawURL,
		ContentType:  res.contentType,
		Charset:      detectCharset(res.body, res.contentType),
		ETag:         res.etag,
		LastModified: res.lastModified,
		Body:         res.body,
	}
	if err := c.Cache.Store(ctx, p); err != nil {
		log.Warn().Err(err).Str("url", rawURL).Msg("page cache store failed")
	}
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, cached *cache.Page) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.Scheme)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	reqCtx, cancel := context.WithTimeout(req.Context(), c.timeout())
	defer cancel()
	req = req.WithContext(reqCtx)

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{status: resp.StatusCode}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	if !isAllowedContentType(out.contentType) {
		return response{status: resp.StatusCode}, fmt.Errorf("unsupported content type: %s", out.contentType)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{status: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	out.body = b
	return out, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500 && se.Code <= 599
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isAllowedContentType accepts HTML, XHTML and other textual bodies. Servers
// that omit the header are trusted.
func isAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/") || strings.HasPrefix(ct, "application/xhtml+xml")
}
