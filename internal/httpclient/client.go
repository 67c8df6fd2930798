// Package httpclient provides a safe HTTP client with SSRF protections,
// used for outbound catalog provider requests.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrSSRFBlocked         = errors.New("request blocked by SSRF protection")
	ErrTooManyRedirects    = errors.New("too many redirects")
	ErrResponseTooLarge    = errors.New("response body too large")
	ErrInvalidURL          = errors.New("invalid URL")
	ErrRedirectBlocked     = errors.New("redirect blocked by policy")
	ErrRedirectNotSameHost = errors.New("redirect to different host blocked")
	ErrRedirectDowngrade   = errors.New("redirect from https to http blocked")
	ErrHostUnresolvable    = errors.New("host could not be resolved")
)

// Config controls outbound HTTP behavior.
type Config struct {
	SSRFMode           string // "strict" blocks private/loopback targets, "off" disables
	TimeoutMS          int
	ConnectTimeoutMS   int
	MaxRedirects       int
	MaxResponseBytes   int64
	InsecureSkipVerify bool
}

// DefaultConfig returns the strict production defaults.
func DefaultConfig() *Config {
	return &Config{
		SSRFMode:         "strict",
		TimeoutMS:        10000,
		ConnectTimeoutMS: 2000,
		MaxRedirects:     1,
		MaxResponseBytes: 1048576,
	}
}

// Client is a safe HTTP client with SSRF protections and bounded behavior.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// New creates a new safe HTTP client.
// The client ignores proxy environment variables (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Client{cfg: cfg}

	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
	}

	transport := &http.Transport{
		// Explicitly ignore proxy environment variables
		Proxy: nil,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			// Check SSRF before dialing
			if cfg.SSRFMode == "strict" {
				if err := c.checkSSRF(addr); err != nil {
					return nil, err
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
		// Redirects are handled manually so each hop passes policy checks.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return c
}

// checkSSRF validates that the address is not a private/loopback address.
func (c *Client) checkSSRF(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// No port, use the whole thing as host
		host = addr
	}
	return c.checkSSRFHost(host)
}

// checkSSRFHost validates that the host is not a private/loopback address.
// Handles IPv6 bracket notation (e.g., "[::1]").
func (c *Client) checkSSRFHost(host string) error {
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" || lowerHost == "localhost.localdomain" {
		return fmt.Errorf("%w: localhost is blocked", ErrSSRFBlocked)
	}

	// Try to parse as IP first (avoids DNS lookup for IP literals)
	if ip := net.ParseIP(host); ip != nil {
		if !isAllowedIP(ip) {
			return fmt.Errorf("%w: IP %s is blocked", ErrSSRFBlocked, ip)
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Cannot resolve - fail closed (block the request)
		return fmt.Errorf("%w: %s: %v", ErrHostUnresolvable, host, err)
	}

	for _, ip := range ips {
		if !isAllowedIP(ip) {
			return fmt.Errorf("%w: %s resolves to blocked IP %s", ErrSSRFBlocked, host, ip)
		}
	}
	return nil
}

// isAllowedIP checks if an IP address is allowed (not private/loopback/link-local).
func isAllowedIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return false
	}
	if ip.IsPrivate() {
		return false
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip.IsUnspecified() {
		return false
	}
	if ip.IsMulticast() {
		return false
	}
	return true
}

// Get performs a GET request with safety protections. Redirects are
// followed under strict constraints: same host, no https downgrade.
func (c *Client) Get(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return c.Do(req)
}

// Do performs an HTTP request with safety protections.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	// Pre-flight SSRF check
	if c.cfg.SSRFMode == "strict" {
		if err := c.checkSSRFHost(req.URL.Host); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if isRedirect(resp.StatusCode) {
		return c.followRedirect(req, resp, 0)
	}
	return resp, nil
}

// followRedirect follows a single redirect with strict constraints.
func (c *Client) followRedirect(origReq *http.Request, resp *http.Response, depth int) (*http.Response, error) {
	defer resp.Body.Close()

	maxRedirects := c.cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 1
	}
	if depth >= maxRedirects {
		return nil, fmt.Errorf("%w: exceeded limit of %d", ErrTooManyRedirects, maxRedirects)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("%w: no Location header", ErrRedirectBlocked)
	}

	redirectURL, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid Location: %v", ErrRedirectBlocked, err)
	}
	redirectURL = origReq.URL.ResolveReference(redirectURL)

	// Constraint: https -> https only (no downgrade)
	if origReq.URL.Scheme == "https" && redirectURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRedirectDowngrade, origReq.URL.Scheme, redirectURL.Scheme)
	}

	// Constraint: same host only
	if !sameHost(origReq.URL.Host, redirectURL.Host) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRedirectNotSameHost, origReq.URL.Host, redirectURL.Host)
	}

	if c.cfg.SSRFMode == "strict" {
		if err := c.checkSSRFHost(redirectURL.Host); err != nil {
			return nil, err
		}
	}

	newReq, err := http.NewRequestWithContext(origReq.Context(), origReq.Method, redirectURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedirectBlocked, err)
	}

	// Copy safe headers (not auth headers)
	copyRedirectHeaders(origReq, newReq)

	newResp, err := c.httpClient.Do(newReq)
	if err != nil {
		return nil, err
	}

	if isRedirect(newResp.StatusCode) {
		return c.followRedirect(newReq, newResp, depth+1)
	}
	return newResp, nil
}

// sameHost checks if two hosts are the same (case-insensitive, ignores default ports).
func sameHost(a, b string) bool {
	return strings.EqualFold(normalizeHost(a), normalizeHost(b))
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	return host
}

func copyRedirectHeaders(src, dst *http.Request) {
	if ua := src.Header.Get("User-Agent"); ua != "" {
		dst.Header.Set("User-Agent", ua)
	}
	if accept := src.Header.Get("Accept"); accept != "" {
		dst.Header.Set("Accept", accept)
	}
}

func isRedirect(code int) bool {
	return code == http.StatusMovedPermanently ||
		code == http.StatusFound ||
		code == http.StatusSeeOther ||
		code == http.StatusTemporaryRedirect ||
		code == http.StatusPermanentRedirect
}

// GetJSON performs a GET request and reads the response body with size limit.
func (c *Client) GetJSON(ctx context.Context, urlStr string) ([]byte, *http.Response, error) {
	resp, err := c.Get(ctx, urlStr)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, resp, err
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, resp, ErrResponseTooLarge
	}
	return body, resp, nil
}

// IsSSRFError returns true if the error is an SSRF blocking error.
func IsSSRFError(err error) bool {
	return errors.Is(err, ErrSSRFBlocked) || errors.Is(err, ErrHostUnresolvable)
}
