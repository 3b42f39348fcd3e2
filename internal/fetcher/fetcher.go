// Package fetcher retrieves image bytes from third-party origins with
// bounded timeouts and a fixed browser identity.
package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/vladimirnetworks/webcite/internal/useragent"
	"github.com/vladimirnetworks/webcite/pkg/types"
)

const maxRedirects = 10

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent      string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Limiter        *HostLimiter
}

// Client issues bounded requests against untrusted origins. Certificate
// and hostname verification is disabled on purpose: origins are
// arbitrary third-party hosts and the original system accepted their
// bytes regardless of TLS hygiene.
type Client struct {
	transport    *http.Transport
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	limiter      *HostLimiter
}

// New constructs a fetch client using the provided options.
func New(opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 20 * 1024 * 1024
	}
	if opts.UserAgent == "" {
		opts.UserAgent = useragent.Default()
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // untrusted third-party origins, accepted risk
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		transport:    transport,
		userAgent:    opts.UserAgent,
		timeout:      opts.RequestTimeout,
		maxBodyBytes: opts.MaxBodyBytes,
		limiter:      opts.Limiter,
	}
}

// Request is a fetch handle bound to a single encoded URL. ContentLength
// reflects the most recent request issued on the handle.
type Request struct {
	client        *Client
	url           string
	contentLength int64
}

// NewRequest binds a handle to a target URL, percent-encoding any
// non-ASCII bytes so the request line stays wire-safe.
func (c *Client) NewRequest(rawURL string) *Request {
	return &Request{
		client:        c,
		url:           EncodeNonASCII(rawURL),
		contentLength: -1,
	}
}

// URL returns the encoded target URL.
func (r *Request) URL() string { return r.url }

// ContentLength returns the byte length reported by the origin on the
// most recent request, or -1 when unknown.
func (r *Request) ContentLength() int64 { return r.contentLength }

// ProbeHeaders issues a header-only request and returns the header
// block of every redirect hop traversed, most recent last. Each block
// is the status line followed by one line per header value.
func (r *Request) ProbeHeaders(ctx context.Context) ([][]string, error) {
	hops := make([][]string, 0, 2)
	httpClient := &http.Client{
		Transport: r.client.transport,
		Timeout:   r.client.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.Response != nil {
				hops = append(hops, headerBlock(req.Response))
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	resp, err := r.do(ctx, httpClient, http.MethodHead)
	if err != nil {
		return nil, &types.FetchError{URL: r.url, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	r.contentLength = resp.ContentLength
	hops = append(hops, headerBlock(resp))
	return hops, nil
}

// FetchBody issues a full GET and returns the decoded response body.
func (r *Request) FetchBody(ctx context.Context) ([]byte, error) {
	httpClient := &http.Client{
		Transport: r.client.transport,
		Timeout:   r.client.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	resp, err := r.do(ctx, httpClient, http.MethodGet)
	if err != nil {
		return nil, &types.FetchError{URL: r.url, Err: err}
	}
	r.contentLength = resp.ContentLength

	body, err := r.client.readBody(resp)
	if err != nil {
		return nil, &types.FetchError{URL: r.url, Err: err}
	}
	return body, nil
}

func (r *Request) do(ctx context.Context, httpClient *http.Client, method string) (*http.Response, error) {
	if r.client.limiter != nil {
		if host := hostOf(r.url); host != "" {
			if err := r.client.limiter.Wait(ctx, host); err != nil {
				return nil, err
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.client.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,*/*;q=0.8")
	if method == http.MethodGet {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	return httpClient.Do(req)
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, c.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

// headerBlock flattens one response into raw header lines: the status
// line first, then Key: value pairs in sorted canonical key order.
func headerBlock(resp *http.Response) []string {
	lines := make([]string, 0, len(resp.Header)+1)
	lines = append(lines, resp.Proto+" "+resp.Status)

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return lines
}

// EncodeNonASCII percent-encodes every byte outside the ASCII range,
// byte by byte, leaving ASCII (including reserved characters) intact.
func EncodeNonASCII(rawURL string) string {
	var b strings.Builder
	for i := 0; i < len(rawURL); i++ {
		ch := rawURL[i]
		if ch < 0x80 {
			b.WriteByte(ch)
			continue
		}
		b.WriteString(fmt.Sprintf("%%%02X", ch))
	}
	return b.String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
