// Package apiclient talks to the business REST API on behalf of a console session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// RequestIDHeader is forwarded upstream so API logs can be correlated.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 64 << 10

// Observer receives one notification per upstream call.
type Observer interface {
	ObserveAPICall(method, resource string, status int, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Cookies   []*http.Cookie
	Transport http.RoundTripper
	Observer  Observer
	RequestID string
}

// Client wraps credentialed JSON calls against {apiBase}/{resource}[/{id}][/{action}].
type Client struct {
	base       *url.URL
	httpClient *http.Client
	jar        *cookiejar.Jar
	observer   Observer
	requestID  string
}

// New constructs a client whose cookie jar is seeded with the session cookies.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", opts.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
	}
	if len(opts.Cookies) > 0 {
		jar.SetCookies(base, opts.Cookies)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
		jar:       jar,
		observer:  opts.Observer,
		requestID: opts.RequestID,
	}, nil
}

// Cookies returns the upstream session cookies currently held by the jar.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

// Path joins resource, id and action segments, escaping each one.
func Path(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, url.PathEscape(s))
		}
	}
	return strings.Join(parts, "/")
}

// checkPath refuses dot segments, which JoinPath would resolve against the
// base URL.
func checkPath(path string) error {
	for _, seg := range strings.Split(path, "/") {
		if unescaped, err := url.PathUnescape(seg); err != nil || unescaped == "." || unescaped == ".." {
			return fmt.Errorf("apiclient: %w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// Get performs a GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// GetJSON performs a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.decode(http.MethodGet, path, body, out)
}

// PostJSON sends body as JSON and decodes the response into out when non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

// PutJSON sends body as JSON and decodes the response into out when non-nil.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, path, query, nil)
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
	}
	raw, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(method, path, raw, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Message: MsgTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != "" {
		req.Header.Set(RequestIDHeader, c.requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Message: MsgTransport, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, path, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := statusMessage(resp.StatusCode, body)
		return nil, &Error{
			Kind:    KindStatus,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: msg,
			Err:     errors.New(msg),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: path, Message: MsgTransport, Err: err}
	}
	return body, nil
}

func (c *Client) decode(method, path string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, Message: MsgDecode, Err: err}
	}
	return nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	resource := path
	if i := strings.IndexByte(resource, '/'); i >= 0 {
		resource = resource[:i]
	}
	c.observer.ObserveAPICall(method, resource, status, time.Since(start))
}
