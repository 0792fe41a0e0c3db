package fbplus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/corpix/uarand"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// Doer performs HTTP requests. *http.Client and *LimitedHTTPClient both
// satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOptions configures a LimitedHTTPClient.
type HTTPOptions struct {
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate. Zero or less disables
	// throttling.
	RequestsPerSecond float64

	// Burst is the number of requests allowed before throttling kicks in.
	Burst int

	// UserAgent is sent with every request. A random browser agent is picked
	// when empty.
	UserAgent string
}

// LimitedHTTPClient performs throttled requests to the forum. The zero value
// is not valid for use.
type LimitedHTTPClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewLimitedHTTPClient returns a rate limited client with a cookie jar configured.
func NewLimitedHTTPClient(opts HTTPOptions) (*LimitedHTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create cookie jar: %w", err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = uarand.GetRandom()
	}

	return &LimitedHTTPClient{
		client: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
		},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: userAgent,
	}, nil
}

// Do waits until the client is within rate limits and then performs the request.
func (c *LimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	r := c.limiter.Reserve()
	if !r.OK() {
		return nil, errors.New("invalid limiter configuration")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	select {
	case <-req.Context().Done():
		r.Cancel()
		return nil, req.Context().Err()
	case <-time.After(r.Delay()):
		return c.client.Do(req)
	}
}

// LookupEncoding resolves a WHATWG encoding label such as "iso-8859-1" or
// "windows-1252".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// fetchText GETs url and re-encodes the body from enc to UTF-8. It does not
// retry.
func fetchText(ctx context.Context, doer Doer, enc encoding.Encoding, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	res, err := doer.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return "", &FetchError{URL: url, StatusCode: res.StatusCode}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &FetchError{URL: url, StatusCode: res.StatusCode, Err: err}
	}

	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &DecodeError{URL: url, Err: err}
	}
	return string(text), nil
}
