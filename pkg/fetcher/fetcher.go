// Package fetcher performs paced outbound HTTP requests for search pages,
// detail pages and media downloads.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Options configures a Fetcher.
type Options struct {
	// Delay is the minimum spacing between consecutive requests. Zero disables pacing.
	Delay time.Duration
	// Impersonate sends requests through a Chrome TLS fingerprint.
	Impersonate bool
	Timeout     time.Duration
	UserAgent   string
	Referer     string
	Retry       RetryConfig
	Logger      *slog.Logger
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Retry == (RetryConfig{}) {
		o.Retry = DefaultRetryConfig
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// transport sends one GET and hands back the status and body.
type transport interface {
	get(ctx context.Context, url string, header map[string]string) (int, io.ReadCloser, error)
}

type Fetcher struct {
	t       transport
	limiter *rate.Limiter
	opts    Options
}

func NewFetcher(opts Options) (*Fetcher, error) {
	opts.defaults()

	var t transport
	if opts.Impersonate {
		bc, err := NewBrowserClient(opts.Timeout)
		if err != nil {
			return nil, err
		}
		t = bc
	} else {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		t = &stdTransport{client: &http.Client{Timeout: opts.Timeout, Jar: jar}}
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Fetcher{
		t:       t,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
	}, nil
}

func (f *Fetcher) headers(accept string) map[string]string {
	h := map[string]string{
		"accept":          accept,
		"accept-language": "en-US,en;q=0.9",
		"user-agent":      f.opts.UserAgent,
	}
	if f.opts.Referer != "" {
		h["referer"] = f.opts.Referer
	}
	return h
}

// open waits for the limiter, sends the request with retries and returns the
// body of a 200 response.
func (f *Fetcher) open(ctx context.Context, url string, accept string) (io.ReadCloser, error) {
	return RetryDo(ctx, f.opts.Retry, func() (io.ReadCloser, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		f.opts.Logger.Debug("GET", "url", url)
		status, body, err := f.t.get(ctx, url, f.headers(accept))
		if err != nil {
			return nil, fmt.Errorf("failed to make HTTP request: %w", err)
		}
		if status != http.StatusOK {
			body.Close()
			return nil, &StatusError{StatusCode: status, URL: url}
		}
		return body, nil
	})
}

func (f *Fetcher) GetHtml(ctx context.Context, url string) (*goquery.Document, error) {
	bodyBytes, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := f.open(ctx, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}

// Download streams url into dest and returns the bytes written. A partially
// written file is removed on any error.
func (f *Fetcher) Download(ctx context.Context, url, dest string) (int64, error) {
	body, err := f.open(ctx, url, "video/*,*/*;q=0.8")
	if err != nil {
		return 0, err
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = errors.New("empty response body")
	}
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			f.opts.Logger.Warn("Could not remove partial download", "path", dest, "error", rmErr)
		}
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	f.opts.Logger.Debug("Downloaded", "url", url, "path", dest, "bytes", n)
	return n, nil
}

type stdTransport struct {
	client *http.Client
}

func (s *stdTransport) get(ctx context.Context, url string, header map[string]string) (int, io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, resp.Body, nil
}
