package fetcher

import (
	"context"
	"fmt"
	"io"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserClient wraps tls-client so requests carry a Chrome 131 TLS
// fingerprint. Stock sites commonly reject the Go default handshake.
type BrowserClient struct {
	client tls_client.HttpClient
}

func NewBrowserClient(timeout time.Duration) (*BrowserClient, error) {
	secs := int(timeout / time.Second)
	if secs <= 0 {
		secs = 30
	}
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(secs),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}
	client, err := tls_client.NewHttpClient(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("tls-client init: %w", err)
	}
	return &BrowserClient{client: client}, nil
}

func (bc *BrowserClient) get(ctx context.Context, url string, header map[string]string) (int, io.ReadCloser, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	// Chrome-like header order matters for fingerprinting
	req.Header[fhttp.HeaderOrderKey] = []string{
		"accept",
		"accept-language",
		"referer",
		"cookie",
		"user-agent",
	}

	resp, err := bc.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("tls request: %w", err)
	}
	return resp.StatusCode, resp.Body, nil
}
