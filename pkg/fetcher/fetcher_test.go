package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var fastRetry = RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = fastRetry
	}
	f, err := NewFetcher(opts)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func TestGetHtml(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(`<html><head><title>Ocean clips</title></head><body></body></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Referer: "https://stock.example.com/"})
	doc, err := f.GetHtml(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if title := doc.Find("title").Text(); title != "Ocean clips" {
		t.Errorf("title = %q", title)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotReferer != "https://stock.example.com/" {
		t.Errorf("referer = %q", gotReferer)
	}
}

func TestGetHtmlBytesRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(t, Options{}).GetHtmlBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Errorf("body = %q after %d calls", body, calls.Load())
	}
}

func TestGetHtmlBytesDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, Options{}).GetHtmlBytes(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRequestsArePaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Delay: 40 * time.Millisecond})
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := f.GetHtmlBytes(context.Background(), srv.URL); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Errorf("3 requests took %v, want at least 2 delays", elapsed)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake-mp4-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "clip_1.mp4")
	n, err := newTestFetcher(t, Options{}).Download(context.Background(), srv.URL+"/clip.mp4", dest)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("fake-mp4-bytes")) || string(data) != "fake-mp4-bytes" {
		t.Errorf("wrote %d bytes: %q", n, data)
	}
}

func TestDownloadRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("truncated"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "clip_2.mp4")
	if _, err := newTestFetcher(t, Options{}).Download(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for truncated body")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("partial file still present: %v", err)
	}
}

func TestDownloadEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "clip_3.mp4")
	if _, err := newTestFetcher(t, Options{}).Download(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for empty body")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("empty file still present: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher(t, Options{}).GetHtmlBytes(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewFetcherImpersonate(t *testing.T) {
	f, err := NewFetcher(Options{Impersonate: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.t.(*BrowserClient); !ok {
		t.Errorf("transport = %T, want *BrowserClient", f.t)
	}
}
