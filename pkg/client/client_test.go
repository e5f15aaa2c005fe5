package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/retry"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL,
		Retry: retry.Policy{
			Attempts:   3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   time.Millisecond,
			Multiplier: 1,
		},
	})
	return c, ts
}

func TestGet_Success(t *testing.T) {
	var gotPath, gotAgent string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("version:1\nd:Terrain\n"))
	}))
	defer ts.Close()

	body, err := c.Get(context.Background(), "/.dirindex")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "version:1\nd:Terrain\n" {
		t.Errorf("body = %q", body)
	}
	if gotPath != "/.dirindex" {
		t.Errorf("request path = %q, want /.dirindex", gotPath)
	}
	if gotAgent == "" {
		t.Error("request had no User-Agent")
	}
	if !c.IsOnline() {
		t.Error("IsOnline = false after success")
	}
}

func TestGet_NotFound(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	_, err := c.Get(context.Background(), "/Terrain/.dirindex")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
	// A 404 is a definitive answer, not an outage.
	if !c.IsOnline() {
		t.Error("IsOnline = false after a 404")
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer ts.Close()

	body, err := c.Get(context.Background(), "/tile")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("body = %q, want %q", body, "payload")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGet_PersistentServerError(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := c.Get(context.Background(), "/tile")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get = %v, want ErrUnavailable", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want the full retry budget of 3", got)
	}
}

func TestGet_TransportFailure(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	_, err := c.Get(context.Background(), "/tile")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get = %v, want ErrUnavailable", err)
	}
	if c.IsOnline() {
		t.Error("IsOnline = true after a refused connection")
	}
}

func TestGet_OnlineRecovers(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c.setOnline(false)
	if _, err := c.Get(context.Background(), "/tile"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !c.IsOnline() {
		t.Error("IsOnline = false after a successful request")
	}
}

func TestGet_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer ts.Close()

	c := New(Config{
		BaseURL: ts.URL,
		Timeout: 50 * time.Millisecond,
		Retry:   retry.Policy{Attempts: 1, BaseDelay: time.Millisecond, Multiplier: 1},
	})
	_, err := c.Get(context.Background(), "/slow")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get = %v, want ErrUnavailable on timeout", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{BaseURL: "http://example.org/scenery/"})
	if c.BaseURL() != "http://example.org/scenery" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL())
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}
	if !c.IsOnline() {
		t.Error("new client starts offline")
	}

	c = New(Config{})
	if c.BaseURL() != DefaultServerURL {
		t.Errorf("BaseURL = %q, want DefaultServerURL", c.BaseURL())
	}
}
