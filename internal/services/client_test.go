package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/passtheaux/internal/shared"
)

func testOptions(baseURL string) Options {
	return Options{BaseURL: baseURL, MaxRetries: 3, RetryBackoff: time.Millisecond, Timeout: 5 * time.Second}
}

func TestAPIClient(t *testing.T) {
	t.Run("Retries server errors", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, err := c.newRequest(context.Background(), http.MethodPost, "/thing", map[string]string{"a": "b"})
		if err != nil {
			t.Fatalf("newRequest: %v", err)
		}

		var out struct{ OK bool }
		if err := c.doJSON("test.thing", req, &out); err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if !out.OK {
			t.Error("expected decoded body")
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("Resends body on retry", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"a":"b"}` {
				t.Errorf("unexpected body %q", body)
			}
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodPost, "/thing", map[string]string{"a": "b"})
		if err := c.doJSON("test.thing", req, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Writes are not retried on server errors", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodPost, "/thing", map[string]string{"a": "b"})
		err := c.doWrite("test.thing", req, nil)

		var f *Failure
		if !errors.As(err, &f) || f.Kind != KindStatus || f.Status != http.StatusBadGateway {
			t.Fatalf("expected 502 status failure, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("Writes are not retried on transport errors", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer cannot hijack")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodPost, "/thing", map[string]string{"a": "b"})
		if err := c.doWrite("test.thing", req, nil); !IsKind(err, KindTransport) {
			t.Fatalf("expected transport failure, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("Writes retry when throttled", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodPost, "/thing", map[string]string{"a": "b"})
		if err := c.doWrite("test.thing", req, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("Gives up after max retries", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodGet, "/thing", nil)
		err := c.doJSON("test.thing", req, nil)
		if !IsKind(err, KindRateLimited) {
			t.Fatalf("expected rate limited failure, got %v", err)
		}
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Error("failure should unwrap to ErrRateLimited")
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("Does not retry client errors", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodGet, "/thing", nil)
		err := c.doJSON("test.thing", req, nil)

		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("expected *Failure, got %T", err)
		}
		if f.Kind != KindCredential || f.Status != http.StatusUnauthorized {
			t.Errorf("unexpected failure %+v", f)
		}
		if f.Err == nil || f.Err.Error() != "Invalid access token" {
			t.Errorf("expected error detail from body, got %v", f.Err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("Malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(context.Background(), http.MethodGet, "/thing", nil)
		var out map[string]any
		err := c.doJSON("test.thing", req, &out)
		if !IsKind(err, KindMalformed) || !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected malformed failure, got %v", err)
		}
	})

	t.Run("Canceled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newAPIClient("test", "", testOptions(srv.URL))
		req, _ := c.newRequest(ctx, http.MethodGet, "/thing", nil)
		err := c.doJSON("test.thing", req, nil)
		if !IsKind(err, KindTransport) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected transport failure wrapping context.Canceled, got %v", err)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if parseRetryAfter(resp) != 0 {
		t.Error("expected zero without header")
	}
	resp.Header.Set("Retry-After", "2")
	if parseRetryAfter(resp) != 2*time.Second {
		t.Errorf("expected 2s, got %v", parseRetryAfter(resp))
	}
	resp.Header.Set("Retry-After", "soon")
	if parseRetryAfter(resp) != 0 {
		t.Error("expected zero for garbage header")
	}
}

func TestFailure(t *testing.T) {
	t.Run("Error message", func(t *testing.T) {
		f := &Failure{Kind: KindStatus, Op: "spotify.search", Status: 500, Err: errors.New("boom")}
		if f.Error() != "spotify.search: status (status 500): boom" {
			t.Errorf("unexpected message %q", f.Error())
		}
	})

	t.Run("Unwraps cause and sentinel", func(t *testing.T) {
		f := &Failure{Kind: KindCredential, Op: "spotify.me", Err: shared.ErrTokenExpired}
		if !errors.Is(f, shared.ErrTokenExpired) {
			t.Error("expected cause in chain")
		}
		if !errors.Is(f, shared.ErrNotAuthenticated) {
			t.Error("expected sentinel in chain")
		}
	})

	t.Run("Status classification", func(t *testing.T) {
		tt := []struct {
			status int
			want   Kind
		}{
			{401, KindCredential},
			{403, KindCredential},
			{404, KindNotFound},
			{429, KindRateLimited},
			{400, KindStatus},
			{502, KindStatus},
		}
		for _, tc := range tt {
			if got := statusFailure("op", tc.status, "").Kind; got != tc.want {
				t.Errorf("status %d: got %s, want %s", tc.status, got, tc.want)
			}
		}
	})

	t.Run("KindOf", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), &Failure{Kind: KindNotFound, Op: "x"})
		if KindOf(wrapped) != KindNotFound {
			t.Errorf("expected not_found, got %s", KindOf(wrapped))
		}
		if KindOf(errors.New("plain")) != 0 {
			t.Error("expected zero kind for plain error")
		}
	})
}
