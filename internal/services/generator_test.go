package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/passtheaux/internal/shared"
)

func TestCohereService(t *testing.T) {
	t.Run("Requires api key", func(t *testing.T) {
		if _, err := NewCohereService("", "", Options{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Generate", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/chat" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer secret" {
				t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
			}

			var body cohereChatRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Model != cohereDefaultModel || body.Preamble != "be terse" || body.Message != "hello" {
				t.Errorf("unexpected payload %+v", body)
			}
			w.Write([]byte(`{"text":"Song B ArtistB*Song C ArtistC"}`))
		}))
		defer srv.Close()

		svc, err := NewCohereService("secret", "", testOptions(srv.URL))
		if err != nil {
			t.Fatalf("NewCohereService: %v", err)
		}
		got, err := svc.Generate(context.Background(), "be terse", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Song B ArtistB*Song C ArtistC" {
			t.Errorf("unexpected text %q", got)
		}
	})

	t.Run("Missing text is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"generation_id":"x"}`))
		}))
		defer srv.Close()

		svc, _ := NewCohereService("secret", "", testOptions(srv.URL))
		_, err := svc.Generate(context.Background(), "", "hello")
		if !IsKind(err, KindMalformed) {
			t.Errorf("expected malformed failure, got %v", err)
		}
	})

	t.Run("Bad key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid api token"}`))
		}))
		defer srv.Close()

		svc, _ := NewCohereService("secret", "", testOptions(srv.URL))
		_, err := svc.Generate(context.Background(), "", "hello")
		if !IsKind(err, KindCredential) {
			t.Errorf("expected credential failure, got %v", err)
		}
	})
}

func TestOllamaService(t *testing.T) {
	t.Run("Generate", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/chat" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body ollamaChatRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Stream || len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hi" {
				t.Errorf("unexpected payload %+v", body)
			}
			w.Write([]byte(`{"message":{"role":"assistant","content":"A*B"}}`))
		}))
		defer srv.Close()

		svc := NewOllamaService("", testOptions(srv.URL))
		got, err := svc.Generate(context.Background(), "sys", "hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "A*B" {
			t.Errorf("unexpected content %q", got)
		}
	})

	t.Run("In-body error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"model not found"}`))
		}))
		defer srv.Close()

		_, err := NewOllamaService("x", testOptions(srv.URL)).Generate(context.Background(), "", "hi")
		if !IsKind(err, KindMalformed) {
			t.Errorf("expected malformed failure, got %v", err)
		}
	})
}

func TestNewTextGenerator(t *testing.T) {
	tt := []struct {
		name     string
		cfg      shared.GeneratorConfig
		wantName string
		wantErr  bool
	}{
		{name: "cohere", cfg: shared.GeneratorConfig{Provider: "cohere", APIKey: "k"}, wantName: "cohere"},
		{name: "ollama", cfg: shared.GeneratorConfig{Provider: "Ollama", Model: cohereDefaultModel, BaseURL: cohereBaseURL}, wantName: "ollama"},
		{name: "cohere without key", cfg: shared.GeneratorConfig{Provider: "cohere"}, wantErr: true},
		{name: "unknown", cfg: shared.GeneratorConfig{Provider: "gpt"}, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			gen, err := NewTextGenerator(tc.cfg, Options{})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gen.Name() != tc.wantName {
				t.Errorf("expected %s, got %s", tc.wantName, gen.Name())
			}
		})
	}

	t.Run("ollama drops cohere defaults", func(t *testing.T) {
		gen, _ := NewTextGenerator(shared.GeneratorConfig{Provider: "ollama", Model: cohereDefaultModel, BaseURL: cohereBaseURL}, Options{})
		o := gen.(*OllamaService)
		if o.model != ollamaDefaultModel || o.client.baseURL != ollamaBaseURL {
			t.Errorf("unexpected ollama config: model=%s base=%s", o.model, o.client.baseURL)
		}
	})
}
