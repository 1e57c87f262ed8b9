package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteParsesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req struct {
			Model  string        `json:"model"`
			Stream bool          `json:"stream"`
			Msgs   []ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Complete must request stream=false")
		}
		if req.Model != "gemma2:2b" {
			t.Errorf("model = %q", req.Model)
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hello there"},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient()
	got, err := client.Complete(context.Background(), ChatConfig{BaseURL: srv.URL, Model: "gemma2:2b"},
		[]ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("Complete = %q", got)
	}
}

func TestCompleteSurfacesOllamaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	client := NewOllamaClient()
	_, err := client.Complete(context.Background(), ChatConfig{BaseURL: srv.URL, Model: "nope"}, nil)
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("want model-not-found error, got %v", err)
	}
}

func TestStreamCompleteCollectsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"message":{"role":"assistant","content":"lo "},"done":false}`,
			`{"message":{"role":"assistant","content":"world"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	defer srv.Close()

	client := NewOllamaClient()
	var chunks []string
	full, err := client.StreamComplete(context.Background(),
		ChatConfig{BaseURL: srv.URL, Model: "gemma2:2b"},
		[]ChatMessage{{Role: "user", Content: "hi"}},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamComplete error: %v", err)
	}
	if full != "Hello world" {
		t.Errorf("full = %q, want %q", full, "Hello world")
	}
	if len(chunks) != 3 {
		t.Errorf("chunk count = %d, want 3", len(chunks))
	}
}

func TestStreamCompleteStopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			fmt.Fprintln(w, `{"message":{"content":"x"},"done":false}`)
		}
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient()
	calls := 0
	_, err := client.StreamComplete(context.Background(),
		ChatConfig{BaseURL: srv.URL, Model: "m"}, nil,
		func(chunk string) error {
			calls++
			if calls == 3 {
				return fmt.Errorf("client went away")
			}
			return nil
		})
	if err == nil || !strings.Contains(err.Error(), "client went away") {
		t.Fatalf("want callback error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("callback called %d times, want 3", calls)
	}
}

func TestStreamCompleteMidStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"par"},"done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	client := NewOllamaClient()
	_, err := client.StreamComplete(context.Background(),
		ChatConfig{BaseURL: srv.URL, Model: "m"}, nil,
		func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("want mid-stream error surfaced, got %v", err)
	}
}

func TestEmbedParsesVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q, want /api/embeddings", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "some text" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer srv.Close()

	client := NewOllamaClient()
	vec, err := client.Embed(context.Background(),
		EmbeddingConfig{BaseURL: srv.URL, Model: "nomic-embed-text"}, "some text")
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client := NewOllamaClient()
	if _, err := client.Embed(context.Background(), EmbeddingConfig{}, "   "); err == nil {
		t.Error("Embed of blank text should fail before any request")
	}
}

func TestEmbedBatchKeepsOrderAndFailsWhole(t *testing.T) {
	var served int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		served++
		if req.Prompt == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"embedding":[%d]}`, len(req.Prompt))
	}))
	defer srv.Close()

	client := NewOllamaClient()
	cfg := EmbeddingConfig{BaseURL: srv.URL, Model: "m"}

	vecs, err := client.EmbedBatch(context.Background(), cfg, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch error: %v", err)
	}
	if len(vecs) != 3 || vecs[0][0] != 1 || vecs[1][0] != 2 || vecs[2][0] != 3 {
		t.Errorf("vecs = %v, want lengths in input order", vecs)
	}

	if _, err := client.EmbedBatch(context.Background(), cfg, []string{"a", "bad", "c"}); err == nil {
		t.Error("EmbedBatch should fail when any single embed fails")
	}
}
