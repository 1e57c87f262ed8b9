package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchCollectsAbstractAndTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "what is faiss" {
			t.Errorf("query = %q", q.Get("q"))
		}
		if q.Get("format") != "json" {
			t.Errorf("format = %q, want json", q.Get("format"))
		}
		fmt.Fprint(w, `{
			"Heading": "FAISS",
			"AbstractText": "FAISS is a library for similarity search.",
			"AbstractURL": "https://example.org/faiss",
			"RelatedTopics": [
				{"Text": "Vector search - finding nearest neighbours", "FirstURL": "https://example.org/vs"},
				{"Topics": [
					{"Text": "ANN - approximate nearest neighbour", "FirstURL": "https://example.org/ann"}
				]}
			]
		}`)
	}))
	defer srv.Close()

	client := NewDuckDuckGoClient(srv.URL, 5*time.Second, 3)
	results, err := client.Search(context.Background(), "what is faiss")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Title != "FAISS" || results[0].URL != "https://example.org/faiss" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Title != "Vector search" {
		t.Errorf("topic title = %q, want clause before dash", results[1].Title)
	}
	if results[2].Snippet != "ANN - approximate nearest neighbour" {
		t.Errorf("nested topic not flattened, got %+v", results[2])
	}
}

func TestSearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"RelatedTopics": [
				{"Text": "one", "FirstURL": "u1"},
				{"Text": "two", "FirstURL": "u2"},
				{"Text": "three", "FirstURL": "u3"},
				{"Text": "four", "FirstURL": "u4"}
			]
		}`)
	}))
	defer srv.Close()

	client := NewDuckDuckGoClient(srv.URL, 5*time.Second, 2)
	results, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want capped at 2", len(results))
	}
}

func TestSearchEmptyAnswerIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Heading": "", "AbstractText": "", "RelatedTopics": []}`)
	}))
	defer srv.Close()

	client := NewDuckDuckGoClient(srv.URL, 5*time.Second, 3)
	results, err := client.Search(context.Background(), "obscure query")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want none", len(results))
	}
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	client := NewDuckDuckGoClient("http://unused", time.Second, 3)
	if _, err := client.Search(context.Background(), "  "); err == nil {
		t.Error("blank query should fail before any request")
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewDuckDuckGoClient(srv.URL, time.Second, 3)
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Error("5xx from the engine should surface as an error")
	}
}
