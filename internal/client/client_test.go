package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFrame(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func collectEvents(t *testing.T, serverFn http.HandlerFunc, question string) ([]Event, error) {
	t.Helper()
	server := httptest.NewServer(serverFn)
	defer server.Close()

	var events []Event
	err := New(server.URL).Chat(context.Background(), question, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestChatParsesStream(t *testing.T) {
	events, err := collectEvents(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question != "what is FAISS?" {
			t.Errorf("bad request body, question = %q, err = %v", req.Question, err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		writeFrame(w, "token", `{"type":"token","content":"FAISS is"}`)
		writeFrame(w, "token", `{"type":"token","content":" a library"}`)
		writeFrame(w, "sources", `{"type":"sources","content":["manual.pdf","Wikipedia"]}`)
		writeFrame(w, "done", `{"type":"done"}`)
	}, "what is FAISS?")

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].Type != EventToken || events[0].Content != "FAISS is" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Content != " a library" {
		t.Errorf("event 1 = %+v", events[1])
	}
	if events[2].Type != EventSources || len(events[2].Sources) != 2 || events[2].Sources[0] != "manual.pdf" {
		t.Errorf("event 2 = %+v", events[2])
	}
	if events[3].Type != EventDone {
		t.Errorf("event 3 = %+v", events[3])
	}
}

func TestChatReassemblesSplitFrames(t *testing.T) {
	// The server dribbles the stream out in awkward pieces; frames must
	// still come out whole.
	stream := "event: token\ndata: {\"type\":\"token\",\"content\":\"Hello\"}\n\n" +
		"event: sources\ndata: {\"type\":\"sources\",\"content\":[\"a.pdf\"]}\n\n" +
		"event: done\ndata: {\"type\":\"done\"}\n\n"

	events, err := collectEvents(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < len(stream); i += 7 {
			end := i + 7
			if end > len(stream) {
				end = len(stream)
			}
			io.WriteString(w, stream[i:end])
			flusher.Flush()
		}
	}, "split")

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Content != "Hello" {
		t.Errorf("token = %+v", events[0])
	}
	if len(events[1].Sources) != 1 || events[1].Sources[0] != "a.pdf" {
		t.Errorf("sources = %+v", events[1])
	}
}

func TestChatErrorEvent(t *testing.T) {
	events, err := collectEvents(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "token", `{"type":"token","content":"partial"}`)
		writeFrame(w, "error", `{"type":"error","content":"generation failed: model gone"}`)
	}, "boom")

	if err == nil {
		t.Fatal("terminal error event should surface as an error")
	}
	if !strings.Contains(err.Error(), "model gone") {
		t.Errorf("err = %v", err)
	}
	if len(events) != 2 || events[1].Type != EventError {
		t.Fatalf("events = %+v", events)
	}
}

func TestChatNonOKStatus(t *testing.T) {
	_, err := collectEvents(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Question is required", http.StatusBadRequest)
	}, "")

	if err == nil || !strings.Contains(err.Error(), "Question is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestChatOnEventFailureStopsReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "token", `{"type":"token","content":"one"}`)
		writeFrame(w, "token", `{"type":"token","content":"two"}`)
		writeFrame(w, "done", `{"type":"done"}`)
	}))
	defer server.Close()

	wantErr := errors.New("render failed")
	calls := 0
	err := New(server.URL).Chat(context.Background(), "q", func(ev Event) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("onEvent called %d times, want 1", calls)
	}
}

func TestChatStreamEndsWithoutDone(t *testing.T) {
	_, err := collectEvents(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrame(w, "token", `{"type":"token","content":"cut off"}`)
	}, "q")

	if err == nil {
		t.Fatal("truncated stream should surface as an error")
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 payload"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "manual.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-1.4 payload" {
			t.Errorf("content = %q", content)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":        "Successfully processed and added manual.pdf",
			"document_count": 3,
		})
	}))
	defer server.Close()

	resp, err := New(server.URL).Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if resp.Message != "Successfully processed and added manual.pdf" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.DocumentCount != 3 {
		t.Errorf("document_count = %d", resp.DocumentCount)
	}
}

func TestUploadServerRejection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Only PDF files are supported", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL).Upload(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "Only PDF files are supported") {
		t.Fatalf("err = %v", err)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "LLM is running"})
	}))
	defer server.Close()

	if err := New(server.URL).Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestHealthDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if err := New(server.URL).Health(context.Background()); err == nil {
		t.Fatal("unhealthy server should surface as an error")
	}
}

func TestDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"documents":[{"id":1,"name":"manual.pdf","source":"upload","chunk_count":3}],"chunk_count":3}`)
	}))
	defer server.Close()

	resp, err := New(server.URL).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Name != "manual.pdf" {
		t.Errorf("documents = %+v", resp.Documents)
	}
	if resp.ChunkCount != 3 {
		t.Errorf("chunk_count = %d", resp.ChunkCount)
	}
}
