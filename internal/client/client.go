package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"docuchat/internal/model"
)

// Event is one decoded frame of the chat stream.
type Event struct {
	Type    string
	Content string
	Sources []string
}

const (
	EventToken   = "token"
	EventSources = "sources"
	EventDone    = "done"
	EventError   = "error"
)

// Client talks to a running docuchat server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the given base URL. The HTTP client carries
// no timeout because chat streams stay open for the whole generation;
// cancel through the context instead.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type UploadResponse struct {
	Message       string `json:"message"`
	DocumentCount int    `json:"document_count"`
}

type DocumentsResponse struct {
	Documents  []model.Document `json:"documents"`
	ChunkCount int64            `json:"chunk_count"`
}

// Health reports whether the server answers its liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build health request failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// Upload sends the PDF at path to the server.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build upload form failed: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s failed: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish upload form failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Upload errors arrive as plain text.
		return nil, fmt.Errorf("upload failed: %s", strings.TrimSpace(string(raw)))
	}

	var parsed UploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse upload response failed: %w", err)
	}
	return &parsed, nil
}

// Documents lists what the server has ingested.
func (c *Client) Documents(ctx context.Context) (*DocumentsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("build documents request failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("documents request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read documents response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("documents status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed DocumentsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse documents response failed: %w", err)
	}
	return &parsed, nil
}

// Chat asks a question and delivers each stream event to onEvent in
// arrival order. It returns after the done event, after a terminal
// error event (as an error), or when onEvent fails.
func (c *Client) Chat(ctx context.Context, question string, onEvent func(Event) error) error {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return fmt.Errorf("marshal chat request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chat request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	scanner.Split(scanFrames)

	for scanner.Scan() {
		event, ok := parseFrame(scanner.Bytes())
		if !ok {
			continue
		}
		if err := onEvent(event); err != nil {
			return err
		}
		switch event.Type {
		case EventDone:
			return nil
		case EventError:
			return fmt.Errorf("chat stream error: %s", event.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read chat stream failed: %w", err)
	}
	return fmt.Errorf("chat stream ended without done event")
}

// scanFrames splits the stream on blank lines, the frame delimiter.
// Frames arrive whole regardless of how the reads were chopped up.
func scanFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// parseFrame decodes one "event: name" / "data: json" frame.
func parseFrame(raw []byte) (Event, bool) {
	var name, data string
	for _, line := range strings.Split(string(raw), "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if name == "" {
		return Event{}, false
	}

	event := Event{Type: name}
	if data != "" {
		var frame struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err == nil && len(frame.Content) > 0 {
			if name == EventSources {
				_ = json.Unmarshal(frame.Content, &event.Sources)
			} else {
				_ = json.Unmarshal(frame.Content, &event.Content)
			}
		}
	}
	return event, true
}
