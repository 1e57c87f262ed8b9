package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docuchat/internal/client"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type chatState int

const (
	chatIdle chatState = iota
	chatThinking
	chatStreaming
	chatUploading
)

const welcomeText = `Welcome to docuchat! Ask a question about your documents.

Commands: /help, /upload <file.pdf>, /docs, /clear, /exit`

const helpText = `Commands:
  /upload <file.pdf>  - upload and ingest a PDF
  /docs               - list ingested documents
  /clear              - clear the conversation
  /exit               - quit
  /help               - show this help`

// streamItem is one entry in the event pipeline between the request
// goroutine and the update loop. The terminal item has done set and
// carries the stream's outcome.
type streamItem struct {
	event client.Event
	err   error
	done  bool
}

// streamEventMsg carries one server-sent event from the chat stream.
type streamEventMsg client.Event

// streamDoneMsg is sent once the chat stream has ended.
type streamDoneMsg struct {
	err error
}

// uploadDoneMsg is sent when an /upload command finishes.
type uploadDoneMsg struct {
	message string
	err     error
}

// docsMsg is sent when a /docs listing finishes.
type docsMsg struct {
	resp *client.DocumentsResponse
	err  error
}

// healthMsg reports the startup probe against the server.
type healthMsg struct {
	err error
}

type chatModel struct {
	client      *client.Client
	session     *client.Session
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	items       chan streamItem
	cancel      context.CancelFunc
	streamingID string
	notice      string
	errText     string
	serverErr   string
	state       chatState
	width       int
	height      int
	initialized bool
}

func newChatModel(c *client.Client) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents..."
	ti.CharLimit = 2000
	ti.Focus()

	return chatModel{
		client:  c,
		session: client.NewSession(),
		spinner: sp,
		input:   ti,
		state:   chatIdle,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, checkServer(m.client))
}

func (m *chatModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line) + input (1 line) + gap (1 line).
	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)

	m.input.Width = width - 4

	// Create a glamour renderer matched to the current width.
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func checkServer(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return healthMsg{err: c.Health(ctx)}
	}
}

// runStream performs the chat request and forwards every event onto the
// channel, followed by a terminal item. Routing the outcome through the
// same channel keeps it ordered after the last token.
func runStream(ctx context.Context, c *client.Client, question string, items chan streamItem) tea.Cmd {
	return func() tea.Msg {
		err := c.Chat(ctx, question, func(ev client.Event) error {
			select {
			case items <- streamItem{event: ev}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		items <- streamItem{err: err, done: true}
		close(items)
		return nil
	}
}

// nextItem waits for one more entry from the running stream.
func nextItem(items chan streamItem) tea.Cmd {
	return func() tea.Msg {
		item, ok := <-items
		if !ok {
			return nil
		}
		if item.done {
			return streamDoneMsg{err: item.err}
		}
		return streamEventMsg(item.event)
	}
}

func uploadFile(c *client.Client, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		resp, err := c.Upload(ctx, path)
		if err != nil {
			return uploadDoneMsg{err: err}
		}
		return uploadDoneMsg{message: resp.Message}
	}
}

func fetchDocuments(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := c.Documents(ctx)
		return docsMsg{resp: resp, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case healthMsg:
		if msg.err != nil {
			m.serverErr = msg.err.Error()
		}
		return m, nil

	case streamEventMsg:
		switch msg.Type {
		case client.EventToken:
			m.state = chatStreaming
			m.session.AppendToken(m.streamingID, msg.Content)
		case client.EventSources:
			m.session.SetSources(m.streamingID, msg.Sources)
		}
		// Error events resolve through the terminal streamDoneMsg.
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nextItem(m.items)

	case streamDoneMsg:
		m.state = chatIdle
		m.cancel = nil
		if msg.err != nil {
			m.session.Fail(m.streamingID)
			m.errText = msg.err.Error()
		} else {
			m.serverErr = ""
		}
		m.streamingID = ""
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case uploadDoneMsg:
		m.state = chatIdle
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.notice = msg.message
			m.serverErr = ""
		}
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case docsMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.notice = formatDocs(msg.resp)
		}
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.state == chatThinking || m.state == chatUploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			// Re-render the viewport so the spinner frame updates.
			m.viewport.SetContent(m.renderMessages())
			m.viewport.GotoBottom()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if m.state != chatIdle {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			return m.handleSubmit()
		}
	}

	// Update text input.
	if m.state == chatIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update viewport (scrolling).
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.errText = ""

	switch {
	case line == "/exit" || line == "/quit":
		return m, tea.Quit

	case line == "/clear":
		m.session = client.NewSession()
		m.viewport.SetContent(dimStyle.Render("Conversation cleared."))
		return m, nil

	case line == "/help":
		m.notice = helpText
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, nil

	case line == "/docs":
		return m, fetchDocuments(m.client)

	case strings.HasPrefix(line, "/upload"):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
		if path == "" {
			m.errText = "usage: /upload <file.pdf>"
			m.viewport.SetContent(m.renderMessages())
			m.viewport.GotoBottom()
			return m, nil
		}
		m.state = chatUploading
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, uploadFile(m.client, path))
	}

	m.session.AddUserMessage(line)
	placeholder := m.session.AddPlaceholder()
	m.streamingID = placeholder.ID
	m.state = chatThinking

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.items = make(chan streamItem, 16)

	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		runStream(ctx, m.client, line, m.items),
		nextItem(m.items),
	)
}

func (m chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return assistantMsgStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return assistantMsgStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) renderMessages() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 && m.notice == "" && m.errText == "" && m.state == chatIdle {
		return dimStyle.Render(welcomeText)
	}

	var sb strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case client.RoleUser:
			sb.WriteString(userMsgStyle.Render("You: ") + msg.Content + "\n\n")
		case client.RoleAssistant:
			if msg.Content == "" {
				// Placeholder still waiting for its first token.
				continue
			}
			sb.WriteString(m.renderMarkdown(msg.Content) + "\n")
			if len(msg.Sources) > 0 {
				sb.WriteString(dimStyle.Render("Sources: "+strings.Join(msg.Sources, ", ")) + "\n")
			}
			sb.WriteString("\n")
		}
	}

	if m.errText != "" {
		sb.WriteString(errorStyle.Render("Error: "+m.errText) + "\n\n")
	}
	if m.notice != "" {
		sb.WriteString(dimStyle.Render(m.notice) + "\n\n")
	}

	switch m.state {
	case chatThinking:
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Thinking...") + "\n")
	case chatUploading:
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Uploading...") + "\n")
	}

	return sb.String()
}

func formatDocs(resp *client.DocumentsResponse) string {
	if len(resp.Documents) == 0 {
		return "No documents ingested yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d documents, %d chunks:\n", len(resp.Documents), resp.ChunkCount)
	for _, doc := range resp.Documents {
		fmt.Fprintf(&sb, "  %s (%s, %d chunks)\n", doc.Name, doc.Source, doc.ChunkCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m chatModel) View() string {
	if !m.initialized {
		return ""
	}

	statusText := "idle"
	switch m.state {
	case chatThinking:
		statusText = "thinking..."
	case chatStreaming:
		statusText = "streaming..."
	case chatUploading:
		statusText = "uploading..."
	}
	if m.serverErr != "" {
		statusText = "server unreachable"
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" docuchat • %s", statusText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
