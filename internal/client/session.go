package client

import (
	"fmt"
	"sort"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fixed-width fractional seconds keep the timestamps comparable as
// plain strings.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const apologyText = "Sorry, something went wrong while answering. Please try again."

// Message is one chat bubble.
type Message struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at"`
	Sources   []string `json:"sources,omitempty"`
}

// Session holds the append-only message list for one chat. Messages
// are never removed; the assistant placeholder is mutated in place as
// tokens stream in.
type Session struct {
	messages []Message
	nextID   int
	now      func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	return len(s.messages)
}

// AddUserMessage appends the user's question and returns it.
func (s *Session) AddUserMessage(content string) Message {
	msg := Message{
		ID:        s.newID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// AddPlaceholder appends an empty assistant message that the stream
// fills in token by token.
func (s *Session) AddPlaceholder() Message {
	msg := Message{
		ID:        s.newID(),
		Role:      RoleAssistant,
		CreatedAt: s.timestamp(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// AppendToken grows the identified message by one streamed fragment.
func (s *Session) AppendToken(id, token string) {
	if msg := s.find(id); msg != nil {
		msg.Content += token
	}
}

// SetSources attaches the final source list to the identified message.
func (s *Session) SetSources(id string, sources []string) {
	if msg := s.find(id); msg != nil {
		msg.Sources = sources
	}
}

// Fail replaces a still-empty placeholder with the apology text. Tokens
// already shown stay; the client cannot unsay them.
func (s *Session) Fail(id string) {
	if msg := s.find(id); msg != nil && msg.Content == "" {
		msg.Content = apologyText
	}
}

// Content returns the current text of the identified message.
func (s *Session) Content(id string) string {
	if msg := s.find(id); msg != nil {
		return msg.Content
	}
	return ""
}

func (s *Session) find(id string) *Message {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *Session) newID() string {
	s.nextID++
	return fmt.Sprintf("m%d", s.nextID)
}

func (s *Session) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// MergeMessages unions the lists by message identifier, first
// occurrence winning, and sorts by creation timestamp ascending. The
// timestamps are ISO-8601 strings, so plain string comparison orders
// them. The sort is stable, keeping insertion order for equal
// timestamps.
func MergeMessages(lists ...[]Message) []Message {
	seen := make(map[string]bool)
	var merged []Message
	for _, list := range lists {
		for _, msg := range list {
			if msg.ID != "" && seen[msg.ID] {
				continue
			}
			if msg.ID != "" {
				seen[msg.ID] = true
			}
			merged = append(merged, msg)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt < merged[j].CreatedAt
	})
	return merged
}
