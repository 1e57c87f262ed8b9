package client

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func TestSessionStreamsIntoPlaceholder(t *testing.T) {
	s := NewSession()
	s.now = fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Millisecond)

	user := s.AddUserMessage("What is FAISS?")
	placeholder := s.AddPlaceholder()

	s.AppendToken(placeholder.ID, "FAISS is")
	s.AppendToken(placeholder.ID, " a library.")
	s.SetSources(placeholder.ID, []string{"manual.pdf"})

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != user.ID || msgs[0].Role != RoleUser || msgs[0].Content != "What is FAISS?" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "FAISS is a library." {
		t.Errorf("assistant message = %+v", msgs[1])
	}
	if len(msgs[1].Sources) != 1 || msgs[1].Sources[0] != "manual.pdf" {
		t.Errorf("sources = %v", msgs[1].Sources)
	}
	if msgs[0].CreatedAt >= msgs[1].CreatedAt {
		t.Errorf("timestamps out of order: %q then %q", msgs[0].CreatedAt, msgs[1].CreatedAt)
	}
}

func TestSessionFailReplacesEmptyPlaceholder(t *testing.T) {
	s := NewSession()
	placeholder := s.AddPlaceholder()

	s.Fail(placeholder.ID)

	if got := s.Content(placeholder.ID); got != apologyText {
		t.Errorf("content = %q, want apology", got)
	}
}

func TestSessionFailKeepsPartialTokens(t *testing.T) {
	s := NewSession()
	placeholder := s.AddPlaceholder()
	s.AppendToken(placeholder.ID, "partial answer")

	s.Fail(placeholder.ID)

	if got := s.Content(placeholder.ID); got != "partial answer" {
		t.Errorf("content = %q, streamed tokens must stand", got)
	}
}

func TestSessionTimestampFixedWidth(t *testing.T) {
	s := NewSession()
	// A whole second would lose its fractional digits under a
	// variable-width layout and break string ordering.
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	msg := s.AddUserMessage("hi")
	if !strings.Contains(msg.CreatedAt, ".000") {
		t.Errorf("timestamp %q should keep fixed-width milliseconds", msg.CreatedAt)
	}
}

func TestMergeMessagesUnionByID(t *testing.T) {
	history := []Message{
		{ID: "a", Role: RoleUser, Content: "first", CreatedAt: "2025-06-01T12:00:00.000Z"},
		{ID: "b", Role: RoleAssistant, Content: "second", CreatedAt: "2025-06-01T12:00:01.000Z"},
	}
	local := []Message{
		{ID: "b", Role: RoleAssistant, Content: "second again", CreatedAt: "2025-06-01T12:00:01.000Z"},
		{ID: "c", Role: RoleUser, Content: "third", CreatedAt: "2025-06-01T12:00:02.000Z"},
	}

	merged := MergeMessages(history, local)

	if len(merged) != 3 {
		t.Fatalf("len = %d, want union of 3: %+v", len(merged), merged)
	}
	for i, wantID := range []string{"a", "b", "c"} {
		if merged[i].ID != wantID {
			t.Errorf("merged[%d].ID = %q, want %q", i, merged[i].ID, wantID)
		}
	}
	// First occurrence wins for the duplicated identifier.
	if merged[1].Content != "second" {
		t.Errorf("merged[1].Content = %q", merged[1].Content)
	}
}

func TestMergeMessagesSortsByTimestamp(t *testing.T) {
	merged := MergeMessages([]Message{
		{ID: "late", CreatedAt: "2025-06-01T12:00:05.000Z"},
		{ID: "early", CreatedAt: "2025-06-01T11:59:59.000Z"},
		{ID: "middle", CreatedAt: "2025-06-01T12:00:00.500Z"},
	})

	for i, wantID := range []string{"early", "middle", "late"} {
		if merged[i].ID != wantID {
			t.Errorf("merged[%d].ID = %q, want %q", i, merged[i].ID, wantID)
		}
	}
}

func TestMergeMessagesStableForEqualTimestamps(t *testing.T) {
	merged := MergeMessages([]Message{
		{ID: "x", CreatedAt: "2025-06-01T12:00:00.000Z"},
		{ID: "y", CreatedAt: "2025-06-01T12:00:00.000Z"},
	})

	if merged[0].ID != "x" || merged[1].ID != "y" {
		t.Errorf("equal timestamps should keep insertion order: %+v", merged)
	}
}
