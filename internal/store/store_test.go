package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroup(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

	got := Group([]MessageRow{
		{ConversationID: "a", Role: "user", Content: "first question", CreatedAt: at(0)},
		{ConversationID: "a", Role: "assistant", Content: "answer", CreatedAt: at(1)},
		{ConversationID: "b", Role: "assistant", Content: "hello", CreatedAt: at(2)},
		{ConversationID: "", Role: "user", Content: "orphan", CreatedAt: at(3)},
		{ConversationID: "a", Role: "user", Content: "follow up", CreatedAt: at(4)},
	})

	require.Equal(t, []Conversation{
		{ID: "a", Title: "first question", MessageCount: 3, CreatedAt: at(0), UpdatedAt: at(4)},
		{ID: "b", Title: "New Chat", MessageCount: 1, CreatedAt: at(2), UpdatedAt: at(2)},
	}, got)
}

func TestGroupEmpty(t *testing.T) {
	require.Empty(t, Group(nil))
}

func TestTitleTruncates(t *testing.T) {
	long := strings.Repeat("é", titleLimit+5)
	got := title(long)
	require.Equal(t, titleLimit+1, len([]rune(got)))
	require.True(t, strings.HasSuffix(got, "…"))
}
