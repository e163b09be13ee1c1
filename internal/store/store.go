// Package store reads chat data from the Postgres database behind Supabase.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const titleLimit = 50

// Conversation summarizes the messages sharing one conversation id.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MessageRow is one row of chat_messages.
type MessageRow struct {
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Store is a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// SampleUsers reads at most one user and returns how many rows came back.
func (s *Store) SampleUsers(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, `select id, email, name from users limit 1`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// ListConversations groups the messages of userID by conversation.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		select coalesce(conversation_id::text, ''), role, content, created_at
		from chat_messages
		where user_id = $1
		order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[MessageRow])
	if err != nil {
		return nil, err
	}
	return Group(msgs), nil
}

// Group folds rows ordered by creation time into conversations, most
// recently updated first. Rows without a conversation id are skipped.
func Group(rows []MessageRow) []Conversation {
	byID := make(map[string]*Conversation)
	var order []*Conversation
	for _, r := range rows {
		if r.ConversationID == "" {
			continue
		}
		c, ok := byID[r.ConversationID]
		if !ok {
			c = &Conversation{ID: r.ConversationID, CreatedAt: r.CreatedAt}
			byID[r.ConversationID] = c
			order = append(order, c)
		}
		c.MessageCount++
		c.UpdatedAt = r.CreatedAt
		if c.Title == "" && r.Role == "user" {
			c.Title = title(r.Content)
		}
	}

	out := make([]Conversation, 0, len(order))
	for _, c := range order {
		if c.Title == "" {
			c.Title = "New Chat"
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func title(content string) string {
	r := []rune(content)
	if len(r) <= titleLimit {
		return content
	}
	return string(r[:titleLimit]) + "…"
}
