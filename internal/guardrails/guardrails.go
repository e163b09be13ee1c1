package guardrails

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

// Limits bounds the conversation a client may submit. Zero values disable a limit.
type Limits struct {
	MaxMessages     int      `mapstructure:"max_messages"`
	MaxContentChars int      `mapstructure:"max_content_chars"`
	Banned          []string `mapstructure:"banned"`
}

// Guardrails performs simple input validation.
type Guardrails struct {
	limits Limits
	banned []string
}

func New(limits Limits) *Guardrails {
	g := &Guardrails{limits: limits}
	for _, w := range limits.Banned {
		if w = strings.TrimSpace(w); w != "" {
			g.banned = append(g.banned, strings.ToLower(w))
		}
	}
	return g
}

// CheckInput returns an error if input contains banned words or is too long.
func (g *Guardrails) CheckInput(input string) error {
	if g.limits.MaxContentChars > 0 && len([]rune(input)) > g.limits.MaxContentChars {
		return fmt.Errorf("message exceeds %d characters", g.limits.MaxContentChars)
	}
	lower := strings.ToLower(input)
	for _, w := range g.banned {
		if strings.Contains(lower, w) {
			return errors.New("input violates guardrails")
		}
	}
	return nil
}

// CheckMessages validates a conversation before it is dispatched.
func (g *Guardrails) CheckMessages(msgs []provider.Message) error {
	if len(msgs) == 0 {
		return errors.New("messages must not be empty")
	}
	if g.limits.MaxMessages > 0 && len(msgs) > g.limits.MaxMessages {
		return fmt.Errorf("too many messages: %d > %d", len(msgs), g.limits.MaxMessages)
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("messages[%d]: content is empty", i)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role == provider.RoleUser {
		return g.CheckInput(last.Content)
	}
	return nil
}
