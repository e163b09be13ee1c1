package server

import (
	"fmt"
	"net/http"

	"github.com/ai-gateway/chat-gateway-go/internal/config"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
	"github.com/ai-gateway/chat-gateway-go/internal/provider/echo"
	"github.com/ai-gateway/chat-gateway-go/internal/provider/openaicompat"
	"github.com/ai-gateway/chat-gateway-go/internal/routing"
)

// NewRouter registers every provider of the catalog and seals the registry.
// Providers whose credential is missing are still registered; their calls
// fail with a descriptive error instead.
func NewRouter(cfg *config.Config, client *http.Client) (*routing.Router, error) {
	r := routing.New(cfg.Chat.DefaultProvider)
	for _, spec := range cfg.Providers {
		var (
			p     provider.Provider
			model = spec.Model
			err   error
		)
		switch spec.Kind {
		case config.KindEcho:
			p = echo.New()
			if model == "" {
				model = "echo"
			}
		default:
			p, err = openaicompat.New(openaicompat.Options{
				Label:      spec.Label,
				BaseURL:    spec.BaseURL,
				APIKey:     cfg.APIKeys[spec.ID],
				APIKeyEnv:  spec.APIKeyEnv,
				Model:      spec.Model,
				HTTPClient: client,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", spec.ID, err)
		}
		if err := r.Register(spec.ID, model, p); err != nil {
			return nil, err
		}
	}
	if err := r.Seal(); err != nil {
		return nil, err
	}
	return r, nil
}
