package routing

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

var (
	// ErrUnknownProvider is returned by Resolve for ids that were never registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrSealed is returned by Register once the registry has been sealed.
	ErrSealed = errors.New("provider registry is sealed")
)

// Descriptor describes a registered provider.
type Descriptor struct {
	ID       string            `json:"id"`
	Model    string            `json:"model"`
	Provider provider.Provider `json:"-"`
}

// Router maps provider ids to providers. Entries are added at startup and the
// router is sealed before serving; after that it is read-only and safe for
// concurrent use without locking.
type Router struct {
	providers map[string]Descriptor
	defaultID string
	sealed    atomic.Bool
}

func New(defaultID string) *Router {
	return &Router{
		providers: make(map[string]Descriptor),
		defaultID: defaultID,
	}
}

// Register associates an id with a provider implementation.
func (r *Router) Register(id, model string, p provider.Provider) error {
	if r.sealed.Load() {
		return ErrSealed
	}
	if id == "" || p == nil {
		return errors.New("provider id and implementation are required")
	}
	if _, ok := r.providers[id]; ok {
		return fmt.Errorf("provider %q already registered", id)
	}
	r.providers[id] = Descriptor{ID: id, Model: model, Provider: p}
	return nil
}

// Seal freezes the registry. The default provider must be registered.
func (r *Router) Seal() error {
	if _, ok := r.providers[r.defaultID]; !ok {
		return fmt.Errorf("default provider %q is not registered", r.defaultID)
	}
	r.sealed.Store(true)
	return nil
}

// Resolve returns the provider registered under id.
func (r *Router) Resolve(id string) (Descriptor, error) {
	d, ok := r.providers[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return d, nil
}

// Has reports whether id is registered.
func (r *Router) Has(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// ProviderFor returns the id to dispatch to: id itself when registered,
// otherwise the default provider id.
func (r *Router) ProviderFor(id string) string {
	if r.Has(id) {
		return id
	}
	return r.defaultID
}

// DefaultID returns the id unknown providers fall back to.
func (r *Router) DefaultID() string { return r.defaultID }

// Descriptors lists registered providers ordered by id.
func (r *Router) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.providers))
	for _, d := range r.providers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
