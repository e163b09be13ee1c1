package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	"github.com/ai-gateway/chat-gateway-go/internal/config"
	"github.com/ai-gateway/chat-gateway-go/internal/gateway"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	databaseCheck = "supabase"
	isoMillis     = "2006-01-02T15:04:05.000Z07:00"
)

var errNoDatabase = errors.New("database not configured")

// TestResult is the outcome of one connection check.
type TestResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Response  string `json:"response,omitempty"`
	UserCount *int   `json:"userCount,omitempty"`
}

type testReport struct {
	Timestamp string                `json:"timestamp"`
	Tests     map[string]TestResult `json:"tests"`
}

type probeResponse struct {
	Success  bool            `json:"success"`
	Provider string          `json:"provider"`
	Response string          `json:"response"`
	Usage    *provider.Usage `json:"usage,omitempty"`
}

// runConnectionTests checks the database and every registered provider
// concurrently. A failing check never aborts its siblings and the response
// is always a 200.
func (s *Server) runConnectionTests(c *gin.Context) {
	ctx := c.Request.Context()
	report := testReport{
		Timestamp: s.now().UTC().Format(isoMillis),
		Tests:     make(map[string]TestResult),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(name string, r TestResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Tests[name] = r
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		record(databaseCheck, s.checkDatabase(ctx))
	}()
	for _, d := range s.router.Descriptors() {
		id := d.ID
		wg.Add(1)
		go func() {
			defer wg.Done()
			record(id, s.checkProvider(ctx, id))
		}()
	}
	wg.Wait()

	c.JSON(http.StatusOK, report)
}

func (s *Server) checkDatabase(ctx context.Context) TestResult {
	err := errNoDatabase
	n := 0
	if s.db != nil {
		n, err = s.db.SampleUsers(ctx)
	}
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "database check failed"})
		return TestResult{Status: statusError, Message: err.Error()}
	}
	return TestResult{Status: statusSuccess, Message: "Database connection successful", UserCount: &n}
}

func (s *Server) checkProvider(ctx context.Context, id string) TestResult {
	label := s.label(id)
	req := gateway.HealthRequest(id, label, s.cfg.Health)
	req.Options.Model = s.probeModel(id)
	res, err := s.gateway.Dispatch(ctx, req, provider.ModeBatch)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "provider check failed"}, log.KV{K: "provider", V: id})
		return TestResult{Status: statusError, Message: gateway.Envelope(err).Message}
	}
	return TestResult{
		Status:   statusSuccess,
		Message:  label + " API connection successful",
		Response: res.(*provider.Completion).Text,
	}
}

// testChat sends a single message to one provider in batch mode.
func (s *Server) testChat(c *gin.Context) {
	ctx := c.Request.Context()
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req, err := s.normalizer.NormalizeProbe(raw, s.cfg.Probe)
	if err != nil {
		env := gateway.Envelope(err)
		c.JSON(env.HTTPStatus, env)
		return
	}
	req.Options.Model = s.probeModel(req.ProviderID)

	log.Info(ctx, log.KV{K: "msg", V: "testing provider"}, log.KV{K: "provider", V: req.ProviderID})
	res, err := s.gateway.Dispatch(ctx, req, provider.ModeBatch)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "provider test failed"}, log.KV{K: "provider", V: req.ProviderID})
		env := gateway.Envelope(err)
		c.JSON(env.HTTPStatus, gin.H{"success": false, "error": env.Message})
		return
	}
	comp := res.(*provider.Completion)
	c.JSON(http.StatusOK, probeResponse{
		Success:  true,
		Provider: req.ProviderID,
		Response: comp.Text,
		Usage:    comp.Usage,
	})
}

func (s *Server) spec(id string) (config.ProviderSpec, bool) {
	for _, p := range s.cfg.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return config.ProviderSpec{}, false
}

func (s *Server) label(id string) string {
	if p, ok := s.spec(id); ok && p.Label != "" {
		return p.Label
	}
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

// probeModel is the model override for test traffic to id, empty when the
// provider's own model is used.
func (s *Server) probeModel(id string) string {
	p, _ := s.spec(id)
	return p.ProbeModel
}
