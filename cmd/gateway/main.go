package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"goa.design/clue/log"

	"github.com/ai-gateway/chat-gateway-go/internal/config"
	"github.com/ai-gateway/chat-gateway-go/internal/observability"
	"github.com/ai-gateway/chat-gateway-go/internal/server"
	"github.com/ai-gateway/chat-gateway-go/internal/store"
)

func main() {
	dbgF := flag.Bool("debug", false, "Enable debug logs")
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(ctx, err, "failed to load config")
	}
	if *dbgF || cfg.Debug {
		cfg.Debug = true
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TelemetryURL != "" {
		tp, err := observability.Setup(ctx, cfg.TelemetryURL)
		if err != nil {
			log.Fatalf(ctx, err, "failed to set up tracing")
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	var db server.Database
	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf(ctx, err, "failed to open database")
		}
		defer st.Close()
		db = st
	} else {
		log.Warn(ctx, log.KV{K: "msg", V: "no database configured, conversation listing is disabled"})
	}

	router, err := server.NewRouter(cfg, &http.Client{})
	if err != nil {
		log.Fatalf(ctx, err, "failed to register providers")
	}
	for _, d := range router.Descriptors() {
		log.Print(ctx, log.KV{K: "provider", V: d.ID}, log.KV{K: "model", V: d.Model})
	}

	srv := server.New(cfg, router, db, server.WithLogContext(ctx))
	log.Print(ctx, log.KV{K: "address", V: cfg.Address})
	if err := srv.Start(ctx); err != nil {
		log.Fatalf(ctx, err, "server error")
	}
}
