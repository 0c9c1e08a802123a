package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	aichatbot "github.com/xpelch/ai-chatbot"
	"github.com/xpelch/ai-chatbot/internal/commands"
	"github.com/xpelch/ai-chatbot/internal/handlers"
	"github.com/xpelch/ai-chatbot/internal/services"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	appDir := filepath.Join(cfgDir, "blockhead")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfg, err := loadConfig(filepath.Join(appDir, "config.yaml"))
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	sessions, err := services.NewBoltSessions(filepath.Join(appDir, "sessions.db"))
	if err != nil {
		log.Fatal(fmt.Errorf("error opening session store: %w", err))
	}
	defer sessions.Close()

	rpc := services.NewRPCClient(cfg.RPC.Endpoint, logger)
	gas := services.NewGasService(rpc, logger)
	gecko := services.NewGeckoTerminal("base", logger)
	wallet := services.NewWalletService(rpc, logger)
	resolver := commands.NewResolver(gas, gecko, logger)
	llm := services.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.llmTimeout(), logger)

	m, err := handlers.NewMain(llm, resolver, wallet, sessions, cfg.Password, logger)
	if err != nil {
		log.Fatal(err)
	}

	staticFS, err := fs.Sub(aichatbot.StaticFS, "static")
	if err != nil {
		log.Fatal(err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/unlock", m.HandleUnlock)
	mux.HandleFunc("/chats", m.HandleChatMessage)
	mux.HandleFunc("/sse/messages", m.HandleSSE)
	mux.HandleFunc("/chat", m.HandleChatAPI)
	mux.HandleFunc("/health", m.HandleHealth)
	mux.HandleFunc("/wallet-summary", m.HandleWalletSummary)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Gate(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("model", cfg.LLM.Model))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("err", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
