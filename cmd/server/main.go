package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neighborly/internal/bot"
	"neighborly/internal/config"
	"neighborly/internal/core"
	"neighborly/internal/hub"
	"neighborly/internal/store"
	"neighborly/internal/web"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "neighborly.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SessionSecret == config.Defaults().SessionSecret {
		log.Println("Warning: Using default session secret. Set SESSION_SECRET in production!")
	}

	// Initialize the database store
	log.Println("Initializing database...")
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Real-time fan-out and the core service
	events := hub.New()
	service := core.NewService(db, events)

	// Web server
	server := web.NewServer(service, events, cfg.SessionSecret, cfg.PublicURL)
	router := server.Router()

	// Optional Telegram mirror
	if cfg.Telegram.BotToken != "" {
		telegramBot, err := bot.NewBot(cfg.Telegram.BotToken, service, cfg.SessionSecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Telegram bot: %v", err)
			log.Println("Continuing without Telegram bot...")
		} else {
			events.SetMirror(telegramBot)
			go telegramBot.Start()
			defer telegramBot.Stop()
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, Telegram mirror disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Shutdown complete")
}
