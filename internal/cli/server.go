package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgbackend "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/results"
	transport "quiz-session-service/internal/transport/http"
	"quiz-session-service/internal/upstream"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Backend priority: remote HTTP API, then self-hosted Postgres, then
	// the built-in demo fixtures.
	var backend upstream.Backend
	switch {
	case cfg.Upstream.BaseURL != "":
		timeout := config.TTLDuration(cfg.Upstream.Timeout, upstream.DefaultTimeout)
		backend = upstream.NewClient(cfg.Upstream.BaseURL, timeout)
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		backend = pgbackend.NewBackend(pool)
	default:
		log.Printf("no upstream configured, serving demo fixtures")
		backend = memory.NewBackend(demoFixtures())
	}

	var store app.SessionStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewSessionService(store, backend)
	presenter := results.NewPresenter(backend, config.TTLDuration(cfg.Results.TTL, 10*time.Minute))
	wsHandler := transport.NewWSHandler(service, presenter)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoFixtures backs the service when no upstream is configured; handy for
// local runs and demos.
func demoFixtures() map[string]memory.Fixture {
	return map[string]memory.Fixture{
		"demo-token": {
			Quiz: domain.Quiz{
				ID:              "quiz-1",
				Title:           "General Knowledge",
				Description:     "A short warm-up quiz",
				Topic:           "general",
				TimePerQuestion: 10,
				TotalQuestions:  2,
			},
			Questions: []domain.Question{
				{
					ID:        "q1",
					Text:      "What is 2 + 2?",
					Options:   []string{"3", "4", "5"},
					TimeLimit: 10,
					Order:     0,
				},
				{
					ID:        "q2",
					Text:      "Which planet is closest to the sun?",
					Options:   []string{"Venus", "Mercury", "Mars"},
					TimeLimit: 10,
					Order:     1,
				},
			},
			AnswerKey: map[string]string{"q1": "4", "q2": "Mercury"},
		},
	}
}
