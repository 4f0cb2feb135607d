package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"blurt-quest/internal/app"
	"blurt-quest/internal/config"
	"blurt-quest/internal/infra/memory"
	pgstore "blurt-quest/internal/infra/postgres"
	redisinfra "blurt-quest/internal/infra/redis"
	"blurt-quest/internal/logging"
	"blurt-quest/internal/metrics"
	transport "blurt-quest/internal/transport/http"
)

// NewServerCmd builds the CLI subcommand to start the quest API server.
func NewServerCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the quest API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logging.New("server")

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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		users     app.UserStore = memory.NewUserStore()
		questions app.QuestionBank
		attempts  app.AttemptStore = memory.NewAttemptStore()
	)
	questions = memory.NewQuestionBank(memory.DefaultQuestions())

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pgstore.Seed(ctx, pool, memory.DefaultQuestions()); err != nil {
			return err
		}
		users = pgstore.NewUserStore(pool)
		questions = pgstore.NewQuestionStore(pool)
		attempts = pgstore.NewAttemptStore(pool)
	}

	var leaderboard app.LeaderboardProvider = app.NewStoreLeaderboard(users)
	if redisClient != nil {
		ttl := config.TTLDuration(cfg.Leaderboard.TTL, time.Minute)
		leaderboard = redisinfra.NewLeaderboardCache(redisClient, leaderboard, ttl)
	}

	hashes := make(map[string][]byte, len(cfg.Auth.Keys))
	for username, hash := range cfg.Auth.Keys {
		hashes[username] = []byte(hash)
	}
	verifier := app.NewBcryptRegistry(hashes)
	tokens := app.NewTokenIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenLifetime, 24*time.Hour))

	service := app.NewQuestService(users, questions, attempts, leaderboard, verifier, tokens)
	m := metrics.New()
	handler := transport.NewHandler(service, m, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	handler.Routes(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quest server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
