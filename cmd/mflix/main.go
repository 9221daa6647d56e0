package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/mflix-go/webserver/internal/config"
	"github.com/mflix-go/webserver/internal/database"
	"github.com/mflix-go/webserver/internal/log"
	"github.com/mflix-go/webserver/internal/models/session"
	"github.com/mflix-go/webserver/internal/models/user"
	"github.com/mflix-go/webserver/internal/services"
	"github.com/mflix-go/webserver/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the mflix command tree. Errors are returned to main, which prints them once.
func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "mflix",
		Short:         "mflix account and session server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "secrets/.env", "path to the dotenv file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}

	indexesCmd := &cobra.Command{
		Use:   "ensure-indexes",
		Short: "create the uniqueness indexes on users and sessions, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ensureIndexes(cmd.Context(), envFile)
		},
	}

	rootCmd.AddCommand(serveCmd, indexesCmd)
	return rootCmd
}

// setup loads the configuration, builds the logger and connects to MongoDB.
func setup(ctx context.Context, envFile string) (*config.Config, *log.Logger, *mongo.Client, *writeconcern.WriteConcern, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := log.NewLogger(cfg.LogDevelopment, cfg.LogDebug, cfg.LogOutput...)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	wc, err := database.ParseWriteConcern(cfg.MongoWriteConcern)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if !wc.Acknowledged() {
		logger.Warn("MONGO_WRITE_CONCERN=0: writes are not acknowledged and every write will report ErrUnacknowledged")
	}

	client, err := database.Connect(ctx, cfg.MongoURI, wc, cfg.MongoConnectTimeout, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, logger, client, wc, nil
}

func ensureIndexes(ctx context.Context, envFile string) error {
	cfg, logger, client, _, err := setup(ctx, envFile)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer client.Disconnect(context.Background())

	if err := database.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
		return err
	}
	logger.Info("Indexes are in place")
	return nil
}

func serve(ctx context.Context, envFile string) error {
	cfg, logger, client, wc, err := setup(ctx, envFile)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	// Create the managers over the shared database handle
	sessionManager := session.NewSessionManager(db, wc, logger)
	userManager := user.NewUserManager(db, wc, sessionManager, logger)

	var events services.EventPublisher = services.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewAMPQPublisher(ctx, cfg.RabbitMQURL, cfg.AccountEventsQueue, cfg.MongoConnectTimeout, logger)
		if err != nil {
			return err
		}
		defer publisher.Shutdown()
		events = publisher
	}

	accountService := services.NewAccountService(userManager, sessionManager, events, cfg.JWTSecret, cfg.JWTTTL, logger)
	authLimiter := web.NewRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst)
	server := web.NewWebServer(accountService, authLimiter, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
