package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"snakearena/internal/app"
	"snakearena/internal/config"
	"snakearena/internal/game"
	"snakearena/internal/service"
	"snakearena/internal/transport/rest"
	"snakearena/internal/transport/ws"
)

const releaseVersion = "1.0.0"

func main() {
	cfg := &config.Config{}

	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snakearena",
		Short: "Real-time multiplayer snake game server.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}

	config.Bind(cmd.Flags(), cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.Version = releaseVersion
	cmd.SetVersionTemplate("snakearena v{{.Version}}\n")

	return cmd
}

func serve(cfg *config.Config) error {
	log.Println("started")
	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Println("Connected to Redis")

	a := app.New(db, rdb)

	// Initialize services
	authSvc := service.NewAuthService(a.UserRepo, cfg.JWTSecret)
	identitySvc := service.NewIdentityService(a.UserRepo, a.UserCache)
	scoreSvc := service.NewScoreService(a.ScoreRepo, a.Leaderboard, identitySvc)
	gameSvc := service.NewGameService(game.NewRegistry(), identitySvc, scoreSvc, a.GameRepo, a.RoomCache, service.Timing{
		CountdownStep:  cfg.CountdownStep,
		GracePeriod:    cfg.GracePeriod,
		PersistTimeout: cfg.PersistTimeout,
	})
	gameSvc.SetVerbose(cfg.Verbose)

	// Hub implements service.Broadcaster
	wsHub := ws.NewHub()
	gameSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:     authSvc,
		IdentityService: identitySvc,
		GameService:     gameSvc,
		ScoreService:    scoreSvc,
		RoomCache:       a.RoomCache,
		WSHub:           wsHub,
		PublicURL:       cfg.PublicURL,
		CORSOrigins:     cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("Server starting on :%d", cfg.Port)
		if cfg.Verbose {
			log.Println("Endpoints:")
			log.Println("  POST /v1/auth/register")
			log.Println("  POST /v1/auth/login")
			log.Println("  POST /v1/multiplayer/create")
			log.Println("  POST /v1/multiplayer/join")
			log.Println("  GET  /v1/multiplayer/current")
			log.Println("  GET  /v1/multiplayer/game/{gameId}")
			log.Println("  POST /v1/multiplayer/game/{gameId}/start")
			log.Println("  POST /v1/multiplayer/game/{gameId}/leave")
			log.Println("  GET  /v1/multiplayer/rooms/{code}")
			log.Println("  GET  /v1/leaderboard")
			log.Println("  DELETE /v1/users/me")
			log.Println("  WS   /v1/multiplayer/ws/{gameId}")
		}

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errs:
		return fmt.Errorf("listen: %w", err)
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := gameSvc.Shutdown(shutdownCtx); err != nil {
		log.Printf("Games did not stop cleanly: %v", err)
	}

	log.Println("Server exited")
	return nil
}
