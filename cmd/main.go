/*
Package main is the entry point for the chatsync client.

It loads configuration, initializes the global logger, connects to the remote
chat store, starts the chat session and serves the local API until the process
receives SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/app/store/memstore"
	"chatsync/internal/app/store/pgstore"
	"chatsync/internal/app/store/redisbus"
	"chatsync/internal/app/user"
	"chatsync/internal/configs"
	"chatsync/internal/handler"
	"chatsync/internal/pkg/limiter"
	"chatsync/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("store_driver", cfg.StoreDriver).
		Str("realtime_transport", cfg.RealtimeTransport).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	account, err := openAccount(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open account session")
	}

	remote, closeStore, err := openStore(ctx, cfg, account)
	if err != nil {
		logx.Fatal(err, "Failed to connect to the chat store")
	}

	var avatars storage.AvatarStore
	if cfg.StorageEnabled() {
		avatars, err = storage.NewAvatarStore(ctx, storage.Config{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize avatar storage")
		}
	}

	session := chat.NewSession(remote, account, chat.Config{
		ProbeInterval:     cfg.ProbeInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HistoryLimit:      cfg.HistoryLimit,
	})
	session.Start(ctx)

	sendLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst)

	router := handler.Router(&handler.AppDeps{
		Session:     session,
		Users:       account,
		Config:      cfg,
		SendLimiter: sendLimiter,
		Avatars:     avatars,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("chatsync client starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	session.Stop()
	sendLimiter.Close()
	closeStore()

	logx.Info("Client gracefully stopped.")
}

// openAccount verifies the configured access token. In development without a
// token it mints a throwaway account instead.
func openAccount(cfg *configs.AppConfig) (*user.AccountSession, error) {
	if cfg.AccessToken != "" {
		return user.FromToken(cfg.AccessToken, cfg.JWTSecret)
	}

	account, err := user.NewDevelopmentSession("dev@localhost", cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	logx.Logger().Warn().
		Str("user_id", account.CurrentUser().ID).
		Str("access_token", account.Token()).
		Msg("No ACCESS_TOKEN configured, using a development account")

	return account, nil
}

// openStore connects to the configured store driver. The returned func
// releases every connection the store holds.
func openStore(ctx context.Context, cfg *configs.AppConfig, account *user.AccountSession) (store.Store, func(), error) {
	identity := account.CurrentUser()

	if cfg.StoreDriver == configs.StoreDriverMemory {
		mem := memstore.New()
		seedDevelopmentStore(mem, account)
		return mem, mem.Close, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RealtimeTransport != configs.RealtimeRedis {
		return pgstore.New(pool, identity.ID), pool.Close, nil
	}

	client, err := redisbus.NewClient(ctx, redisbus.Config{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if err := client.Close(); err != nil {
			logx.Error(err, "Failed to close redis client")
		}
		pool.Close()
	}

	return pgstore.New(pool, identity.ID, pgstore.WithRealtime(redisbus.NewSubscriber(client))), closeAll, nil
}
