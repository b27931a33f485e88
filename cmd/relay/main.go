/*
Package main runs the realtime relay.

The relay listens for row changes in Postgres and republishes them on Redis,
so clients started with REALTIME_TRANSPORT=redis need no dedicated database
connection per subscription.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/store/pgstore"
	"chatsync/internal/app/store/redisbus"
	"chatsync/internal/configs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
)

func main() {
	cfg, err := configs.LoadRelayConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")

	instance, err := randx.InstanceTag()
	if err != nil {
		logx.Fatal(err, "Failed to tag relay instance")
	}
	logger := logx.Component("relay").With().Str("instance", instance).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to the chat store")
	}
	defer pool.Close()

	client, err := redisbus.NewClient(ctx, redisbus.Config{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logx.Fatal(err, "Failed to connect to redis")
	}
	defer client.Close()

	relay := redisbus.NewRelay(pgstore.NewListener(pool), client, chat.TableMessages, chat.ViewOnlineUsers)

	for ctx.Err() == nil {
		err := relay.Run(ctx)
		if ctx.Err() != nil {
			break
		}
		logger.Error().Err(err).Dur("retry_in", cfg.RetryDelay).Msg("Relay stopped, restarting")

		select {
		case <-ctx.Done():
		case <-time.After(cfg.RetryDelay):
		}
	}

	logger.Info().Msg("Relay gracefully stopped.")
}
