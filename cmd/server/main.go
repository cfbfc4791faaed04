package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/srdc/messageapp/internal/core/service"
	"github.com/srdc/messageapp/internal/infrastructure/config"
	mongodb "github.com/srdc/messageapp/internal/infrastructure/db/mongo"
	redisdb "github.com/srdc/messageapp/internal/infrastructure/db/redis"
	opshttp "github.com/srdc/messageapp/internal/infrastructure/http"
	"github.com/srdc/messageapp/internal/server"
	"github.com/srdc/messageapp/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	messages := mongodb.NewMessageRepository(db)
	accounts := service.NewAccountService(users, log)
	mailbox := service.NewMessageService(messages, users, log)
	presence := redisdb.NewPresenceTracker(rdb)

	ops := opshttp.NewRouter(db, rdb)
	go func() {
		if err := ops.Start(cfg.OpsAddr); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ops.Shutdown(shutdownCtx)
	}()

	listener := server.NewListener(cfg.ListenAddr, server.Deps{
		Accounts:         accounts,
		Messages:         mailbox,
		Presence:         presence,
		LivenessInterval: cfg.LivenessInterval,
		Log:              log,
	})
	if err := listener.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
