package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/auth"
	"github.com/PaulBabatuyi/socialnet/internal/config"
	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/db"
	"github.com/PaulBabatuyi/socialnet/internal/events"
	"github.com/PaulBabatuyi/socialnet/internal/logger"
	"github.com/PaulBabatuyi/socialnet/internal/middleware"
	"github.com/PaulBabatuyi/socialnet/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	dbClient, err := db.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase, db.WithTransactions(cfg.MongoTransactions))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dbClient.Close(closeCtx)
	}()
	if err := dbClient.CreateIndexes(connectCtx); err != nil {
		return err
	}

	// JWT_KEYS enables key rotation; JWT_SECRET is the single-key fallback.
	var jwtMgr *auth.JWTManager
	if len(cfg.JWTKeys) > 0 {
		jwtMgr = auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKid, cfg.TokenTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = nc
		zl.Info("publishing events to nats", zap.String("url", cfg.NATSURL))
	}

	hub := NewConnectionHub()
	deps := service.Deps{
		Users:         data.NewUsersStore(dbClient.Collection(db.Users)),
		Posts:         data.NewPostsStore(dbClient.Collection(db.Posts)),
		Comments:      data.NewCommentsStore(dbClient.Collection(db.Comments)),
		Conversations: data.NewConversationsStore(dbClient.Collection(db.Conversations)),
		Messages:      data.NewMessagesStore(dbClient.Collection(db.Messages)),
		Tx:            dbClient,
		Tokens:        jwtMgr,
		Events:        publisher,
		Notifier:      hub,
		Logger:        zl,
	}

	// small burst to allow a couple of quick retries
	limiter := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer limiter.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := newServer(serverDeps{
		Accounts:  service.NewAccountService(deps),
		Content:   service.NewContentService(deps),
		Messaging: service.NewMessagingService(deps),
		Verifier:  jwtMgr,
		Hub:       hub,
		Limiter:   limiter,
		Ping:      dbClient.Ping,
		Origins:   cfg.CORSOrigins,
		Logger:    zl,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		zl.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var hs *healthServer
	if cfg.HealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.HealthPort)
		if err != nil {
			return err
		}
		hs = newHealthServer(dbClient.Ping, zl)
		go hs.watch(ctx)
		go func() {
			zl.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
			if err := hs.serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		zl.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if hs != nil {
		hs.stop()
	}
	return httpServer.Shutdown(shutdownCtx)
}
