package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"session-gate/auth"
	"session-gate/config"
	"session-gate/db"
	"session-gate/notification"
	"session-gate/pkg/logger"
	"session-gate/server"
)

const bcryptCost = 12

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load Config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *configPath, err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Starting session-gate...", zap.String("auth", cfg.Auth.Type))

	// Initialize Database
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	records, err := openRecords(cfg.Database, conn)
	if err != nil {
		logger.Fatal("Failed to open session records", zap.Error(err))
	}

	store, err := auth.NewStore(auth.StoreOptions{
		Type:     cfg.Auth.Type,
		Duration: cfg.Auth.Duration(),
		Records:  records,
	}, auth.WithLogger(logger.Named("sessions")))
	if err != nil {
		logger.Fatal("Failed to build session store", zap.Error(err))
	}

	opts := []auth.GatewayOption{auth.WithGatewayLogger(logger.Named("gateway"))}
	if mailer, err := notification.NewResetMailer(cfg.Notification, logger.Named("mailer")); err != nil {
		logger.Warn("Reset emails disabled", zap.Error(err))
	} else {
		opts = append(opts, auth.WithNotifier(mailer))
	}
	gateway := auth.NewGateway(db.NewUserRepo(conn), store, auth.NewBcryptHasher(bcryptCost), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 持久化会话需要定期清理过期记录
	if sweeper, ok := store.(*auth.PersistentStore); ok {
		interval := time.Duration(cfg.Auth.SweepInterval) * time.Second
		go db.StartSessionSweeper(ctx, sweeper, interval, logger.Named("sweeper"))
	}

	// Initialize Web Server
	srv := server.NewServer(gateway, cfg.Auth, logger.Named("http"))

	httpSrv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", cfg.Addr()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	gateway.Wait()
	if err := db.Close(conn); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// openRecords picks the durable session collection.
func openRecords(cfg config.DatabaseConfig, conn *gorm.DB) (auth.RecordCollection, error) {
	if cfg.Storage == config.StorageFile {
		f, err := db.OpenFileRecords(cfg.SessionFile)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return db.NewSessionRecords(conn), nil
}
