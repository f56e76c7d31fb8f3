package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wardenlabs/reportrelay/internal/auth"
	"github.com/wardenlabs/reportrelay/internal/ingest"
	"github.com/wardenlabs/reportrelay/internal/server"
	"github.com/wardenlabs/reportrelay/internal/setup"
	"github.com/wardenlabs/reportrelay/internal/stats"
	"github.com/wardenlabs/reportrelay/internal/worker"
	"go.uber.org/zap"
)

// ServerLogDir specifies where server log files are stored.
const ServerLogDir = "logs/server_logs"

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 30 * time.Second
)

func main() {
	app, err := setup.InitializeApp(ServerLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup()

	authority := auth.New(app.DB, app.Config.Admin.Password, app.Config.Admin.UserIDs, app.Logger)
	if err := authority.SeedConfigured(context.Background()); err != nil {
		app.Logger.Fatal("Failed to seed configured admins", zap.Error(err))
	}

	statsService := stats.NewService(app.DB, app.Logger)
	pipeline := ingest.NewPipeline(app.DB, statsService, app.Notifier, app.Logger)

	handler := server.NewServer(app.Config, app.DB, authority, pipeline, statsService, app.Catalog, app.Logger)

	housekeeping := worker.NewHousekeeping(authority, app.Logger)
	housekeeping.Start()
	defer housekeeping.Stop()

	addr := fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	go func() {
		log.Printf("Server started on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	app.Notifier.Close(ctx)
	app.Logger.Info("Server gracefully stopped")
}
