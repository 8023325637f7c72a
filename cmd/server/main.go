// Command server runs the VoltSurf options analytics HTTP service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/voltsurf/internal/config"
	"github.com/aristath/voltsurf/internal/database"
	"github.com/aristath/voltsurf/internal/server"
	"github.com/aristath/voltsurf/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting VoltSurf")

	// Price history gets the standard profile. The calculation cache is
	// ephemeral and tuned for speed.
	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "calculations.db"),
		Profile: database.ProfileCache,
		Name:    "calculations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open calculations database")
	}
	defer cacheDB.Close()

	srv, err := server.New(server.Config{
		Cfg:       cfg,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Log:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Start server in goroutine so the main thread can wait on signals.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
