package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/config"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/matchmaking"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/metrics"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/usecase"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/rest"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/transport/websocket"
)

const shutdownTimeout = 5 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	if err = os.MkdirAll(filepath.Dir(conf.SQLiteStoragePath), 0o755); err != nil {
		return fmt.Errorf("could not create sqlite directory: %w", err)
	}

	historyStorage, err := sqlite.New(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err := historyStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = historyStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	gameRepo := repository.NewGameRepository(redisStorage.Connection)
	historyRepo := repository.NewHistoryRepository(historyStorage.Connection)

	outcomes := usecase.NewOutcomeNotifier(logger, playerRepo, historyRepo, conf.Game.KFactor)
	gameManager := usecase.NewGameManager(logger, gameRepo, outcomes, conf.Game.TotalTime, appMetrics)
	playerManager := usecase.NewPlayerManager(logger, playerRepo, conf.Game.DefaultRating)
	coordinator := matchmaking.NewCoordinator(logger, playerRepo, gameManager, conf.Matchmaking.TTL, appMetrics)

	wsServer := websocket.New(logger, gameManager, coordinator, playerManager, conf.AllowedOrigins)
	gameManager.AddObserver(wsServer)

	handlers := rest.NewHandlers(logger, gameManager, coordinator, playerManager, historyRepo)
	restServer := rest.NewServer(logger, conf.HTTPPort, rest.NewRouter(handlers, conf.AllowedOrigins, registry))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		return restServer.Start()
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		return wsServer.Start(conf.SocketPort)
	})

	if conf.Game.SweepInterval > 0 {
		group.Go(func() error {
			runSweeper(groupCtx, gameManager, conf.Game.SweepInterval)
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Application context canceled, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(restServer.Shutdown(shutdownCtx), wsServer.Shutdown(shutdownCtx))
	})

	if err = group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

type timeoutSweeper interface {
	SweepTimeouts(ctx context.Context) int
}

// runSweeper forfeits games whose side to move ran out of time.
func runSweeper(ctx context.Context, sweeper timeoutSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweeper.SweepTimeouts(ctx)
		}
	}
}
