package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli"

	"pulse/internal/clock"
	"pulse/internal/config"
	"pulse/internal/events"
	"pulse/internal/handler"
	"pulse/internal/repository"
	"pulse/internal/router"
	"pulse/internal/service"
	"pulse/internal/telemetry"
	"pulse/internal/wake"
)

const shutdownTimeout = 5 * time.Second

func serve(_ *cli.Context) error {
	cfg := config.Load()

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NopMetrics()
	if cfg.TelemetryEnabled {
		meter, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir, cfg.MetricsInterval)
		if err != nil {
			return err
		}
		defer shutdown()
		if metrics, err = telemetry.NewMetrics(meter); err != nil {
			return err
		}
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	pomodoroRepo := repository.NewPomodoroRepository(database)
	responseRepo := repository.NewResponseRepository(database)
	stateRepo := repository.NewStateRepository(database)
	settingsService := service.NewSettingsService(repository.NewSettingsRepository(database), logger)

	clk := clock.Real{}
	bus := events.NewBus()
	defer bus.Close()
	subscribe(bus, logger)

	engine := service.NewPomodoroEngine(clk, bus, pomodoroRepo, stateRepo, settingsService, logger, metrics)
	defer engine.Close()
	if err := engine.RestoreState(ctx); err != nil {
		// Not fatal: the engine starts idle and the checkpoint is retried next start.
		logger.Error("restore pomodoro state", "error", err)
	}

	scheduler := service.NewPromptScheduler(clk, bus, settingsService, logger, metrics)
	defer scheduler.Stop()
	if cfg.SchedulerEnabled {
		scheduler.Start()
	}

	detector := service.NewDayDetector(clk, bus, stateRepo, engine.IsActive, logger, metrics)
	manual := wake.NewManual(clk)
	gaps := wake.NewGapDetector(clk, cfg.WakePollInterval)
	go gaps.Run(ctx)
	go detector.Watch(ctx, wake.Merge(ctx, manual, gaps), func() {
		engine.Reconcile()
	})

	responseService := service.NewResponseService(responseRepo, pomodoroRepo, detector, clk, logger)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	handlers := router.Handlers{
		Pomodoro:  handler.NewPomodoroHandler(engine, scheduler),
		CheckIns:  handler.NewCheckInHandler(responseService),
		Settings:  handler.NewSettingsHandler(settingsService),
		Day:       handler.NewDayHandler(detector, manual),
		Scheduler: handler.NewSchedulerHandler(scheduler),
		Events:    handler.NewEventsHandler(bus),
	}
	server := &http.Server{
		Addr:              "127.0.0.1:" + cfg.Port,
		Handler:           router.New(tokenService, handlers, cfg.CORSOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pulse listening", "addr", server.Addr, "version", telemetry.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server", "error", err)
	}
	return nil
}

// subscribe attaches the daemon's own reaction to each event. A UI process
// follows the same events through GET /api/events.
func subscribe(bus *events.Bus, logger *slog.Logger) {
	logger = logger.With("component", "events")

	bus.Subscribe(events.KindPromptTriggered, func(e events.Event) {
		logger.Info("check-in due", "kind", "intraday", "at", e.At)
	})
	bus.Subscribe(events.KindNewDay, func(e events.Event) {
		logger.Info("check-in due", "kind", "start_of_day", "at", e.At)
	})
	bus.Subscribe(events.KindWorkSessionEnded, func(e events.Event) {
		if e.Session != nil {
			logger.Info("work session complete, break ready", "session_id", e.Session.ID, "cycle", e.Session.Cycle)
		}
	})
	bus.Subscribe(events.KindBreakEnded, func(e events.Event) {
		logger.Info("break over, ready for work", "phase", e.Phase)
	})
	bus.Subscribe(events.KindSnoozeEnded, func(e events.Event) {
		logger.Info("snooze over, ready for work", "at", e.At)
	})
	bus.Subscribe(events.KindBreakSnoozeEnded, func(e events.Event) {
		logger.Info("break snooze over, break ready", "at", e.At)
	})
	bus.Subscribe(events.KindTimerTick, func(e events.Event) {
		if e.Seconds%60 == 0 {
			logger.Debug("timer", "phase", e.Phase, "remaining_seconds", e.Seconds)
		}
	})
}
