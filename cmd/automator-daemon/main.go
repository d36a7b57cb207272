// automator-daemon — фоновый процесс Local Automator.
//
// Демон:
//   - Запускает flows по триггерам (расписание, наблюдение за папкой)
//   - Принимает запросы на запуск через HTTP API и RabbitMQ (опционально)
//   - Пишет историю runs в PostgreSQL (опционально, иначе в память)
//   - Публикует события run/step в RabbitMQ (опционально)
//   - Отдаёт /healthz и /metrics
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/api"
	"github.com/shaiso/LocalAutomator/internal/config"
	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/mq"
	"github.com/shaiso/LocalAutomator/internal/repo"
	"github.com/shaiso/LocalAutomator/internal/runner"
	"github.com/shaiso/LocalAutomator/internal/telemetry"
	"github.com/shaiso/LocalAutomator/internal/trigger"
)

// runStore — хранилище истории runs.
type runStore interface {
	repo.RunReader
	repo.RunWriter
}

func main() {
	startTime := time.Now()

	cfg, err := config.Load(config.DefaultBaseDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting automator-daemon", "home", cfg.BaseDir)

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(nil)
	observers := []runner.Observer{metrics}

	// История runs: PostgreSQL, если задан DB_URL
	var store runStore = repo.NewMemoryRunRepo(0)
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		store = repo.NewRunRepo(pool)
		logger.Info("database connected")
	} else {
		logger.Info("DB_URL not set, keeping run history in memory")
	}
	observers = append(observers, repo.NewHistoryObserver(store, logger))

	// RabbitMQ: события и удалённые запросы
	var mqConn *mq.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQURL, "automator-daemon", logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running without queue", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			observers = append(observers, mq.NewEventObserver(mq.NewPublisher(mqConn, logger), logger))
		}
	}

	dispatcher := actions.DefaultDispatcher()
	r := runner.New(runner.Config{
		Dispatcher: dispatcher,
		LogDir:     cfg.LogsDir,
		Observers:  observers,
		Logger:     logger,
	})

	launcher := runner.NewLauncher(ctx, r, runner.LauncherConfig{
		Resolve: cfg.FlowPath,
		Vars:    cfg.RunVars,
		Logger:  logger,
	})

	// Триггеры
	triggers := trigger.NewManager(trigger.Config{
		StorePath:     cfg.TriggersFile(),
		WatchInterval: cfg.WatchInterval,
		Logger:        logger,
		Fire: func(ctx context.Context, f trigger.Firing) {
			_, err := launcher.Run(ctx, f.Trigger.FlowPath, runner.Options{
				Trigger: runTrigger(f.Trigger.Kind),
				Vars:    f.Vars,
			})
			if err != nil {
				telemetry.WithTriggerID(logger, f.Trigger.ID).Error("triggered run failed to start", "flow_path", f.Trigger.FlowPath, "error", err)
			}
		},
	})
	if err := triggers.Load(); err != nil {
		logger.Error("failed to load triggers", "path", cfg.TriggersFile(), "error", err)
		os.Exit(1)
	}

	// HTTP: /healthz, /metrics и API
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(api.Config{
		Runs:        store,
		Launcher:    launcher,
		Triggers:    triggers,
		Dispatcher:  dispatcher,
		FlowsDir:    cfg.FlowsDir,
		ResolveFlow: cfg.FlowPath,
		Logger:      logger,
	}).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.DaemonPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return triggers.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Graceful shutdown с таймаутом 10 секунд
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueRunsRequested,
			Handler: mq.RunRequestHandler(remoteRun(launcher, logger)),
		})
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consumer: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped with error", "error", err)
	}

	// Дожидаемся фоновых run, запущенных через API
	launcher.Wait()
	logger.Info("automator-daemon stopped")
}

// runTrigger возвращает источник запуска для вида триггера.
func runTrigger(kind domain.TriggerKind) string {
	if kind == domain.TriggerKindFolderWatch {
		return domain.TriggerFolderWatch
	}
	return domain.TriggerSchedule
}

// remoteRun выполняет запрос run.requested из очереди.
// Неизвестный или невалидный flow отклоняется без повтора.
func remoteRun(launcher *runner.Launcher, logger *slog.Logger) func(context.Context, mq.RunRequestedPayload) error {
	return func(ctx context.Context, req mq.RunRequestedPayload) error {
		logger.Info("run requested over queue", "flow", req.Flow, "requested_by", req.RequestedBy)

		_, err := launcher.Run(ctx, req.Flow, runner.Options{
			Trigger: domain.TriggerRemote,
			Vars:    req.Vars,
		})
		if errors.Is(err, config.ErrFlowNotFound) ||
			errors.Is(err, runner.ErrLoadFlow) ||
			errors.Is(err, runner.ErrInvalidFlow) {
			return fmt.Errorf("%w: %w", mq.ErrRejected, err)
		}
		return err
	}
}
