package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

// Launcher запускает flow по имени или пути к файлу.
// Используется HTTP API, очередью запросов и триггерами.
type Launcher struct {
	runner  *Runner
	resolve func(nameOrPath string) (string, error)
	vars    func(map[string]string) map[string]string
	ctx     context.Context
	logger  *slog.Logger

	wg sync.WaitGroup
}

// LauncherConfig — конфигурация Launcher.
type LauncherConfig struct {
	// Resolve находит файл flow (обычно config.Config.FlowPath).
	Resolve func(nameOrPath string) (string, error)

	// Vars дополняет переменные run (обычно config.Config.RunVars).
	Vars func(map[string]string) map[string]string

	// Logger
	Logger *slog.Logger
}

// NewLauncher создаёт Launcher. Фоновые run отменяются вместе с ctx.
func NewLauncher(ctx context.Context, r *Runner, cfg LauncherConfig) *Launcher {
	resolve := cfg.Resolve
	if resolve == nil {
		resolve = func(p string) (string, error) { return p, nil }
	}
	vars := cfg.Vars
	if vars == nil {
		vars = func(v map[string]string) map[string]string { return v }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Launcher{
		runner:  r,
		resolve: resolve,
		vars:    vars,
		ctx:     ctx,
		logger:  logger,
	}
}

// prepare находит и загружает flow.
// Загруженный flow передаётся в run, файл повторно не читается.
func (l *Launcher) prepare(flow string, opts Options) (*domain.Flow, Options, error) {
	path, err := l.resolve(flow)
	if err != nil {
		return nil, opts, err
	}

	loaded, err := engine.LoadFlow(path)
	if err != nil {
		return nil, opts, fmt.Errorf("%w: %w", ErrLoadFlow, err)
	}
	if err := engine.Validate(loaded, nil); err != nil {
		return nil, opts, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	opts.FlowPath = path
	opts.Vars = l.vars(opts.Vars)
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	return loaded, opts, nil
}

// Start проверяет flow и запускает его в фоне.
// Возвращает ID будущего run.
func (l *Launcher) Start(flow string, opts Options) (uuid.UUID, error) {
	loaded, opts, err := l.prepare(flow, opts)
	if err != nil {
		return uuid.Nil, err
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, err := l.runner.Run(l.ctx, loaded, opts); err != nil {
			l.logger.Error("background run failed to start", "flow_path", opts.FlowPath, "run_id", opts.RunID, "error", err)
		}
	}()

	return opts.RunID, nil
}

// Run выполняет flow и ждёт завершения.
func (l *Launcher) Run(ctx context.Context, flow string, opts Options) (*domain.Run, error) {
	loaded, opts, err := l.prepare(flow, opts)
	if err != nil {
		return nil, err
	}
	return l.runner.Run(ctx, loaded, opts)
}

// Wait ждёт завершения фоновых run.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
