package api

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/repo"
	"github.com/shaiso/LocalAutomator/internal/runner"
	"github.com/shaiso/LocalAutomator/internal/trigger"
)

// RunLauncher запускает flow в фоне.
// *runner.Launcher реализует этот интерфейс.
type RunLauncher interface {
	Start(flow string, opts runner.Options) (uuid.UUID, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs        repo.RunReader
	launcher    RunLauncher
	triggers    *trigger.Manager
	dispatcher  *actions.Dispatcher
	flowsDir    string
	resolveFlow func(nameOrPath string) (string, error)
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runs        repo.RunReader
	Launcher    RunLauncher
	Triggers    *trigger.Manager
	Dispatcher  *actions.Dispatcher
	FlowsDir    string
	ResolveFlow func(nameOrPath string) (string, error)
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = actions.DefaultDispatcher()
	}
	resolve := cfg.ResolveFlow
	if resolve == nil {
		resolve = func(p string) (string, error) { return p, nil }
	}

	return &Handler{
		runs:        cfg.Runs,
		launcher:    cfg.Launcher,
		triggers:    cfg.Triggers,
		dispatcher:  dispatcher,
		flowsDir:    cfg.FlowsDir,
		resolveFlow: resolve,
		logger:      logger,
	}
}
