package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/config"
	"github.com/shaiso/LocalAutomator/internal/telemetry"
)

// Env — общее окружение команд: значения глобальных флагов
// и лениво загруженная конфигурация.
type Env struct {
	// Home — базовый каталог (flows/, logs/, data/). Пустой — config.DefaultBaseDir.
	Home string

	// JSON — вывод в формате JSON.
	JSON bool

	// APIURL — адрес демона. Пустой — из конфигурации.
	APIURL string

	// LogLevel перекрывает уровень логирования из конфигурации.
	LogLevel string

	Stdout io.Writer
	Stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// NewEnv создаёт окружение с выводом в stdout/stderr.
func NewEnv() *Env {
	return &Env{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Config загружает конфигурацию один раз.
func (e *Env) Config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}

	home := e.Home
	if home == "" {
		home = config.DefaultBaseDir()
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	e.cfg = cfg
	return cfg, nil
}

// Logger возвращает логгер CLI (текстовый формат в stderr).
func (e *Env) Logger() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}

	level := e.LogLevel
	format := "text"
	if e.cfg != nil {
		if level == "" {
			level = e.cfg.LogLevel
		}
		if e.cfg.LogFormat != "" {
			format = e.cfg.LogFormat
		}
	}

	e.logger = telemetry.SetupLogger(e.Stderr, level, format)
	return e.logger
}

// Output создаёт Output с учётом флага --json.
func (e *Env) Output() *Output {
	return NewOutputTo(e.Stdout, e.Stderr, e.JSON)
}

// Client создаёт HTTP-клиент демона.
func (e *Env) Client() (*Client, error) {
	if e.APIURL != "" {
		return NewClient(e.APIURL), nil
	}

	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.DaemonURL), nil
}

// Dispatcher возвращает каталог действий.
func (e *Env) Dispatcher() *actions.Dispatcher {
	return actions.DefaultDispatcher()
}
