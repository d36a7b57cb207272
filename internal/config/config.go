// Package config загружает настройки автоматизатора.
//
// Настройки читаются из <base>/config.yaml (или config.yml),
// затем перекрываются переменными окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Значения по умолчанию.
const (
	DefaultDaemonPort    = "8090"
	DefaultWatchInterval = 2 * time.Second
	DefaultLogLevel      = "INFO"
)

// ErrFlowNotFound — файл flow не найден ни по пути, ни в каталоге flows.
var ErrFlowNotFound = errors.New("flow not found")

// Config — настройки рабочего каталога.
type Config struct {
	// BaseDir — корневой каталог (AUTOMATOR_HOME).
	BaseDir string `yaml:"-"`

	// Каталоги. Относительные пути считаются от BaseDir.
	FlowsDir string `yaml:"flows_dir"`
	LogsDir  string `yaml:"logs_dir"`
	DataDir  string `yaml:"data_dir"`

	// Логирование
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Внешние сервисы. Пустые значения отключают соответствующую часть демона.
	DatabaseURL string `yaml:"database_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Демон
	DaemonPort string `yaml:"daemon_port"`
	DaemonURL  string `yaml:"daemon_url"` // адрес демона для удалённых команд CLI

	// WatchInterval — период опроса папок триггерами folder_watch.
	WatchInterval time.Duration `yaml:"watch_interval"`

	// Env — переменные, передаваемые в каждый run.
	Env map[string]string `yaml:"env"`
}

// Load загружает конфигурацию из baseDir.
// Пустой baseDir означает DefaultBaseDir().
func Load(baseDir string) (*Config, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	cfg := &Config{}
	if err := cfg.loadFile(absBase); err != nil {
		return nil, err
	}
	cfg.BaseDir = absBase

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// DefaultBaseDir возвращает AUTOMATOR_HOME, каталог исполняемого файла
// или текущий каталог.
func DefaultBaseDir() string {
	if home := os.Getenv("AUTOMATOR_HOME"); home != "" {
		return home
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// loadFile читает config.yaml или config.yml. Отсутствие файла не ошибка.
func (c *Config) loadFile(dir string) error {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_FORMAT", &c.LogFormat},
		{"DB_URL", &c.DatabaseURL},
		{"RABBITMQ_URL", &c.RabbitMQURL},
		{"DAEMON_PORT", &c.DaemonPort},
		{"AUTOMATOR_DAEMON_URL", &c.DaemonURL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	c.FlowsDir = c.resolve(c.FlowsDir, "flows")
	c.LogsDir = c.resolve(c.LogsDir, "logs")
	c.DataDir = c.resolve(c.DataDir, "data")

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DaemonPort == "" {
		c.DaemonPort = DefaultDaemonPort
	}
	if c.DaemonURL == "" {
		c.DaemonURL = "http://localhost:" + c.DaemonPort
	}
	c.DaemonURL = strings.TrimRight(c.DaemonURL, "/")
	if c.WatchInterval <= 0 {
		c.WatchInterval = DefaultWatchInterval
	}
}

func (c *Config) resolve(dir, def string) string {
	if dir == "" {
		dir = def
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.BaseDir, dir)
}

// EnsureDirs создаёт каталоги flows, logs и data.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.FlowsDir, c.LogsDir, c.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// TriggersFile возвращает путь к файлу определений триггеров.
func (c *Config) TriggersFile() string {
	return filepath.Join(c.DataDir, "triggers.json")
}

// FlowPath находит файл flow по пути или имени.
//
// Порядок поиска: путь как есть, затем <flows>/<name>,
// затем <flows>/<name> с расширениями .json, .yaml, .yml.
func (c *Config) FlowPath(nameOrPath string) (string, error) {
	if nameOrPath == "" {
		return "", fmt.Errorf("%w: empty name", ErrFlowNotFound)
	}

	candidates := []string{nameOrPath}
	if !filepath.IsAbs(nameOrPath) {
		base := filepath.Join(c.FlowsDir, nameOrPath)
		candidates = append(candidates, base, base+".json", base+".yaml", base+".yml")
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFlowNotFound, nameOrPath)
}

// RunVars возвращает переменные run: Env из конфигурации,
// перекрытые переданными значениями.
func (c *Config) RunVars(vars map[string]string) map[string]string {
	merged := make(map[string]string, len(c.Env)+len(vars))
	for k, v := range c.Env {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}
