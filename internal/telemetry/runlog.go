package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Форматы времени лога run.
const (
	runLogFileTime = "20060102_150405"
	runLogLineTime = "2006-01-02 15:04:05"
)

// RunLog — текстовый лог одного run.
//
// Каждая строка имеет вид "[YYYY-MM-DD HH:MM:SS] сообщение".
// Методы безопасны для nil: run без каталога логов ничего не пишет.
type RunLog struct {
	mu   sync.Mutex
	file *os.File
	path string
	now  func() time.Time
}

// maxRunLogSuffix — сколько суффиксов пробуется для одинаковых имён.
const maxRunLogSuffix = 1000

// OpenRunLog создаёт файл <dir>/<YYYYMMDD_HHMMSS>_<имя flow>.log.
// Если run того же flow начался в ту же секунду, к имени
// добавляется суффикс _2, _3 и т.д.
func OpenRunLog(dir, flowName string, started time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", started.Format(runLogFileTime), SafeFileName(flowName))

	for n := 1; n <= maxRunLogSuffix; n++ {
		name := base + ".log"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.log", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		return &RunLog{file: f, path: path, now: time.Now}, nil
	}
	return nil, fmt.Errorf("open run log: too many logs named %s", base)
}

// Printf пишет строку с отметкой времени.
func (l *RunLog) Printf(format string, args ...any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s\n", l.now().Format(runLogLineTime), msg)
}

// Path возвращает путь к файлу лога.
func (l *RunLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close закрывает файл.
func (l *RunLog) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SafeFileName заменяет символы, недопустимые в имени файла, на "_".
// Буквы, цифры, пробел, "-" и "_" сохраняются.
func SafeFileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == ' ' {
			return r
		}
		return '_'
	}, name)

	safe = strings.TrimSpace(safe)
	if safe == "" {
		return "unnamed_flow"
	}
	return safe
}
