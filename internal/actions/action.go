package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

// Ошибки действий.
var (
	// ErrUnknownActionType — тип действия не найден в диспетчере.
	ErrUnknownActionType = engine.ErrUnknownActionType

	// ErrInvalidParams — невалидные параметры действия.
	ErrInvalidParams = errors.New("invalid action params")

	// ErrActionCancelled — выполнение действия отменено.
	ErrActionCancelled = errors.New("action execution cancelled")

	// ErrSameFile — источник и цель копирования совпадают.
	ErrSameFile = errors.New("source and target are the same file")
)

// Action — обработчик одного типа шага.
//
// Каждый тип ("file.copy", "command.run", ...) реализует этот интерфейс.
// Возврат ошибки означает FAILED с текстом ошибки; результат со статусом
// FAILED — логическая неудача (например, ненулевой код возврата).
type Action interface {
	// Type возвращает тип действия в формате "category.action".
	Type() string

	// Execute выполняет действие.
	// Действие должно проверять ctx.Done() для долгих операций.
	Execute(ctx context.Context, req *Request) (*domain.StepResult, error)
}

// Describer — действие, которое может описать свои параметры.
type Describer interface {
	Describe() Spec
}

// Spec — описание действия для CLI и API.
type Spec struct {
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// Param — описание одного параметра действия.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Default     any      `json:"default,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Options     []string `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Request — входные данные для выполнения действия.
type Request struct {
	// StepID — идентификатор шага.
	StepID string

	// Params — параметры шага (уже раскрытые через engine.Context).
	Params map[string]any

	// Vars — контекст run. Действия могут читать и устанавливать переменные.
	Vars *engine.Context

	// Logger — логгер с run_id и step_id.
	Logger *slog.Logger
}

// NewRequest создаёт новый Request.
func NewRequest(stepID string, params map[string]any, vars *engine.Context) *Request {
	if params == nil {
		params = make(map[string]any)
	}
	if vars == nil {
		vars = engine.NewContext()
	}
	return &Request{
		StepID: stepID,
		Params: params,
		Vars:   vars,
		Logger: slog.Default(),
	}
}

// String возвращает строковый параметр (обрезанный по краям) или def.
// Нестроковые значения приводятся к строке.
func (r *Request) String(key, def string) string {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(engine.Stringify(v))
	if s == "" {
		return def
	}
	return s
}

// Raw возвращает строковый параметр без обрезки пробелов.
func (r *Request) Raw(key string) string {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return ""
	}
	return engine.Stringify(v)
}

// Int возвращает целочисленный параметр или def.
// Принимает числа JSON/YAML и строки после раскрытия шаблонов.
func (r *Request) Int(key string, def int) int {
	v, ok := r.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return def
}

// Float возвращает вещественный параметр или def.
func (r *Request) Float(key string, def float64) float64 {
	v, ok := r.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool возвращает булев параметр или def.
// Строки "true/1/yes" и "false/0/no" распознаются без учёта регистра.
func (r *Request) Bool(key string, def bool) bool {
	v, ok := r.Params[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	case int:
		return b != 0
	case float64:
		return b != 0
	}
	return def
}

// MapString возвращает map[string]string из параметра.
func (r *Request) MapString(key string) map[string]string {
	v, ok := r.Params[key]
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		result := make(map[string]string, len(m))
		for k, val := range m {
			result[k] = engine.Stringify(val)
		}
		return result
	}
	return nil
}

// funcAction — действие, заданное описанием и функцией.
type funcAction struct {
	spec Spec
	fn   func(ctx context.Context, req *Request) (*domain.StepResult, error)
}

// newFuncAction создаёт действие из функции.
func newFuncAction(spec Spec, fn func(ctx context.Context, req *Request) (*domain.StepResult, error)) *funcAction {
	return &funcAction{spec: spec, fn: fn}
}

// Type возвращает тип действия.
func (a *funcAction) Type() string { return a.spec.Type }

// Describe возвращает описание действия.
func (a *funcAction) Describe() Spec { return a.spec }

// Execute выполняет функцию действия.
func (a *funcAction) Execute(ctx context.Context, req *Request) (*domain.StepResult, error) {
	return a.fn(ctx, req)
}

// requireParam возвращает ErrInvalidParams, если строковый параметр пуст.
func requireParam(actionType, name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s: %s is required", ErrInvalidParams, actionType, name)
	}
	return nil
}
