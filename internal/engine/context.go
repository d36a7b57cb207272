package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// placeholderRe находит выражения вида {{ expr }}.
var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Context — состояние одного run: переменные и результаты шагов.
//
// Доступ к данным в параметрах шагов:
//   - {{ var_name }}            — переменная
//   - {{ now.date }}            — встроенная переменная
//   - {{ step_id.field }}       — поле результата шага
//   - {{ step_id.body.items.0 }} — путь внутри поля (gjson)
//
// Context создаётся на каждый run и не разделяется между run'ами.
type Context struct {
	mu    sync.RWMutex
	vars  map[string]any
	steps map[string]map[string]any
}

// NewContext создаёт контекст со встроенными переменными на текущий момент.
func NewContext() *Context {
	return NewContextAt(time.Now())
}

// NewContextAt создаёт контекст со встроенными переменными на момент now.
func NewContextAt(now time.Time) *Context {
	c := &Context{
		vars:  make(map[string]any),
		steps: make(map[string]map[string]any),
	}
	for name, value := range BuiltinVars(now) {
		c.vars[name] = value
	}
	return c
}

// BuiltinVars возвращает встроенные переменные now.* для момента now.
func BuiltinVars(now time.Time) map[string]string {
	return map[string]string{
		"now.date":      now.Format("2006-01-02"),
		"now.time":      now.Format("15:04:05"),
		"now.datetime":  now.Format("2006-01-02 15:04:05"),
		"now.year":      now.Format("2006"),
		"now.month":     now.Format("01"),
		"now.day":       now.Format("02"),
		"now.hour":      now.Format("15"),
		"now.minute":    now.Format("04"),
		"now.second":    now.Format("05"),
		"now.timestamp": now.Format("20060102_150405"),
	}
}

// Set устанавливает переменную. Существующее значение перезаписывается.
func (c *Context) Set(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[name] = value
}

// Get возвращает значение переменной.
// Возвращает ErrUndefinedReference, если переменная не задана.
func (c *Context) Get(name string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedReference, name)
	}
	return value, nil
}

// Vars возвращает копию всех переменных.
func (c *Context) Vars() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.vars)
}

// RecordStepResult сохраняет поля результата шага.
// Повторная запись для того же шага заменяет предыдущую.
func (c *Context) RecordStepResult(stepID string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps[stepID] = maps.Clone(fields)
}

// StepResult возвращает копию полей результата шага.
func (c *Context) StepResult(stepID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fields, ok := c.steps[stepID]
	if !ok {
		return nil, false
	}
	return maps.Clone(fields), true
}

// Resolve вычисляет одно выражение (без скобок {{ }}).
//
// Порядок поиска:
//  1. Переменная с точным именем (включая имена с точкой, например now.date)
//  2. Поле результата шага: step_id.field
//  3. Путь внутри поля шага или переменной: step_id.field.sub.0
func (c *Context) Resolve(expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrUndefinedReference)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if value, ok := c.vars[expr]; ok {
		return value, nil
	}

	head, rest, found := strings.Cut(expr, ".")
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedReference, expr)
	}

	if fields, ok := c.steps[head]; ok {
		if value, ok := fields[rest]; ok {
			return value, nil
		}
		field, path, deep := strings.Cut(rest, ".")
		if deep {
			if value, ok := fields[field]; ok {
				if v, ok := lookupPath(value, path); ok {
					return v, nil
				}
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUndefinedReference, expr)
	}

	if value, ok := c.vars[head]; ok {
		if v, ok := lookupPath(value, rest); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUndefinedReference, expr)
}

// Expand заменяет все выражения {{ expr }} в строке их значениями.
//
// Первое нераскрываемое выражение прерывает раскрытие и возвращается
// как ошибка, обёртывающая ErrUndefinedReference.
func (c *Context) Expand(template string) (string, error) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}

	var firstErr error
	result := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		expr := placeholderRe.FindStringSubmatch(match)[1]
		value, err := c.Resolve(expr)
		if err != nil {
			firstErr = err
			return match
		}
		return Stringify(value)
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// ExpandValue раскрывает шаблоны в произвольном значении.
// Рекурсивно обрабатывает map и slice; числа и bool возвращаются как есть.
func (c *Context) ExpandValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil

	case string:
		return c.Expand(v)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			expanded, err := c.ExpandValue(val)
			if err != nil {
				return nil, err
			}
			result[key] = expanded
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			expanded, err := c.ExpandValue(val)
			if err != nil {
				return nil, err
			}
			result[i] = expanded
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			expanded, err := c.Expand(val)
			if err != nil {
				return nil, err
			}
			result[key] = expanded
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			expanded, err := c.Expand(val)
			if err != nil {
				return nil, err
			}
			result[i] = expanded
		}
		return result, nil

	default:
		return value, nil
	}
}

// ExpandParams раскрывает шаблоны во всех параметрах шага.
func (c *Context) ExpandParams(params map[string]any) (map[string]any, error) {
	if params == nil {
		return make(map[string]any), nil
	}

	expanded, err := c.ExpandValue(params)
	if err != nil {
		return nil, err
	}
	return expanded.(map[string]any), nil
}

// Stringify приводит значение к строке для подстановки в шаблон.
// Map и slice сериализуются в JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any, []string, map[string]string:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// lookupPath ищет gjson-путь внутри значения.
// Строка, содержащая валидный JSON, разбирается как документ.
func lookupPath(value any, path string) (any, bool) {
	var doc []byte
	switch v := value.(type) {
	case string:
		if !gjson.Valid(v) {
			return nil, false
		}
		doc = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		doc = b
	}

	res := gjson.GetBytes(doc, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}
