package domain

import (
	"encoding/json"
	"fmt"
)

// Flow — сохранённая последовательность автоматизации.
//
// Flow хранится в виде JSON (или YAML) документа в каталоге flows/
// и загружается один раз на каждый запуск.
type Flow struct {
	// Name — имя flow (используется в имени файла лога).
	Name string `json:"name" yaml:"name"`

	// Description — описание назначения flow.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Actions — упорядоченный список шагов.
	Actions []Step `json:"actions" yaml:"actions"`
}

// Step — одна единица работы внутри flow.
//
// Во время выполнения run шаг не изменяется.
type Step struct {
	// ID — уникальный идентификатор шага в рамках flow.
	// Используется для ссылок на результат: {{ step_id.stdout }}.
	ID string `json:"id" yaml:"id"`

	// Type — тип шага в формате "category.action", например "file.copy".
	Type string `json:"type" yaml:"type"`

	// Name — отображаемое имя шага. Если пустое — используется Type.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Params — параметры шага. Строковые значения проходят
	// через раскрытие шаблонов перед выполнением.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Enabled — флаг активности. Отсутствие поля в файле означает true.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// ContinueOnError — не останавливать flow, если шаг завершился с ошибкой.
	ContinueOnError bool `json:"continue_on_error,omitempty" yaml:"continue_on_error,omitempty"`
}

// IsEnabled возвращает true, если шаг включён.
func (s *Step) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// DisplayName возвращает имя шага для логов.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Type
}

// Category возвращает часть типа до точки ("file" для "file.copy").
func (s *Step) Category() string {
	for i := 0; i < len(s.Type); i++ {
		if s.Type[i] == '.' {
			return s.Type[:i]
		}
	}
	return s.Type
}

// Типы шагов, которые движок обрабатывает структурно.
const (
	StepTypeIf    = "condition.if"
	StepTypeEndIf = "condition.endif"
)

// FillDefaults заполняет пустые ID шагов значением "step_<index>".
func (f *Flow) FillDefaults() {
	if f.Name == "" {
		f.Name = "unnamed_flow"
	}
	for i := range f.Actions {
		if f.Actions[i].ID == "" {
			f.Actions[i].ID = fmt.Sprintf("step_%d", i)
		}
	}
}

// Clone возвращает глубокую копию flow (через JSON).
// Используется, чтобы run не зависел от последующих правок исходника.
func (f *Flow) Clone() (*Flow, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal flow: %w", err)
	}
	var clone Flow
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}
	return &clone, nil
}

// BoolPtr возвращает указатель на значение b.
func BoolPtr(b bool) *bool {
	return &b
}
