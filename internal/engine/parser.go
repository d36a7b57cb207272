package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Format — формат файла flow.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TypeChecker сообщает, зарегистрирован ли тип шага.
// Реализуется диспетчером действий.
type TypeChecker interface {
	Has(stepType string) bool
}

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Parse разбирает документ flow и заполняет значения по умолчанию.
func Parse(data []byte, format Format) (*domain.Flow, error) {
	var flow domain.Flow

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &flow); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &flow); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	flow.FillDefaults()
	return &flow, nil
}

// LoadFlow читает flow из файла (.json, .yaml, .yml).
func LoadFlow(path string) (*domain.Flow, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow %s: %w", path, err)
	}

	flow, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse flow %s: %w", path, err)
	}
	return flow, nil
}

// SaveFlow сохраняет flow в файл.
// JSON пишется с отступами, не-ASCII символы не экранируются.
func SaveFlow(path string, flow *domain.Flow) error {
	if flow == nil {
		return ErrNilFlow
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(flow)
		if err != nil {
			return fmt.Errorf("marshal flow: %w", err)
		}
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(flow); err != nil {
			return fmt.Errorf("marshal flow: %w", err)
		}
		data = buf.Bytes()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create flow dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write flow %s: %w", path, err)
	}
	return nil
}

// Validate выполняет полную валидацию flow.
//
// Проверяет:
// - Наличие ID и типа у каждого шага
// - Уникальность ID шагов
// - Известность типов (если передан known)
// - Баланс condition.if / condition.endif
//
// Flow без шагов допустим: его выполнение ничего не делает.
func Validate(flow *domain.Flow, known TypeChecker) error {
	if flow == nil {
		return ErrNilFlow
	}

	stepIDs := make(map[string]bool, len(flow.Actions))
	for i := range flow.Actions {
		if err := ValidateStep(&flow.Actions[i], stepIDs, known); err != nil {
			return err
		}
	}

	return validateConditions(flow.Actions)
}

// ValidateStep валидирует один шаг.
// stepIDs — уже встреченные ID шагов (для проверки уникальности).
func ValidateStep(step *domain.Step, stepIDs map[string]bool, known TypeChecker) error {
	if step.ID == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}

	if stepIDs[step.ID] {
		return NewValidationError(step.ID, "id",
			fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateStepID)
	}
	stepIDs[step.ID] = true

	if step.Type == "" {
		return NewValidationError(step.ID, "type", "step has empty type", ErrEmptyStepType)
	}

	if known != nil && !known.Has(step.Type) {
		return NewValidationError(step.ID, "type",
			fmt.Sprintf("unknown action type: %s", step.Type), ErrUnknownActionType)
	}

	return nil
}

// validateConditions проверяет вложенность блоков if/endif.
// Выключенные шаги учитываются: движок обрабатывает их структурно.
func validateConditions(steps []domain.Step) error {
	var open []string

	for i := range steps {
		step := &steps[i]
		switch step.Type {
		case domain.StepTypeIf:
			open = append(open, step.ID)
		case domain.StepTypeEndIf:
			if len(open) == 0 {
				return NewValidationError(step.ID, "type",
					"condition.endif without matching condition.if", ErrUnbalancedCondition)
			}
			open = open[:len(open)-1]
		}
	}

	if len(open) > 0 {
		last := open[len(open)-1]
		return NewValidationError(last, "type",
			"condition.if without matching condition.endif", ErrUnbalancedCondition)
	}
	return nil
}
