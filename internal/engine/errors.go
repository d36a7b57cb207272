package engine

import "errors"

// Ошибки раскрытия шаблонов.
var (
	// ErrUndefinedReference — выражение {{ }} ссылается на неизвестную
	// переменную или поле результата шага.
	ErrUndefinedReference = errors.New("undefined reference")
)

// Ошибки загрузки и валидации flow.
var (
	// ErrNilFlow — flow не передан.
	ErrNilFlow = errors.New("flow is nil")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrEmptyStepType — шаг не имеет типа.
	ErrEmptyStepType = errors.New("step has empty type")

	// ErrUnknownActionType — для типа шага не зарегистрирован обработчик.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrUnbalancedCondition — condition.if и condition.endif не сбалансированы.
	ErrUnbalancedCondition = errors.New("unbalanced condition block")

	// ErrUnsupportedFormat — неизвестный формат файла flow.
	ErrUnsupportedFormat = errors.New("unsupported flow format")

	// ErrInvalidFlow — файл flow не удалось разобрать.
	ErrInvalidFlow = errors.New("invalid flow document")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
