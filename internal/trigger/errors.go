package trigger

import "errors"

// Ошибки триггеров.
var (
	// ErrTriggerNotFound — триггер с указанным ID не найден.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrTriggerExists — триггер с таким ID уже существует.
	ErrTriggerExists = errors.New("trigger already exists")

	// ErrInvalidTrigger — определение триггера некорректно.
	ErrInvalidTrigger = errors.New("invalid trigger")
)
