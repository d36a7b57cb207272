package runner

import "errors"

// Ошибки runner.
var (
	// ErrNilFlow — flow не передан.
	ErrNilFlow = errors.New("flow is nil")

	// ErrLoadFlow — не удалось прочитать файл flow.
	ErrLoadFlow = errors.New("load flow")

	// ErrInvalidFlow — flow не прошёл структурную валидацию.
	ErrInvalidFlow = errors.New("invalid flow")
)
