// Package actions содержит обработчики типов шагов и диспетчер.
//
// # Интерфейс Action
//
//	type Action interface {
//	    Type() string
//	    Execute(ctx context.Context, req *Request) (*domain.StepResult, error)
//	}
//
// Request содержит уже раскрытые параметры шага и контекст run
// (engine.Context), через который действие может устанавливать переменные.
//
// Ошибка из Execute означает FAILED с её текстом. Результат со статусом
// FAILED — логическая неудача (ненулевой код возврата, HTTP >= 400).
//
// # Dispatcher
//
//	d := actions.DefaultDispatcher()
//	action, err := d.Resolve("file.copy")
//	if errors.Is(err, actions.ErrUnknownActionType) {
//	    // тип не зарегистрирован
//	}
//
// # Категории
//
//   - file.*      — папки, копирование, перемещение, текстовые файлы (file.go)
//   - command.run — внешние команды (command.go)
//   - variable.*  — переменные, строки, дата, вычисления (variable.go)
//   - condition.* — if/endif (condition.go)
//   - trigger.*   — маркеры триггеров (trigger.go)
//   - http.request, flow.delay, script.eval
package actions
