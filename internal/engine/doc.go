// Package engine содержит модель выполнения flow, не зависящую от действий.
//
// Включает:
//   - context.go — переменные run, результаты шагов и раскрытие {{ expr }}
//   - parser.go  — загрузка/сохранение flow (JSON, YAML) и валидация
//   - errors.go  — ошибки раскрытия и валидации
//
// Порядок выполнения шагов и обработка condition.if/endif находятся
// в пакете runner.
package engine
