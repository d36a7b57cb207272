// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики run'ов и шагов
//   - runlog.go  — файл лога каждого run в каталоге logs/
package telemetry
