// Package runner выполняет flow: последовательно проходит шаги,
// обрабатывает блоки condition.if / condition.endif, пишет лог run
// и уведомляет наблюдателей.
package runner
