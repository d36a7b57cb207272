// Package api содержит HTTP API демона.
//
// Структура:
//   - handler.go         — Handler с зависимостями (история runs, launcher, триггеры)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - flow_handler.go    — обработчики для /flows и /actions
//   - run_handler.go     — обработчики для /runs
//   - trigger_handler.go — обработчики для /triggers
package api
