// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений из очередей
//   - events.go     — публикация событий выполнения flow
//
// Типы сообщений:
//   - run.requested   — удалённый запрос на запуск flow
//   - run.started     — run начался
//   - run.finished    — run завершился
//   - step.completed  — шаг завершён
//
// Exchanges:
//   - automator.runs    — запросы на запуск
//   - automator.events  — события выполнения (topic)
//   - automator.dlq     — dead letter queue
package mq
