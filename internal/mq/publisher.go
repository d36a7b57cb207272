package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested  MessageType = "run.requested"
	MessageTypeRunStarted    MessageType = "run.started"
	MessageTypeRunFinished   MessageType = "run.finished"
	MessageTypeStepCompleted MessageType = "step.completed"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// RunRequestedPayload — запрос на запуск flow.
type RunRequestedPayload struct {
	// Flow — имя flow в каталоге flows или путь к файлу.
	Flow string `json:"flow"`

	// Vars — начальные переменные run.
	Vars map[string]string `json:"vars,omitempty"`

	// RequestedBy — источник запроса (для логов).
	RequestedBy string `json:"requested_by,omitempty"`
}

// RunEventPayload — событие начала или завершения run.
type RunEventPayload struct {
	RunID      uuid.UUID        `json:"run_id"`
	FlowName   string           `json:"flow_name"`
	FlowPath   string           `json:"flow_path,omitempty"`
	Status     domain.RunStatus `json:"status"`
	Trigger    string           `json:"trigger"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Steps      int              `json:"steps"`
}

// NewRunEventPayload собирает payload из run.
func NewRunEventPayload(run *domain.Run) RunEventPayload {
	return RunEventPayload{
		RunID:      run.ID,
		FlowName:   run.FlowName,
		FlowPath:   run.FlowPath,
		Status:     run.Status,
		Trigger:    run.Trigger,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Steps:      len(run.Steps),
	}
}

// StepEventPayload — событие завершения шага.
type StepEventPayload struct {
	RunID      uuid.UUID         `json:"run_id"`
	Index      int               `json:"index"`
	StepID     string            `json:"step_id"`
	Type       string            `json:"type"`
	Status     domain.StepStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	ExitCode   int               `json:"exit_code"`
	DurationMs int64             `json:"duration_ms"`
}

// NewStepEventPayload собирает payload из записи шага.
func NewStepEventPayload(runID uuid.UUID, rec domain.StepRecord) StepEventPayload {
	p := StepEventPayload{
		RunID:      runID,
		Index:      rec.Index,
		StepID:     rec.StepID,
		Type:       rec.Type,
		Status:     domain.StepStatusPending,
		DurationMs: rec.Duration.Milliseconds(),
	}
	if rec.Result != nil {
		p.Status = rec.Result.Status
		p.Error = rec.Result.Error
		p.ExitCode = rec.Result.ExitCode
	}
	return p
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishRunRequested публикует запрос на запуск flow.
// Потребитель: демон (очередь runs.requested).
func (p *Publisher) PublishRunRequested(ctx context.Context, payload RunRequestedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, NewMessage(MessageTypeRunRequested, payload))
}
