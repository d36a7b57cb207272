package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// publishTimeout — предел на публикацию одного события.
const publishTimeout = 5 * time.Second

// EventPublisher — то, что умеет публиковать сообщения.
// *Publisher реализует этот интерфейс.
type EventPublisher interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// EventObserver публикует события run и шагов в automator.events.
// Ошибки публикации логируются и не влияют на выполнение flow.
type EventObserver struct {
	pub    EventPublisher
	logger *slog.Logger
}

// NewEventObserver создаёт EventObserver.
func NewEventObserver(pub EventPublisher, logger *slog.Logger) *EventObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventObserver{pub: pub, logger: logger}
}

// RunStarted публикует run.started.
func (o *EventObserver) RunStarted(ctx context.Context, run *domain.Run) {
	o.publish(ctx, RoutingKeyRunStarted, NewMessage(MessageTypeRunStarted, NewRunEventPayload(run)))
}

// StepStarted ничего не публикует.
func (o *EventObserver) StepStarted(context.Context, *domain.Run, *domain.Step, int) {}

// StepCompleted публикует step.completed.
func (o *EventObserver) StepCompleted(ctx context.Context, run *domain.Run, rec domain.StepRecord) {
	o.publish(ctx, RoutingKeyStepCompleted, NewMessage(MessageTypeStepCompleted, NewStepEventPayload(run.ID, rec)))
}

// RunFinished публикует run.finished.
func (o *EventObserver) RunFinished(ctx context.Context, run *domain.Run) {
	o.publish(ctx, RoutingKeyRunFinished, NewMessage(MessageTypeRunFinished, NewRunEventPayload(run)))
}

func (o *EventObserver) publish(ctx context.Context, key RoutingKey, msg *Message) {
	// События финала должны уйти и после отмены run
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := o.pub.Publish(ctx, ExchangeEvents, key, msg); err != nil {
		o.logger.Warn("failed to publish event", "routing_key", key, "type", msg.Type, "error", err)
	}
}
