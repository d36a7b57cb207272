package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// TypeFlowDelay — тип действия задержки.
const TypeFlowDelay = "flow.delay"

// DelayAction — пауза между шагами.
//
// Поддерживает отмену через context.
//
// Параметры:
//
//	{"duration_sec": 10}   // или
//	{"duration_ms": 500}
type DelayAction struct{}

// NewDelayAction создаёт новый DelayAction.
func NewDelayAction() *DelayAction {
	return &DelayAction{}
}

// Type возвращает тип действия.
func (a *DelayAction) Type() string {
	return TypeFlowDelay
}

// Describe возвращает описание действия.
func (a *DelayAction) Describe() Spec {
	return Spec{
		Type:        TypeFlowDelay,
		Category:    "flow",
		DisplayName: "Delay",
		Description: "Pauses the flow.",
		Params: []Param{
			{Name: "duration_sec", Type: "number"},
			{Name: "duration_ms", Type: "number"},
		},
	}
}

// Execute выполняет задержку.
func (a *DelayAction) Execute(ctx context.Context, req *Request) (*domain.StepResult, error) {
	duration, err := parseDuration(req)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrActionCancelled, ctx.Err())
	case <-timer.C:
		return domain.Success(fmt.Sprintf("waited %s", duration)).
			WithData("duration_ms", duration.Milliseconds()), nil
	}
}

// parseDuration извлекает длительность из параметров.
func parseDuration(req *Request) (time.Duration, error) {
	if sec := req.Float("duration_sec", 0); sec > 0 {
		return time.Duration(sec * float64(time.Second)), nil
	}
	if ms := req.Int("duration_ms", 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidParams, TypeFlowDelay)
}
