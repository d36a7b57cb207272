package runner

import (
	"context"
	"log/slog"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Observer получает события выполнения run.
//
// Вызовы синхронные и идут из горутины run, поэтому реализация
// не должна блокироваться надолго.
type Observer interface {
	RunStarted(ctx context.Context, run *domain.Run)
	StepStarted(ctx context.Context, run *domain.Run, step *domain.Step, index int)
	StepCompleted(ctx context.Context, run *domain.Run, rec domain.StepRecord)
	RunFinished(ctx context.Context, run *domain.Run)
}

// observers рассылает события всем наблюдателям.
// Паника наблюдателя не прерывает run.
type observers struct {
	list   []Observer
	logger *slog.Logger
}

func (o *observers) each(event string, fn func(Observer)) {
	for _, obs := range o.list {
		func() {
			defer func() {
				if p := recover(); p != nil {
					o.logger.Error("observer panic", "event", event, "panic", p)
				}
			}()
			fn(obs)
		}()
	}
}

func (o *observers) RunStarted(ctx context.Context, run *domain.Run) {
	o.each("run_started", func(obs Observer) { obs.RunStarted(ctx, run) })
}

func (o *observers) StepStarted(ctx context.Context, run *domain.Run, step *domain.Step, index int) {
	o.each("step_started", func(obs Observer) { obs.StepStarted(ctx, run, step, index) })
}

func (o *observers) StepCompleted(ctx context.Context, run *domain.Run, rec domain.StepRecord) {
	o.each("step_completed", func(obs Observer) { obs.StepCompleted(ctx, run, rec) })
}

func (o *observers) RunFinished(ctx context.Context, run *domain.Run) {
	o.each("run_finished", func(obs Observer) { obs.RunFinished(ctx, run) })
}

// ObserverFuncs — наблюдатель из отдельных функций.
// Незаданные функции пропускаются.
type ObserverFuncs struct {
	OnRunStarted    func(ctx context.Context, run *domain.Run)
	OnStepStarted   func(ctx context.Context, run *domain.Run, step *domain.Step, index int)
	OnStepCompleted func(ctx context.Context, run *domain.Run, rec domain.StepRecord)
	OnRunFinished   func(ctx context.Context, run *domain.Run)
}

func (f ObserverFuncs) RunStarted(ctx context.Context, run *domain.Run) {
	if f.OnRunStarted != nil {
		f.OnRunStarted(ctx, run)
	}
}

func (f ObserverFuncs) StepStarted(ctx context.Context, run *domain.Run, step *domain.Step, index int) {
	if f.OnStepStarted != nil {
		f.OnStepStarted(ctx, run, step, index)
	}
}

func (f ObserverFuncs) StepCompleted(ctx context.Context, run *domain.Run, rec domain.StepRecord) {
	if f.OnStepCompleted != nil {
		f.OnStepCompleted(ctx, run, rec)
	}
}

func (f ObserverFuncs) RunFinished(ctx context.Context, run *domain.Run) {
	if f.OnRunFinished != nil {
		f.OnRunFinished(ctx, run)
	}
}
