package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// RunWriter — запись истории run.
type RunWriter interface {
	Create(ctx context.Context, run *domain.Run) error
	SaveStep(ctx context.Context, runID uuid.UUID, rec domain.StepRecord) error
	Finish(ctx context.Context, run *domain.Run) error
}

// RunReader — чтение истории run.
type RunReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter RunFilter) ([]domain.Run, error)
}

// writeTimeout — ограничение времени одной записи истории.
const writeTimeout = 5 * time.Second

// HistoryObserver сохраняет события run в RunWriter.
//
// Ошибки записи логируются и не влияют на выполнение flow.
// Запись идёт и после отмены контекста run, чтобы CANCELLED
// попал в историю.
type HistoryObserver struct {
	store  RunWriter
	logger *slog.Logger
}

// NewHistoryObserver создаёт новый HistoryObserver.
func NewHistoryObserver(store RunWriter, logger *slog.Logger) *HistoryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryObserver{store: store, logger: logger}
}

func (h *HistoryObserver) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

// RunStarted создаёт запись run.
func (h *HistoryObserver) RunStarted(ctx context.Context, run *domain.Run) {
	ctx, cancel := h.writeCtx(ctx)
	defer cancel()

	if err := h.store.Create(ctx, run); err != nil {
		h.logger.Warn("failed to store run", "run_id", run.ID, "error", err)
	}
}

// StepStarted не сохраняется: шаг пишется по завершении.
func (h *HistoryObserver) StepStarted(context.Context, *domain.Run, *domain.Step, int) {}

// StepCompleted сохраняет запись шага.
func (h *HistoryObserver) StepCompleted(ctx context.Context, run *domain.Run, rec domain.StepRecord) {
	ctx, cancel := h.writeCtx(ctx)
	defer cancel()

	if err := h.store.SaveStep(ctx, run.ID, rec); err != nil {
		h.logger.Warn("failed to store step", "run_id", run.ID, "step_id", rec.StepID, "error", err)
	}
}

// RunFinished сохраняет итоговый статус run.
func (h *HistoryObserver) RunFinished(ctx context.Context, run *domain.Run) {
	ctx, cancel := h.writeCtx(ctx)
	defer cancel()

	if err := h.store.Finish(ctx, run); err != nil {
		h.logger.Warn("failed to finish run", "run_id", run.ID, "error", err)
	}
}
