package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// defaultMemoryCapacity — сколько run хранит MemoryRunRepo.
const defaultMemoryCapacity = 200

// MemoryRunRepo — история последних run в памяти.
// Используется демоном, когда БД не настроена.
type MemoryRunRepo struct {
	mu       sync.RWMutex
	capacity int
	runs     map[uuid.UUID]*domain.Run
	order    []uuid.UUID
}

// NewMemoryRunRepo создаёт хранилище на capacity run (default: 200).
func NewMemoryRunRepo(capacity int) *MemoryRunRepo {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRunRepo{
		capacity: capacity,
		runs:     make(map[uuid.UUID]*domain.Run),
	}
}

// Create запоминает run. Самые старые run вытесняются.
func (r *MemoryRunRepo) Create(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyRun(run)
	stored.Steps = nil
	r.runs[run.ID] = stored
	r.order = append(r.order, run.ID)

	for len(r.order) > r.capacity {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// SaveStep добавляет или заменяет запись шага.
func (r *MemoryRunRepo) SaveStep(_ context.Context, runID uuid.UUID, rec domain.StepRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	for i := range run.Steps {
		if run.Steps[i].Index == rec.Index {
			run.Steps[i] = rec
			return nil
		}
	}
	run.Steps = append(run.Steps, rec)
	return nil
}

// Finish сохраняет итоговый статус run.
func (r *MemoryRunRepo) Finish(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.runs[run.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = run.Status
	stored.FinishedAt = run.FinishedAt
	stored.Error = run.Error
	return nil
}

// GetByID возвращает копию run.
func (r *MemoryRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRun(run), nil
}

// List возвращает run без шагов, новые первыми.
func (r *MemoryRunRepo) List(_ context.Context, filter RunFilter) ([]domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var runs []domain.Run
	for _, run := range r.runs {
		if filter.FlowName != "" && run.FlowName != filter.FlowName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		item := *run
		item.Steps = nil
		runs = append(runs, item)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if filter.Offset >= len(runs) {
		return nil, nil
	}
	runs = runs[filter.Offset:]
	if limit := filter.limit(); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// copyRun копирует run вместе со срезом шагов.
func copyRun(run *domain.Run) *domain.Run {
	c := *run
	c.Steps = append([]domain.StepRecord(nil), run.Steps...)
	return &c
}
