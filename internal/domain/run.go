package domain

import (
	"time"

	"github.com/google/uuid"
)

// Способы запуска run.
const (
	TriggerManual      = "manual"
	TriggerSchedule    = "schedule"
	TriggerFolderWatch = "folder_watch"
	TriggerRemote      = "remote"
)

// Run — экземпляр выполнения flow.
//
// Run создаётся когда:
// - Пользователь запускает flow вручную (через CLI)
// - Сработал триггер (расписание или наблюдение за папкой)
// - Запуск запрошен удалённо (HTTP API или очередь)
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// FlowName — имя выполняемого flow.
	FlowName string `json:"flow_name"`

	// FlowPath — путь к файлу flow (пустой для flow, переданного в памяти).
	FlowPath string `json:"flow_path,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Trigger — источник запуска: manual, schedule, folder_watch, remote.
	Trigger string `json:"trigger"`

	// Vars — начальные переменные, переданные при запуске.
	Vars map[string]string `json:"vars,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, пока run выполняется.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// LogPath — путь к файлу лога run.
	LogPath string `json:"log_path,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED или CANCELLED.
	Error string `json:"error,omitempty"`

	// Steps — записи по каждому шагу flow в порядке файла.
	Steps []StepRecord `json:"steps"`
}

// StepRecord — запись о выполнении шага в рамках run.
type StepRecord struct {
	// Index — позиция шага в flow (с нуля).
	Index int `json:"index"`

	// StepID — идентификатор шага.
	StepID string `json:"step_id"`

	// Type — тип шага.
	Type string `json:"type"`

	// Name — отображаемое имя шага.
	Name string `json:"name"`

	// Result — результат выполнения.
	Result *StepResult `json:"result"`

	// Duration — время выполнения шага.
	Duration time.Duration `json:"duration"`
}

// NewRun создаёт run в статусе RUNNING.
func NewRun(flowName, trigger string) *Run {
	return &Run{
		ID:        uuid.New(),
		FlowName:  flowName,
		Status:    RunStatusRunning,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountByStatus возвращает количество шагов с указанным статусом.
func (r *Run) CountByStatus(status StepStatus) int {
	n := 0
	for _, rec := range r.Steps {
		if rec.Result != nil && rec.Result.Status == status {
			n++
		}
	}
	return n
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(err string) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Error = err
}
