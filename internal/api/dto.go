package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Flow DTOs

// FlowSummary — краткое описание файла flow.
type FlowSummary struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Error       string `json:"error,omitempty"`
}

// Run DTOs

// CreateRunRequest — запрос на запуск flow.
type CreateRunRequest struct {
	// Flow — имя flow в каталоге flows или путь к файлу.
	Flow string            `json:"flow"`
	Vars map[string]string `json:"vars,omitempty"`
}

// CreateRunResponse — ответ на запуск flow.
type CreateRunResponse struct {
	RunID uuid.UUID `json:"run_id"`
	Flow  string    `json:"flow"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID          uuid.UUID         `json:"id"`
	FlowName    string            `json:"flow_name"`
	FlowPath    string            `json:"flow_path,omitempty"`
	Status      domain.RunStatus  `json:"status"`
	Trigger     string            `json:"trigger"`
	Vars        map[string]string `json:"vars,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	DurationSec float64           `json:"duration_sec"`
	LogPath     string            `json:"log_path,omitempty"`
	Error       string            `json:"error,omitempty"`
	Steps       []StepResponse    `json:"steps,omitempty"`
}

// StepResponse — результат шага в ответе.
type StepResponse struct {
	Index       int               `json:"index"`
	StepID      string            `json:"step_id"`
	Type        string            `json:"type"`
	Name        string            `json:"name,omitempty"`
	Status      domain.StepStatus `json:"status"`
	Output      any               `json:"output,omitempty"`
	Error       string            `json:"error,omitempty"`
	ExitCode    int               `json:"exit_code"`
	DurationSec float64           `json:"duration_sec"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
// withSteps=false оставляет Steps пустым (для списков).
func RunFromDomain(r domain.Run, withSteps bool) RunResponse {
	resp := RunResponse{
		ID:          r.ID,
		FlowName:    r.FlowName,
		FlowPath:    r.FlowPath,
		Status:      r.Status,
		Trigger:     r.Trigger,
		Vars:        r.Vars,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		DurationSec: r.Duration().Seconds(),
		LogPath:     r.LogPath,
		Error:       r.Error,
	}

	if withSteps {
		resp.Steps = make([]StepResponse, len(r.Steps))
		for i, rec := range r.Steps {
			resp.Steps[i] = StepFromDomain(rec)
		}
	}
	return resp
}

// StepFromDomain конвертирует domain.StepRecord в StepResponse.
func StepFromDomain(rec domain.StepRecord) StepResponse {
	resp := StepResponse{
		Index:       rec.Index,
		StepID:      rec.StepID,
		Type:        rec.Type,
		Name:        rec.Name,
		Status:      domain.StepStatusPending,
		DurationSec: rec.Duration.Seconds(),
	}
	if rec.Result != nil {
		resp.Status = rec.Result.Status
		resp.Output = rec.Result.Output
		resp.Error = rec.Result.Error
		resp.ExitCode = rec.Result.ExitCode
	}
	return resp
}

// Trigger DTOs

// CreateTriggerRequest — запрос на создание триггера.
type CreateTriggerRequest struct {
	Kind         domain.TriggerKind `json:"kind"`
	Flow         string             `json:"flow"`
	ScheduleType string             `json:"schedule_type,omitempty"`
	IntervalSec  int                `json:"interval_sec,omitempty"`
	DailyTime    string             `json:"daily_time,omitempty"`
	CronExpr     string             `json:"cron_expr,omitempty"`
	WatchFolder  string             `json:"watch_folder,omitempty"`
	FilePattern  string             `json:"file_pattern,omitempty"`
	Enabled      *bool              `json:"enabled,omitempty"`
}

// ToDomain конвертирует запрос в domain.Trigger с уже найденным файлом flow.
func (r CreateTriggerRequest) ToDomain(flowPath string) domain.Trigger {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return domain.Trigger{
		Kind:         r.Kind,
		FlowPath:     flowPath,
		ScheduleType: r.ScheduleType,
		IntervalSec:  r.IntervalSec,
		DailyTime:    r.DailyTime,
		CronExpr:     r.CronExpr,
		WatchFolder:  r.WatchFolder,
		FilePattern:  r.FilePattern,
		Enabled:      enabled,
	}
}

// SetEnabledRequest — запрос на включение/выключение триггера.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
