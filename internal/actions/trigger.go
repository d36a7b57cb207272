package actions

import (
	"context"
	"fmt"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Типы действий-маркеров триггеров.
const (
	TypeTriggerSchedule    = "trigger.schedule"
	TypeTriggerFolderWatch = "trigger.folder_watch"
)

// TriggerNewFileVar — переменная с путём нового файла при запуске
// по наблюдению за папкой.
const TriggerNewFileVar = "trigger.new_file"

// ScheduleTriggerAction — декларативный маркер расписания внутри flow.
//
// Сам по себе ничего не планирует: расписание регистрируется через
// trigger.Manager. При выполнении возвращает свою конфигурацию.
type ScheduleTriggerAction struct{}

// NewScheduleTriggerAction создаёт новый ScheduleTriggerAction.
func NewScheduleTriggerAction() *ScheduleTriggerAction {
	return &ScheduleTriggerAction{}
}

// Type возвращает тип действия.
func (a *ScheduleTriggerAction) Type() string {
	return TypeTriggerSchedule
}

// Describe возвращает описание действия.
func (a *ScheduleTriggerAction) Describe() Spec {
	return Spec{
		Type:        TypeTriggerSchedule,
		Category:    "trigger",
		DisplayName: "Schedule",
		Description: "Declares that the flow runs on a schedule.",
		Params: []Param{
			{Name: "schedule_type", Type: "select", Default: domain.ScheduleInterval,
				Options: []string{domain.ScheduleInterval, domain.ScheduleDaily, domain.ScheduleCron}},
			{Name: "interval_seconds", Type: "number", Default: 3600},
			{Name: "daily_time", Type: "string", Default: "09:00"},
			{Name: "cron_expr", Type: "string"},
			{Name: "note", Type: "string"},
		},
	}
}

// Execute возвращает конфигурацию расписания.
func (a *ScheduleTriggerAction) Execute(_ context.Context, req *Request) (*domain.StepResult, error) {
	scheduleType := req.String("schedule_type", domain.ScheduleInterval)
	interval := req.Int("interval_seconds", 3600)
	dailyTime := req.String("daily_time", "09:00")

	return domain.Success(fmt.Sprintf("schedule trigger: %s / %ds / %s", scheduleType, interval, dailyTime)).
		WithData("schedule_type", scheduleType).
		WithData("interval_seconds", interval).
		WithData("daily_time", dailyTime), nil
}

// FolderWatchTriggerAction — декларативный маркер наблюдения за папкой.
//
// Если run запущен триггером, копирует путь нового файла из
// trigger.new_file в переменную new_file_var.
type FolderWatchTriggerAction struct{}

// NewFolderWatchTriggerAction создаёт новый FolderWatchTriggerAction.
func NewFolderWatchTriggerAction() *FolderWatchTriggerAction {
	return &FolderWatchTriggerAction{}
}

// Type возвращает тип действия.
func (a *FolderWatchTriggerAction) Type() string {
	return TypeTriggerFolderWatch
}

// Describe возвращает описание действия.
func (a *FolderWatchTriggerAction) Describe() Spec {
	return Spec{
		Type:        TypeTriggerFolderWatch,
		Category:    "trigger",
		DisplayName: "Folder watch",
		Description: "Declares that the flow runs when a new file appears in a folder.",
		Params: []Param{
			{Name: "watch_folder", Type: "string", Required: true},
			{Name: "file_pattern", Type: "string", Default: "*"},
			{Name: "new_file_var", Type: "string", Default: "new_file"},
			{Name: "note", Type: "string"},
		},
	}
}

// Execute возвращает конфигурацию и выставляет переменную нового файла.
func (a *FolderWatchTriggerAction) Execute(_ context.Context, req *Request) (*domain.StepResult, error) {
	folder := req.String("watch_folder", "")
	pattern := req.String("file_pattern", "*")
	newFileVar := req.String("new_file_var", "new_file")

	result := domain.Success(fmt.Sprintf("folder watch trigger: %s / pattern: %s", folder, pattern)).
		WithData("watch_folder", folder).
		WithData("file_pattern", pattern)

	if v, err := req.Vars.Get(TriggerNewFileVar); err == nil {
		req.Vars.Set(newFileVar, v)
		result.WithData("new_file", v)
	}
	return result, nil
}
