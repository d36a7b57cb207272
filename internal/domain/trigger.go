package domain

import (
	"time"
)

// TriggerKind — вид триггера.
type TriggerKind string

const (
	// TriggerKindSchedule — запуск по расписанию.
	TriggerKindSchedule TriggerKind = "schedule"

	// TriggerKindFolderWatch — запуск при появлении файла в папке.
	TriggerKindFolderWatch TriggerKind = "folder_watch"
)

// Типы расписаний.
const (
	ScheduleInterval = "interval"
	ScheduleDaily    = "daily"
	ScheduleCron     = "cron"
)

// Trigger — правило автоматического запуска flow.
//
// Trigger позволяет запускать flow:
//   - По интервалу: каждые N секунд (первый запуск сразу после старта)
//   - Ежедневно в заданное время: "09:30"
//   - По cron-выражению: "*/5 * * * *"
//   - При появлении нового файла в папке
//
// Определения триггеров хранятся в data/triggers.json.
type Trigger struct {
	// ID — уникальный идентификатор триггера.
	ID string `json:"id"`

	// Kind — вид триггера.
	Kind TriggerKind `json:"kind"`

	// FlowPath — путь к файлу flow, который нужно запускать.
	FlowPath string `json:"flow_path"`

	// ScheduleType — interval, daily или cron.
	ScheduleType string `json:"schedule_type,omitempty"`

	// IntervalSec — интервал в секундах для ScheduleType=interval.
	IntervalSec int `json:"interval_sec,omitempty"`

	// DailyTime — время "HH:MM" для ScheduleType=daily.
	DailyTime string `json:"daily_time,omitempty"`

	// CronExpr — cron-выражение для ScheduleType=cron.
	// Формат: "минуты часы дни месяцы дни_недели".
	CronExpr string `json:"cron_expr,omitempty"`

	// WatchFolder — наблюдаемая папка для Kind=folder_watch.
	WatchFolder string `json:"watch_folder,omitempty"`

	// FilePattern — glob-шаблон имени файла. По умолчанию "*".
	FilePattern string `json:"file_pattern,omitempty"`

	// Enabled — флаг активности.
	Enabled bool `json:"enabled"`

	// LastFiredAt — время последнего срабатывания.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// IsFolderWatch возвращает true для наблюдения за папкой.
func (t *Trigger) IsFolderWatch() bool {
	return t.Kind == TriggerKindFolderWatch
}

// Pattern возвращает шаблон файла с учётом значения по умолчанию.
func (t *Trigger) Pattern() string {
	if t.FilePattern == "" {
		return "*"
	}
	return t.FilePattern
}

// RecordFire записывает время срабатывания.
func (t *Trigger) RecordFire(at time.Time) {
	t.LastFiredAt = &at
}
