package trigger

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// cronParser — парсер cron-выражений из пяти полей.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextFire вычисляет следующее срабатывание триггера по расписанию после from.
func NextFire(t *domain.Trigger, from time.Time) (time.Time, error) {
	switch t.ScheduleType {
	case domain.ScheduleInterval:
		if t.IntervalSec <= 0 {
			return time.Time{}, fmt.Errorf("%w: interval_sec must be positive", ErrInvalidTrigger)
		}
		return from.Add(time.Duration(t.IntervalSec) * time.Second), nil

	case domain.ScheduleDaily:
		expr, err := DailyCronExpr(t.DailyTime)
		if err != nil {
			return time.Time{}, err
		}
		return nextCron(expr, from)

	case domain.ScheduleCron:
		return nextCron(t.CronExpr, from)

	default:
		return time.Time{}, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidTrigger, t.ScheduleType)
	}
}

// nextCron вычисляет следующее время по cron-выражению.
func nextCron(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cron expression %q: %v", ErrInvalidTrigger, expr, err)
	}
	return schedule.Next(from), nil
}

// DailyCronExpr переводит время "HH:MM" в cron-выражение "M H * * *".
func DailyCronExpr(hhmm string) (string, error) {
	hourStr, minStr, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return "", fmt.Errorf("%w: daily_time %q must be HH:MM", ErrInvalidTrigger, hhmm)
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: invalid hour in daily_time %q", ErrInvalidTrigger, hhmm)
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: invalid minute in daily_time %q", ErrInvalidTrigger, hhmm)
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Validate проверяет определение триггера.
func Validate(t *domain.Trigger) error {
	if strings.TrimSpace(t.FlowPath) == "" {
		return fmt.Errorf("%w: flow_path is required", ErrInvalidTrigger)
	}

	switch t.Kind {
	case domain.TriggerKindSchedule:
		_, err := NextFire(t, time.Now())
		return err

	case domain.TriggerKindFolderWatch:
		if strings.TrimSpace(t.WatchFolder) == "" {
			return fmt.Errorf("%w: watch_folder is required", ErrInvalidTrigger)
		}
		if _, err := filepath.Match(t.Pattern(), ""); err != nil {
			return fmt.Errorf("%w: file_pattern %q: %v", ErrInvalidTrigger, t.Pattern(), err)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTrigger, t.Kind)
	}
}
