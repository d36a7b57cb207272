package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/trigger"
)

// NewTriggerCmd создаёт группу команд для управления триггерами.
//
// Команды работают с data/triggers.json напрямую; демон читает
// файл при старте.
func NewTriggerCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Manage schedule and folder-watch triggers",
		Long:  "Manage trigger definitions stored in data/triggers.json. A running daemon picks up changes on restart.",
	}

	cmd.AddCommand(
		newTriggerListCmd(env),
		newTriggerAddScheduleCmd(env),
		newTriggerAddWatchCmd(env),
		newTriggerRemoveCmd(env),
		newTriggerEnableCmd(env, true),
		newTriggerEnableCmd(env, false),
	)

	return cmd
}

// localManager загружает триггеры из файла конфигурации.
func localManager(env *Env) (*trigger.Manager, error) {
	cfg, err := env.Config()
	if err != nil {
		return nil, err
	}

	m := trigger.NewManager(trigger.Config{
		StorePath: cfg.TriggersFile(),
		Logger:    env.Logger(),
	})
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func printTriggers(out *Output, triggers []domain.Trigger) {
	headers := []string{"ID", "KIND", "FLOW", "WHEN", "ENABLED", "LAST FIRED"}
	rows := make([][]string, len(triggers))
	for i, t := range triggers {
		last := ""
		if t.LastFiredAt != nil {
			last = t.LastFiredAt.Format("2006-01-02 15:04:05")
		}
		rows[i] = []string{t.ID, string(t.Kind), t.FlowPath, describeTrigger(t), strconv.FormatBool(t.Enabled), last}
	}
	out.Print(headers, rows, triggers)
}

// describeTrigger возвращает условие срабатывания в читаемом виде.
func describeTrigger(t domain.Trigger) string {
	if t.IsFolderWatch() {
		return t.WatchFolder + "/" + t.Pattern()
	}
	switch t.ScheduleType {
	case domain.ScheduleInterval:
		return fmt.Sprintf("every %ds", t.IntervalSec)
	case domain.ScheduleDaily:
		return "daily at " + t.DailyTime
	case domain.ScheduleCron:
		return "cron " + t.CronExpr
	}
	return t.ScheduleType
}

func newTriggerListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := localManager(env)
			if err != nil {
				return err
			}
			printTriggers(env.Output(), m.List())
			return nil
		},
	}
}

func newTriggerAddScheduleCmd(env *Env) *cobra.Command {
	var interval int
	var daily, cronExpr string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add-schedule FLOW",
		Short: "Add a schedule trigger (--interval, --daily or --cron)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.Trigger{Kind: domain.TriggerKindSchedule, Enabled: !disabled}

			set := 0
			if interval > 0 {
				t.ScheduleType, t.IntervalSec = domain.ScheduleInterval, interval
				set++
			}
			if daily != "" {
				t.ScheduleType, t.DailyTime = domain.ScheduleDaily, daily
				set++
			}
			if cronExpr != "" {
				t.ScheduleType, t.CronExpr = domain.ScheduleCron, cronExpr
				set++
			}
			if set != 1 {
				return fmt.Errorf("exactly one of --interval, --daily, --cron is required")
			}

			return addTrigger(env, args[0], t)
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "Interval in seconds")
	cmd.Flags().StringVar(&daily, "daily", "", "Daily time HH:MM")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (5 fields)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the trigger disabled")

	return cmd
}

func newTriggerAddWatchCmd(env *Env) *cobra.Command {
	var folder, pattern string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add-watch FLOW",
		Short: "Add a folder-watch trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addTrigger(env, args[0], domain.Trigger{
				Kind:        domain.TriggerKindFolderWatch,
				WatchFolder: folder,
				FilePattern: pattern,
				Enabled:     !disabled,
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder to watch")
	cmd.Flags().StringVar(&pattern, "pattern", "*", "File name glob")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the trigger disabled")
	_ = cmd.MarkFlagRequired("folder")

	return cmd
}

// addTrigger находит файл flow и сохраняет триггер.
func addTrigger(env *Env, flow string, t domain.Trigger) error {
	m, err := localManager(env)
	if err != nil {
		return err
	}

	cfg, err := env.Config()
	if err != nil {
		return err
	}
	if t.FlowPath, err = cfg.FlowPath(flow); err != nil {
		return err
	}

	created, err := m.Add(t)
	if err != nil {
		return err
	}

	out := env.Output()
	out.Success("trigger added: " + created.ID)
	printTriggers(out, []domain.Trigger{*created})
	return nil
}

func newTriggerRemoveCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := localManager(env)
			if err != nil {
				return err
			}
			if err := m.Remove(args[0]); err != nil {
				return err
			}
			env.Output().Success("trigger removed: " + args[0])
			return nil
		},
	}
}

func newTriggerEnableCmd(env *Env, enabled bool) *cobra.Command {
	use, short := "enable ID", "Enable a trigger"
	if !enabled {
		use, short = "disable ID", "Disable a trigger"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := localManager(env)
			if err != nil {
				return err
			}
			if err := m.SetEnabled(args[0], enabled); err != nil {
				return err
			}
			env.Output().Success(fmt.Sprintf("trigger %s enabled=%t", args[0], enabled))
			return nil
		},
	}
}
