package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/LocalAutomator/internal/config"
	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/mq"
	"github.com/shaiso/LocalAutomator/internal/repo"
	"github.com/shaiso/LocalAutomator/internal/runner"
)

// ErrRunFailed — run завершился не в статусе SUCCEEDED.
var ErrRunFailed = errors.New("run did not succeed")

// NewRunCmd создаёт команду локального запуска flow.
func NewRunCmd(env *Env) *cobra.Command {
	var vars []string
	var queue bool

	cmd := &cobra.Command{
		Use:   "run FLOW",
		Short: "Run a flow (name in flows/ or path to a file)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			overrides, err := parseVars(vars)
			if err != nil {
				return err
			}

			if queue {
				return queueRun(cmd.Context(), env, cfg, args[0], overrides)
			}

			path, err := cfg.FlowPath(args[0])
			if err != nil {
				return err
			}

			logger := env.Logger()
			var observers []runner.Observer
			if cfg.DatabaseURL != "" {
				obs, closeFn, err := openHistory(cmd.Context(), cfg.DatabaseURL, logger)
				if err != nil {
					logger.Warn("run history disabled", "error", err)
				} else {
					defer closeFn()
					observers = append(observers, obs)
				}
			}

			r := runner.New(runner.Config{
				Dispatcher: env.Dispatcher(),
				LogDir:     cfg.LogsDir,
				Observers:  observers,
				Logger:     logger,
			})

			run, err := r.RunFile(cmd.Context(), path, runner.Options{
				Trigger: domain.TriggerManual,
				Vars:    cfg.RunVars(overrides),
			})
			if err != nil {
				return err
			}

			printRun(env.Output(), run)

			if run.Status != domain.RunStatusSucceeded {
				return fmt.Errorf("%w: %s", ErrRunFailed, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&queue, "queue", false, "Send a run request to the daemon over RabbitMQ instead of running locally")

	return cmd
}

// printRun выводит шаги run и итог.
func printRun(out *Output, run *domain.Run) {
	headers := []string{"#", "STEP", "TYPE", "STATUS", "DURATION", "ERROR"}
	rows := make([][]string, len(run.Steps))
	for i, rec := range run.Steps {
		status, errMsg := "", ""
		if rec.Result != nil {
			status = string(rec.Result.Status)
			errMsg = rec.Result.Error
		}
		rows[i] = []string{
			fmt.Sprintf("%d", rec.Index+1),
			rec.StepID,
			rec.Type,
			status,
			rec.Duration.Round(time.Millisecond).String(),
			oneLine(errMsg),
		}
	}

	out.Print(headers, rows, run)

	summary := fmt.Sprintf("run %s %s in %s", run.ID, run.Status, run.Duration().Round(time.Millisecond))
	if run.LogPath != "" {
		summary += ", log: " + run.LogPath
	}
	out.Success(summary)
	if run.Error != "" {
		out.Error(run.Error)
	}
}

// openHistory подключает запись истории run в PostgreSQL.
func openHistory(ctx context.Context, dsn string, logger *slog.Logger) (runner.Observer, func(), error) {
	pool, err := repo.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo.NewHistoryObserver(repo.NewRunRepo(pool), logger), pool.Close, nil
}

// queueRun публикует запрос run.requested для демона.
func queueRun(ctx context.Context, env *Env, cfg *config.Config, flow string, vars map[string]string) error {
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is not configured")
	}

	logger := env.Logger()
	conn, err := mq.NewConnection(cfg.RabbitMQURL, "automator-cli", logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return err
	}

	pub := mq.NewPublisher(conn, logger)
	if err := pub.PublishRunRequested(ctx, mq.RunRequestedPayload{
		Flow:        flow,
		Vars:        vars,
		RequestedBy: "cli",
	}); err != nil {
		return err
	}

	env.Output().Success("run requested: " + flow)
	return nil
}

// parseVars разбирает значения KEY=VALUE.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid variable %q, expected KEY=VALUE", kv)
		}
		vars[strings.TrimSpace(key)] = value
	}
	return vars, nil
}

// oneLine оставляет первую строку сообщения.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
