package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
	"github.com/shaiso/LocalAutomator/internal/telemetry"
)

// Ограничение длины stdout/stderr в логе run.
const logExcerptLimit = 500

// Встроенные переменные run.
const (
	VarRunID    = "run.id"
	VarFlowName = "flow.name"
)

// Runner выполняет flow.
//
// Шаги выполняются строго по порядку в файле:
//   - condition.endif закрывает самый внутренний блок, даже если шаги пропускаются
//   - внутри пропускаемого блока шаги получают SKIPPED без раскрытия параметров
//   - выключенный шаг получает SKIPPED и не выполняется
//   - остальные шаги раскрывают параметры, находят обработчик и выполняются
//
// Упавший шаг останавливает run, если у шага не задан continue_on_error.
type Runner struct {
	dispatcher *actions.Dispatcher
	logDir     string
	observers  *observers
	logger     *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Dispatcher — обработчики шагов (default: actions.DefaultDispatcher).
	Dispatcher *actions.Dispatcher

	// LogDir — каталог логов run. Пустой — лог run не пишется.
	LogDir string

	// Observers — наблюдатели событий run.
	Observers []Observer

	// Logger
	Logger *slog.Logger
}

// Options — параметры одного запуска.
type Options struct {
	// Trigger — источник запуска (default: domain.TriggerManual).
	Trigger string

	// Vars — начальные переменные.
	Vars map[string]string

	// FlowPath — путь к файлу flow, если он известен.
	FlowPath string

	// RunID — заранее выданный ID run. Нулевой — генерируется новый.
	RunID uuid.UUID
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = actions.DefaultDispatcher()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		dispatcher: dispatcher,
		logDir:     cfg.LogDir,
		observers:  &observers{list: cfg.Observers, logger: logger},
		logger:     logger,
	}
}

// Dispatcher возвращает диспетчер обработчиков.
func (r *Runner) Dispatcher() *actions.Dispatcher {
	return r.dispatcher
}

// RunFile загружает flow из файла и выполняет его.
//
// Проверяется только структура flow: неизвестный тип шага
// приводит к FAILED этого шага во время выполнения.
func (r *Runner) RunFile(ctx context.Context, path string, opts Options) (*domain.Run, error) {
	flow, err := engine.LoadFlow(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFlow, err)
	}

	if err := engine.Validate(flow, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	opts.FlowPath = path
	return r.Run(ctx, flow, opts)
}

// Run выполняет flow и возвращает run со всеми записями шагов.
//
// Ошибка возвращается только если run не удалось начать.
// Упавший или отменённый run возвращается со статусом FAILED или CANCELLED.
func (r *Runner) Run(ctx context.Context, flow *domain.Flow, opts Options) (*domain.Run, error) {
	if flow == nil {
		return nil, ErrNilFlow
	}

	flow, err := flow.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone flow: %w", err)
	}
	flow.FillDefaults()

	trigger := opts.Trigger
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	run := domain.NewRun(flow.Name, trigger)
	if opts.RunID != uuid.Nil {
		run.ID = opts.RunID
	}
	run.FlowPath = opts.FlowPath
	run.Vars = opts.Vars
	run.Steps = make([]domain.StepRecord, 0, len(flow.Actions))

	logger := telemetry.WithFlow(telemetry.WithRunID(r.logger, run.ID.String()), flow.Name)

	runLog := r.openRunLog(flow.Name, run.StartedAt, logger)
	defer runLog.Close()
	run.LogPath = runLog.Path()

	vars := engine.NewContextAt(run.StartedAt)
	for name, value := range opts.Vars {
		vars.Set(name, value)
	}
	vars.Set(VarRunID, run.ID.String())
	vars.Set(VarFlowName, flow.Name)

	logger.Info("run started", "trigger", trigger, "steps", len(flow.Actions))
	runLog.Printf("=== flow started: %s ===", flow.Name)
	runLog.Printf("steps: %d", len(flow.Actions))
	r.observers.RunStarted(ctx, run)

	r.execute(ctx, flow, run, vars, runLog, logger)

	runLog.Printf("=== flow finished: %s (%s) ===", flow.Name, run.Status)
	logger.Info("run finished",
		"status", run.Status,
		"duration", run.Duration(),
		"succeeded", run.CountByStatus(domain.StepStatusSuccess),
		"failed", run.CountByStatus(domain.StepStatusFailed),
		"skipped", run.CountByStatus(domain.StepStatusSkipped),
	)
	r.observers.RunFinished(ctx, run)

	return run, nil
}

// execute проходит шаги flow и переводит run в итоговый статус.
func (r *Runner) execute(ctx context.Context, flow *domain.Flow, run *domain.Run, vars *engine.Context, runLog *telemetry.RunLog, logger *slog.Logger) {
	var blocks blockState
	total := len(flow.Actions)

	for i := range flow.Actions {
		step := &flow.Actions[i]
		pos := fmt.Sprintf("[%d/%d]", i+1, total)
		name := step.DisplayName()

		if err := ctx.Err(); err != nil {
			runLog.Printf("--- run cancelled ---")
			logger.Warn("run cancelled", "error", err)
			run.MarkCancelled(err.Error())
			return
		}

		// condition.endif обрабатывается всегда
		if step.Type == domain.StepTypeEndIf {
			blocks.Close()
			r.complete(ctx, run, vars, i, step, domain.Success("endif"), 0)
			runLog.Printf("%s ENDIF: %s", pos, name)
			continue
		}

		if blocks.Skipping() {
			if step.Type == domain.StepTypeIf {
				blocks.Open(true)
			}
			res := domain.Skipped()
			res.Output = "skipped by condition"
			r.complete(ctx, run, vars, i, step, res, 0)
			runLog.Printf("%s skipped: %s", pos, name)
			continue
		}

		if !step.IsEnabled() {
			// Блок выключенного if выполняется, парный endif закроет его
			if step.Type == domain.StepTypeIf {
				blocks.Open(false)
			}
			res := domain.Skipped()
			res.Output = "disabled"
			r.complete(ctx, run, vars, i, step, res, 0)
			runLog.Printf("%s disabled: %s", pos, name)
			continue
		}

		stepLogger := telemetry.WithStepID(logger, step.ID)
		r.observers.StepStarted(ctx, run, step, i)
		runLog.Printf("%s start: %s (type=%s)", pos, name, step.Type)
		stepLogger.Debug("step started", "type", step.Type)

		start := time.Now()
		res := r.executeStep(ctx, step, vars, stepLogger)
		elapsed := time.Since(start)

		switch {
		case step.Type == domain.StepTypeIf && !res.Failed():
			met, _ := res.Data[actions.ConditionMetKey].(bool)
			blocks.Open(!met)
			verdict := "FALSE (skip)"
			if met {
				verdict = "TRUE (run)"
			}
			runLog.Printf("%s IF: %s -> %s (%.3fs)", pos, name, verdict, elapsed.Seconds())
		case step.Type == domain.StepTypeIf:
			// Условие не вычислено: блок пропускается до парного endif
			blocks.Open(true)
			runLog.Printf("%s IF: %s -> %s (%.3fs)", pos, name, res.Status, elapsed.Seconds())
		default:
			runLog.Printf("%s done: %s -> %s (%.3fs)", pos, name, res.Status, elapsed.Seconds())
		}

		if res.Stdout != "" {
			runLog.Printf("  stdout: %s", excerpt(res.Stdout))
		}
		if res.Stderr != "" {
			runLog.Printf("  stderr: %s", excerpt(res.Stderr))
		}
		if res.Error != "" {
			runLog.Printf("  error: %s", res.Error)
		}

		r.complete(ctx, run, vars, i, step, res, elapsed)

		if !res.Failed() {
			stepLogger.Debug("step completed", "status", res.Status, "duration", elapsed)
			continue
		}

		stepLogger.Warn("step failed", "type", step.Type, "error", res.Error)

		if ctx.Err() != nil {
			runLog.Printf("--- run cancelled ---")
			run.MarkCancelled(ctx.Err().Error())
			return
		}

		if step.ContinueOnError {
			runLog.Printf("--- continuing after error ---")
			continue
		}

		runLog.Printf("--- stopped on error ---")
		run.MarkFailed(fmt.Sprintf("step %s failed: %s", step.ID, res.Error))
		return
	}

	run.MarkSucceeded()
}

// executeStep раскрывает параметры шага и вызывает обработчик.
// Любая ошибка, включая панику обработчика, превращается в FAILED.
func (r *Runner) executeStep(ctx context.Context, step *domain.Step, vars *engine.Context, logger *slog.Logger) (res *domain.StepResult) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("action panic", "type", step.Type, "panic", p)
			res = domain.Failure(fmt.Sprintf("unexpected error: %v", p))
		}
	}()

	params, err := vars.ExpandParams(step.Params)
	if err != nil {
		return domain.Failure(err.Error())
	}

	action, err := r.dispatcher.Resolve(step.Type)
	if err != nil {
		return domain.Failure(err.Error())
	}

	req := actions.NewRequest(step.ID, params, vars)
	req.Logger = logger

	res, err = action.Execute(ctx, req)
	if err != nil {
		return domain.Failure(err.Error())
	}
	if res == nil {
		res = domain.Success(nil)
	}
	return res
}

// complete записывает результат шага в контекст и run.
func (r *Runner) complete(ctx context.Context, run *domain.Run, vars *engine.Context, index int, step *domain.Step, res *domain.StepResult, elapsed time.Duration) {
	vars.RecordStepResult(step.ID, res.Fields())

	rec := domain.StepRecord{
		Index:    index,
		StepID:   step.ID,
		Type:     step.Type,
		Name:     step.DisplayName(),
		Result:   res,
		Duration: elapsed,
	}
	run.Steps = append(run.Steps, rec)
	r.observers.StepCompleted(ctx, run, rec)
}

// openRunLog открывает файл лога run.
// Ошибка открытия не мешает выполнению: run идёт без файла.
func (r *Runner) openRunLog(flowName string, started time.Time, logger *slog.Logger) *telemetry.RunLog {
	if r.logDir == "" {
		return nil
	}

	runLog, err := telemetry.OpenRunLog(r.logDir, flowName, started)
	if err != nil {
		logger.Warn("run log unavailable", "error", err)
		return nil
	}
	return runLog
}

// excerpt обрезает вывод для лога run.
func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= logExcerptLimit {
		return s
	}
	return string(r[:logExcerptLimit])
}
