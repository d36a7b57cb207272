package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

const (
	// TypeScriptEval — тип действия вычисления JavaScript.
	TypeScriptEval = "script.eval"

	defaultScriptTimeout = 10 * time.Second
)

// ScriptAction — выполнение JavaScript через goja.
//
// Параметры:
//
//	{
//	    "script": "vars.file_list.split('\n').length",
//	    "output_var": "count",
//	    "timeout_sec": 10
//	}
//
// Переменные run доступны как объект vars. Свойства объекта output
// после выполнения копируются в переменные run. console.log пишет в лог шага.
//
// Плейсхолдеры {{ }} раскрываются до выполнения, поэтому в тексте
// скрипта их лучше не использовать для значений с кавычками.
type ScriptAction struct{}

// NewScriptAction создаёт новый ScriptAction.
func NewScriptAction() *ScriptAction {
	return &ScriptAction{}
}

// Type возвращает тип действия.
func (a *ScriptAction) Type() string {
	return TypeScriptEval
}

// Describe возвращает описание действия.
func (a *ScriptAction) Describe() Spec {
	return Spec{
		Type:        TypeScriptEval,
		Category:    "script",
		DisplayName: "JavaScript",
		Description: "Evaluates JavaScript with run variables exposed as vars.",
		Params: []Param{
			{Name: "script", Type: "multiline", Required: true},
			{Name: "output_var", Type: "string", Description: "variable that receives the script result"},
			{Name: "timeout_sec", Type: "number", Default: int(defaultScriptTimeout / time.Second)},
		},
	}
}

// Execute выполняет скрипт в новом runtime.
func (a *ScriptAction) Execute(ctx context.Context, req *Request) (*domain.StepResult, error) {
	script := req.Raw("script")
	if err := requireParam(TypeScriptEval, "script", script); err != nil {
		return nil, err
	}

	timeout := defaultScriptTimeout
	if sec := req.Int("timeout_sec", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vm := goja.New()
	output := make(map[string]any)

	if err := vm.Set("vars", req.Vars.Vars()); err != nil {
		return nil, fmt.Errorf("set vars: %w", err)
	}
	if err := vm.Set("output", output); err != nil {
		return nil, fmt.Errorf("set output: %w", err)
	}
	console := vm.NewObject()
	_ = console.Set("log", consoleFunc(req.Logger, slog.LevelInfo))
	_ = console.Set("warn", consoleFunc(req.Logger, slog.LevelWarn))
	_ = console.Set("error", consoleFunc(req.Logger, slog.LevelError))
	_ = vm.Set("console", console)

	// Прерываем выполнение при отмене контекста или таймауте
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	value, err := vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("script timed out after %s", timeout)
			}
			return nil, fmt.Errorf("%w: %v", ErrActionCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("script error: %w", err)
	}

	var result any
	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		result = value.Export()
	}

	for k, v := range output {
		req.Vars.Set(k, v)
	}
	if outVar := req.String("output_var", ""); outVar != "" {
		req.Vars.Set(outVar, result)
	}

	res := domain.Success(engine.Stringify(result)).WithData("result", result)
	if len(output) > 0 {
		res.WithData("outputs", output)
	}
	return res, nil
}

// consoleFunc возвращает реализацию console.* поверх slog.
func consoleFunc(logger *slog.Logger, level slog.Level) func(goja.FunctionCall) goja.Value {
	if logger == nil {
		logger = slog.Default()
	}
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		logger.Log(context.Background(), level, "script console", "args", args)
		return goja.Undefined()
	}
}
