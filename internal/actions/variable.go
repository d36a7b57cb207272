package actions

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/lestrrat-go/strftime"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

// Типы действий с переменными.
const (
	TypeVarSet           = "variable.set"
	TypeVarStringConcat  = "variable.string_concat"
	TypeVarStringReplace = "variable.string_replace"
	TypeVarGetDate       = "variable.get_date"
	TypeVarMathCalc      = "variable.math_calc"
)

const categoryVariable = "variable"

// VariableActions возвращает все действия категории variable.
func VariableActions() []Action {
	return []Action{
		newFuncAction(Spec{
			Type: TypeVarSet, Category: categoryVariable, DisplayName: "Set variable",
			Description: "Creates or updates a variable.",
			Params: []Param{
				{Name: "name", Type: "string", Required: true},
				{Name: "value", Type: "string", Required: true},
			},
		}, setVariable),
		newFuncAction(Spec{
			Type: TypeVarStringConcat, Category: categoryVariable, DisplayName: "Concatenate",
			Description: "Joins non-empty lines of parts with a separator.",
			Params: []Param{
				{Name: "parts", Type: "multiline", Required: true, Description: "one part per line"},
				{Name: "separator", Type: "string"},
				{Name: "var_name", Type: "string", Default: "result"},
			},
		}, stringConcat),
		newFuncAction(Spec{
			Type: TypeVarStringReplace, Category: categoryVariable, DisplayName: "Replace",
			Description: "Replaces text in a string, optionally by regular expression.",
			Params: []Param{
				{Name: "source", Type: "string", Required: true},
				{Name: "find", Type: "string", Required: true},
				{Name: "replace", Type: "string"},
				{Name: "var_name", Type: "string", Default: "result"},
				{Name: "use_regex", Type: "bool", Default: false},
			},
		}, stringReplace),
		newFuncAction(Spec{
			Type: TypeVarGetDate, Category: categoryVariable, DisplayName: "Get date",
			Description: "Stores the current date formatted with strftime directives.",
			Params: []Param{
				{Name: "format", Type: "string", Default: defaultDateFormat},
				{Name: "var_name", Type: "string", Default: "current_date"},
			},
		}, getDate),
		newFuncAction(Spec{
			Type: TypeVarMathCalc, Category: categoryVariable, DisplayName: "Calculate",
			Description: "Evaluates an arithmetic expression.",
			Params: []Param{
				{Name: "expression", Type: "string", Required: true, Description: "e.g. {{count}} * 2 + 1"},
				{Name: "var_name", Type: "string", Default: "calc_result"},
				{Name: "decimal_places", Type: "number", Default: -1, Description: "-1 keeps full precision"},
			},
		}, mathCalc),
	}
}

const defaultDateFormat = "%Y-%m-%d %H:%M:%S"

// clock подменяется в тестах.
var clock = time.Now

func setVariable(_ context.Context, req *Request) (*domain.StepResult, error) {
	name := req.String("name", "")
	if err := requireParam(TypeVarSet, "name", name); err != nil {
		return nil, err
	}
	value := req.Params["value"]
	if value == nil {
		value = ""
	}

	req.Vars.Set(name, value)
	return varResult(name, value), nil
}

func stringConcat(_ context.Context, req *Request) (*domain.StepResult, error) {
	varName := req.String("var_name", "result")
	sep := req.Raw("separator")

	var parts []string
	switch v := req.Params["parts"].(type) {
	case []any:
		for _, p := range v {
			if s := engine.Stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
	default:
		for _, line := range strings.Split(req.Raw("parts"), "\n") {
			if line != "" {
				parts = append(parts, line)
			}
		}
	}

	result := strings.Join(parts, sep)
	req.Vars.Set(varName, result)
	return varResult(varName, result), nil
}

func stringReplace(_ context.Context, req *Request) (*domain.StepResult, error) {
	source := req.Raw("source")
	find := req.Raw("find")
	replace := req.Raw("replace")
	varName := req.String("var_name", "result")

	var result string
	if req.Bool("use_regex", false) {
		re, err := regexp.Compile(find)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad regex: %v", ErrInvalidParams, TypeVarStringReplace, err)
		}
		result = re.ReplaceAllString(source, replace)
	} else if find != "" {
		result = strings.ReplaceAll(source, find, replace)
	} else {
		result = source
	}

	req.Vars.Set(varName, result)
	return varResult(varName, result), nil
}

func getDate(_ context.Context, req *Request) (*domain.StepResult, error) {
	format := req.String("format", defaultDateFormat)
	varName := req.String("var_name", "current_date")

	result, err := Strftime(clock(), format)
	if err != nil {
		return nil, err
	}
	req.Vars.Set(varName, result)
	return varResult(varName, result), nil
}

// mathEnv — константы, доступные в выражениях.
// abs, ceil, floor, round, min, max, int, float встроены в expr.
var mathEnv = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

// mathOptions — окружение и дополнительные функции выражений.
var mathOptions = []expr.Option{
	expr.Env(mathEnv),
	expr.Function("sqrt", func(params ...any) (any, error) {
		x, err := floatArgs("sqrt", 1, params)
		if err != nil {
			return nil, err
		}
		return math.Sqrt(x[0]), nil
	}),
	expr.Function("pow", func(params ...any) (any, error) {
		x, err := floatArgs("pow", 2, params)
		if err != nil {
			return nil, err
		}
		return math.Pow(x[0], x[1]), nil
	}),
}

// floatArgs приводит аргументы функции к float64.
func floatArgs(name string, n int, params []any) ([]float64, error) {
	if len(params) != n {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", name, n, len(params))
	}
	out := make([]float64, n)
	for i, p := range params {
		switch v := p.(type) {
		case int:
			out[i] = float64(v)
		case int64:
			out[i] = float64(v)
		case float64:
			out[i] = v
		default:
			return nil, fmt.Errorf("%s: argument %d is not a number", name, i+1)
		}
	}
	return out, nil
}

func mathCalc(_ context.Context, req *Request) (*domain.StepResult, error) {
	expression := req.String("expression", "")
	if err := requireParam(TypeVarMathCalc, "expression", expression); err != nil {
		return nil, err
	}
	varName := req.String("var_name", "calc_result")
	places := req.Int("decimal_places", -1)

	program, err := expr.Compile(expression, mathOptions...)
	if err != nil {
		return nil, fmt.Errorf("expression error: %w", err)
	}
	out, err := expr.Run(program, mathEnv)
	if err != nil {
		return nil, fmt.Errorf("expression error: %w", err)
	}

	result, err := formatNumber(out, places)
	if err != nil {
		return nil, err
	}

	req.Vars.Set(varName, result)
	return varResult(varName, result).WithData("expression", expression), nil
}

// formatNumber форматирует результат выражения с заданной точностью.
func formatNumber(v any, places int) (string, error) {
	var f float64
	switch n := v.(type) {
	case int:
		if places < 0 {
			return strconv.Itoa(n), nil
		}
		f = float64(n)
	case int64:
		if places < 0 {
			return strconv.FormatInt(n, 10), nil
		}
		f = float64(n)
	case float64:
		f = n
	case bool:
		return strconv.FormatBool(n), nil
	default:
		return "", fmt.Errorf("expression result is not a number: %v", v)
	}

	if places < 0 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	if places == 0 {
		return strconv.FormatInt(int64(math.Round(f)), 10), nil
	}
	return strconv.FormatFloat(f, 'f', places, 64), nil
}

func varResult(name string, value any) *domain.StepResult {
	shown := engine.Stringify(value)
	return domain.Success(fmt.Sprintf("%s = %s", name, truncate(shown, 100))).
		WithData("var_name", name).
		WithData("var_value", value)
}

// strftimeMicro добавляет %f (микросекунды) к стандартным директивам.
var strftimeMicro = strftime.WithSpecification('f', strftime.AppendFunc(func(b []byte, t time.Time) []byte {
	return fmt.Appendf(b, "%06d", t.Nanosecond()/1000)
}))

// Strftime форматирует время по директивам strftime (%Y, %m, %d, %H, ...).
func Strftime(t time.Time, format string) (string, error) {
	s, err := strftime.Format(format, t, strftimeMicro)
	if err != nil {
		return "", fmt.Errorf("%w: date format %q: %v", ErrInvalidParams, format, err)
	}
	return s, nil
}
