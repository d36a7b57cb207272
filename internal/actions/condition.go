package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Операторы сравнения condition.if.
var conditionOperators = []string{
	"=", "!=", ">", "<", ">=", "<=",
	"contains", "not_contains", "starts_with", "ends_with",
	"is_empty", "is_not_empty",
}

// ConditionMetKey — поле результата condition.if с итогом проверки.
const ConditionMetKey = "condition_met"

// IfAction — начало условного блока.
//
// Параметры:
//
//	{"left": "{{count}}", "operator": ">=", "right": "10"}
//
// Результат всегда SUCCESS (кроме неизвестного оператора), итог
// сравнения лежит в Data["condition_met"]. Пропуск блока до парного
// condition.endif выполняет runner.
type IfAction struct{}

// NewIfAction создаёт новый IfAction.
func NewIfAction() *IfAction {
	return &IfAction{}
}

// Type возвращает тип действия.
func (a *IfAction) Type() string {
	return domain.StepTypeIf
}

// Describe возвращает описание действия.
func (a *IfAction) Describe() Spec {
	return Spec{
		Type:        domain.StepTypeIf,
		Category:    "condition",
		DisplayName: "If",
		Description: "Skips the steps up to the matching condition.endif when the comparison is false.",
		Params: []Param{
			{Name: "left", Type: "string", Required: true},
			{Name: "operator", Type: "select", Default: "=", Required: true, Options: conditionOperators},
			{Name: "right", Type: "string"},
		},
	}
}

// Execute вычисляет условие.
func (a *IfAction) Execute(_ context.Context, req *Request) (*domain.StepResult, error) {
	left := req.Raw("left")
	op := req.String("operator", "=")
	right := req.Raw("right")

	met, err := Compare(left, op, right)
	if err != nil {
		return nil, err
	}

	verdict := "FALSE"
	if met {
		verdict = "TRUE"
	}
	return domain.Success(fmt.Sprintf("condition: '%s' %s '%s' -> %s", left, op, right, verdict)).
		WithData(ConditionMetKey, met), nil
}

// Compare сравнивает два значения оператором op.
// Операторы порядка сравнивают числа, если обе стороны — числа,
// иначе строки лексикографически.
func Compare(left, op, right string) (bool, error) {
	switch op {
	case "=", "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case ">", "<", ">=", "<=":
		return compareOrdered(left, op, right), nil
	case "contains":
		return strings.Contains(left, right), nil
	case "not_contains":
		return !strings.Contains(left, right), nil
	case "starts_with":
		return strings.HasPrefix(left, right), nil
	case "ends_with":
		return strings.HasSuffix(left, right), nil
	case "is_empty":
		return strings.TrimSpace(left) == "", nil
	case "is_not_empty":
		return strings.TrimSpace(left) != "", nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidParams, op)
	}
}

func compareOrdered(left, op, right string) bool {
	var cmp int
	lf, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rf, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(left, right)
	}

	switch op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	default:
		return cmp <= 0
	}
}

// EndIfAction — конец условного блока. Ничего не делает.
type EndIfAction struct{}

// NewEndIfAction создаёт новый EndIfAction.
func NewEndIfAction() *EndIfAction {
	return &EndIfAction{}
}

// Type возвращает тип действия.
func (a *EndIfAction) Type() string {
	return domain.StepTypeEndIf
}

// Describe возвращает описание действия.
func (a *EndIfAction) Describe() Spec {
	return Spec{
		Type:        domain.StepTypeEndIf,
		Category:    "condition",
		DisplayName: "End if",
		Description: "Closes the innermost condition.if block.",
	}
}

// Execute возвращает SUCCESS.
func (a *EndIfAction) Execute(_ context.Context, _ *Request) (*domain.StepResult, error) {
	return domain.Success("endif"), nil
}
