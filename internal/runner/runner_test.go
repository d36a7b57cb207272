package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

// --- test helpers ---

type stubAction struct {
	typ string
	fn  func(ctx context.Context, req *actions.Request) (*domain.StepResult, error)
}

func (a stubAction) Type() string { return a.typ }

func (a stubAction) Execute(ctx context.Context, req *actions.Request) (*domain.StepResult, error) {
	return a.fn(ctx, req)
}

// recorder запоминает выполненные шаги и раскрытое значение "msg".
type recorder struct {
	mu    sync.Mutex
	calls []string
	msgs  map[string]string
}

func (r *recorder) record(stepID, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, stepID)
	r.msgs[stepID] = msg
}

func newTestDispatcher(rec *recorder) *actions.Dispatcher {
	d := actions.NewDispatcher()
	d.Register(actions.NewIfAction())
	d.Register(actions.NewEndIfAction())
	for _, a := range actions.VariableActions() {
		d.Register(a)
	}

	d.Register(stubAction{typ: "test.record", fn: func(_ context.Context, req *actions.Request) (*domain.StepResult, error) {
		msg := req.Raw("msg")
		rec.record(req.StepID, msg)
		res := domain.Success(msg)
		res.Stdout = req.Raw("stdout")
		return res, nil
	}})
	d.Register(stubAction{typ: "test.fail", fn: func(_ context.Context, req *actions.Request) (*domain.StepResult, error) {
		rec.record(req.StepID, "")
		return domain.Failure("boom"), nil
	}})
	d.Register(stubAction{typ: "test.error", fn: func(_ context.Context, req *actions.Request) (*domain.StepResult, error) {
		rec.record(req.StepID, "")
		return nil, actions.ErrInvalidParams
	}})
	d.Register(stubAction{typ: "test.panic", fn: func(_ context.Context, _ *actions.Request) (*domain.StepResult, error) {
		panic("kaboom")
	}})
	return d
}

func newTestRunner(t *testing.T, observers ...Observer) (*Runner, *recorder) {
	t.Helper()
	rec := &recorder{msgs: make(map[string]string)}
	r := New(Config{
		Dispatcher: newTestDispatcher(rec),
		Observers:  observers,
	})
	return r, rec
}

func step(id, typ string, params map[string]any) domain.Step {
	return domain.Step{ID: id, Type: typ, Params: params}
}

func ifStep(id, left, right string) domain.Step {
	return step(id, domain.StepTypeIf, map[string]any{"left": left, "operator": "=", "right": right})
}

func endif(id string) domain.Step {
	return step(id, domain.StepTypeEndIf, nil)
}

func record(id string) domain.Step {
	return step(id, "test.record", nil)
}

func statuses(run *domain.Run) map[string]domain.StepStatus {
	out := make(map[string]domain.StepStatus, len(run.Steps))
	for _, rec := range run.Steps {
		out[rec.StepID] = rec.Result.Status
	}
	return out
}

func runFlow(t *testing.T, r *Runner, steps ...domain.Step) *domain.Run {
	t.Helper()
	run, err := r.Run(context.Background(), &domain.Flow{Name: "test", Actions: steps}, Options{})
	require.NoError(t, err)
	return run
}

// --- tests ---

func TestRun_Sequential(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r, record("a"), record("b"), record("c"))

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, []string{"a", "b", "c"}, rec.calls)
	require.Len(t, run.Steps, 3)
	for i, s := range run.Steps {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, domain.StepStatusSuccess, s.Result.Status)
	}
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, domain.TriggerManual, run.Trigger)
}

func TestRun_EmptyFlow(t *testing.T) {
	r, _ := newTestRunner(t)

	run := runFlow(t, r)

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Empty(t, run.Steps)
}

func TestRun_NilFlow(t *testing.T) {
	r, _ := newTestRunner(t)

	_, err := r.Run(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNilFlow)
}

func TestRun_ExpandsVariablesAndResults(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r,
		step("set", actions.TypeVarSet, map[string]any{"name": "target", "value": "C:/out"}),
		step("first", "test.record", map[string]any{"msg": "copy to {{target}}"}),
		step("second", "test.record", map[string]any{"msg": "{{first.output}} ({{first.status}})"}),
	)

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, "copy to C:/out", rec.msgs["first"])
	assert.Equal(t, "copy to C:/out (SUCCESS)", rec.msgs["second"])
}

func TestRun_Vars(t *testing.T) {
	r, rec := newTestRunner(t)

	flow := &domain.Flow{Name: "vars", Actions: []domain.Step{
		step("a", "test.record", map[string]any{"msg": "{{input}}|{{flow.name}}|{{run.id}}"}),
	}}
	run, err := r.Run(context.Background(), flow, Options{
		Trigger: domain.TriggerFolderWatch,
		Vars:    map[string]string{"input": "report.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, "report.csv|vars|"+run.ID.String(), rec.msgs["a"])
	assert.Equal(t, domain.TriggerFolderWatch, run.Trigger)
	assert.Equal(t, "report.csv", run.Vars["input"])
}

func TestRun_PresetRunID(t *testing.T) {
	r, _ := newTestRunner(t)
	id := uuid.New()

	run, err := r.Run(context.Background(), &domain.Flow{Name: "preset"}, Options{RunID: id})
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
}

func TestRun_DisabledStepNotExecuted(t *testing.T) {
	r, rec := newTestRunner(t)

	disabled := record("b")
	disabled.Enabled = domain.BoolPtr(false)

	run := runFlow(t, r, record("a"), disabled, record("c"))

	assert.Equal(t, []string{"a", "c"}, rec.calls)
	assert.Equal(t, domain.StepStatusSkipped, statuses(run)["b"])
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
}

func TestRun_Condition(t *testing.T) {
	tests := []struct {
		name     string
		left     string
		expected []string
	}{
		{"true runs block", "x", []string{"before", "inside", "after"}},
		{"false skips block", "y", []string{"before", "after"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestRunner(t)

			run := runFlow(t, r,
				record("before"),
				ifStep("check", tt.left, "x"),
				record("inside"),
				endif("end"),
				record("after"),
			)

			assert.Equal(t, tt.expected, rec.calls)
			assert.Equal(t, domain.RunStatusSucceeded, run.Status)

			st := statuses(run)
			assert.Equal(t, domain.StepStatusSuccess, st["check"])
			assert.Equal(t, domain.StepStatusSuccess, st["end"])
			assert.Len(t, run.Steps, 5)
		})
	}
}

func TestRun_FalseConditionRecordsFlag(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r,
		ifStep("check", "a", "b"),
		record("inside"),
		endif("end"),
		step("after", "test.record", map[string]any{"msg": "{{check.condition_met}}"}),
	)

	assert.Equal(t, domain.StepStatusSkipped, statuses(run)["inside"])
	assert.Equal(t, "false", rec.msgs["after"])
}

func TestRun_NestedSkippedBlock(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r,
		ifStep("outer", "a", "b"), // false
		record("o1"),
		ifStep("inner", "x", "x"), // не вычисляется
		record("i1"),
		endif("inner_end"),
		record("o2"), // всё ещё внутри outer
		endif("outer_end"),
		record("after"),
	)

	assert.Equal(t, []string{"after"}, rec.calls)

	st := statuses(run)
	assert.Equal(t, domain.StepStatusSkipped, st["o1"])
	assert.Equal(t, domain.StepStatusSkipped, st["inner"])
	assert.Equal(t, domain.StepStatusSkipped, st["i1"])
	assert.Equal(t, domain.StepStatusSkipped, st["o2"])
	assert.Equal(t, domain.StepStatusSuccess, st["after"])
}

func TestRun_NestedFalseInsideTrue(t *testing.T) {
	r, rec := newTestRunner(t)

	runFlow(t, r,
		ifStep("outer", "x", "x"),
		record("o1"),
		ifStep("inner", "a", "b"),
		record("i1"),
		endif("inner_end"),
		record("o2"),
		endif("outer_end"),
	)

	assert.Equal(t, []string{"o1", "o2"}, rec.calls)
}

func TestRun_FailedIfSkipsBlock(t *testing.T) {
	r, rec := newTestRunner(t)

	broken := step("broken", domain.StepTypeIf, map[string]any{"left": "a", "operator": "~~", "right": "a"})
	broken.ContinueOnError = true

	run := runFlow(t, r,
		ifStep("outer", "x", "x"),
		record("outer_body"),
		broken,
		record("inside_failed_if"),
		endif("broken_end"),
		record("after_inner"), // всё ещё внутри outer
		endif("outer_end"),
		record("after"),
	)

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, []string{"outer_body", "after_inner", "after"}, rec.calls)

	st := statuses(run)
	assert.Equal(t, domain.StepStatusFailed, st["broken"])
	assert.Equal(t, domain.StepStatusSkipped, st["inside_failed_if"])
}

func TestRun_DisabledIfRunsBlock(t *testing.T) {
	r, rec := newTestRunner(t)

	cond := ifStep("check", "a", "b")
	cond.Enabled = domain.BoolPtr(false)

	run := runFlow(t, r,
		cond,
		record("inside"),
		endif("end"),
		ifStep("second", "a", "b"),
		record("skipped"),
		endif("end2"),
		record("after"),
	)

	assert.Equal(t, []string{"inside", "after"}, rec.calls)
	assert.Equal(t, domain.StepStatusSkipped, statuses(run)["check"])
}

func TestRun_FailureStops(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r, record("a"), step("bad", "test.fail", nil), record("c"))

	assert.Equal(t, []string{"a", "bad"}, rec.calls)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "bad")
	assert.Contains(t, run.Error, "boom")
	assert.Len(t, run.Steps, 2)
}

func TestRun_ActionErrorFailsStep(t *testing.T) {
	r, _ := newTestRunner(t)

	run := runFlow(t, r, step("bad", "test.error", nil))

	require.Len(t, run.Steps, 1)
	res := run.Steps[0].Result
	assert.Equal(t, domain.StepStatusFailed, res.Status)
	assert.Contains(t, res.Error, "invalid action params")
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestRun_ContinueOnError(t *testing.T) {
	r, rec := newTestRunner(t)

	bad := step("bad", "test.fail", nil)
	bad.ContinueOnError = true

	run := runFlow(t, r, bad, step("next", "test.record", map[string]any{"msg": "{{bad.error_message}}"}))

	assert.Equal(t, []string{"bad", "next"}, rec.calls)
	assert.Equal(t, "boom", rec.msgs["next"])
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.CountByStatus(domain.StepStatusFailed))
}

func TestRun_UnknownType(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r, step("x", "nope.nothing", nil), record("after"))

	assert.Empty(t, rec.calls)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Steps[0].Result.Error, "unknown action type")
}

func TestRun_UndefinedReference(t *testing.T) {
	r, rec := newTestRunner(t)

	run := runFlow(t, r, step("x", "test.record", map[string]any{"msg": "{{missing.output}}"}))

	assert.Empty(t, rec.calls)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Steps[0].Result.Error, "undefined reference")
	assert.Contains(t, run.Steps[0].Result.Error, "missing.output")
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	r, _ := newTestRunner(t)

	run := runFlow(t, r, step("p", "test.panic", nil))

	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Steps[0].Result.Error, "kaboom")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	r, rec := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := r.Run(ctx, &domain.Flow{Actions: []domain.Step{record("a")}}, Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCancelled, run.Status)
	assert.Empty(t, rec.calls)
	assert.Empty(t, run.Steps)
}

func TestRun_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls []string
	d := actions.NewDispatcher()
	d.Register(stubAction{typ: "test.cancel", fn: func(_ context.Context, req *actions.Request) (*domain.StepResult, error) {
		calls = append(calls, req.StepID)
		cancel()
		return domain.Success(nil), nil
	}})
	r := New(Config{Dispatcher: d})

	run, err := r.Run(ctx, &domain.Flow{Actions: []domain.Step{
		step("a", "test.cancel", nil),
		step("b", "test.cancel", nil),
	}}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, calls)
	assert.Equal(t, domain.RunStatusCancelled, run.Status)
	assert.NotEmpty(t, run.Error)
}

func TestRun_DoesNotMutateFlow(t *testing.T) {
	r, _ := newTestRunner(t)

	flow := &domain.Flow{Actions: []domain.Step{{Type: "test.record"}}}
	run, err := r.Run(context.Background(), flow, Options{})
	require.NoError(t, err)

	assert.Equal(t, "step_0", run.Steps[0].StepID)
	assert.Equal(t, "unnamed_flow", run.FlowName)
	assert.Empty(t, flow.Actions[0].ID)
	assert.Empty(t, flow.Name)
}

func TestRun_Observers(t *testing.T) {
	var mu sync.Mutex
	var events []string
	add := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	obs := ObserverFuncs{
		OnRunStarted: func(_ context.Context, run *domain.Run) {
			add("run:" + string(run.Status))
		},
		OnStepStarted: func(_ context.Context, _ *domain.Run, step *domain.Step, _ int) {
			add("start:" + step.ID)
		},
		OnStepCompleted: func(_ context.Context, _ *domain.Run, rec domain.StepRecord) {
			add("done:" + rec.StepID + ":" + string(rec.Result.Status))
		},
		OnRunFinished: func(_ context.Context, run *domain.Run) {
			add("finished:" + string(run.Status))
		},
	}
	panicky := ObserverFuncs{
		OnRunStarted: func(context.Context, *domain.Run) { panic("observer bug") },
	}

	r, _ := newTestRunner(t, panicky, obs)

	disabled := record("b")
	disabled.Enabled = domain.BoolPtr(false)
	run := runFlow(t, r, record("a"), disabled)

	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.Equal(t, []string{
		"run:RUNNING",
		"start:a",
		"done:a:SUCCESS",
		"done:b:SKIPPED",
		"finished:SUCCEEDED",
	}, events)
}

func TestRun_LogFile(t *testing.T) {
	rec := &recorder{msgs: make(map[string]string)}
	dir := t.TempDir()
	r := New(Config{Dispatcher: newTestDispatcher(rec), LogDir: dir})

	run, err := r.Run(context.Background(), &domain.Flow{Name: "Log test", Actions: []domain.Step{
		step("noisy", "test.record", map[string]any{"stdout": strings.Repeat("x", 600)}),
		ifStep("check", "a", "b"),
		record("inside"),
		endif("end"),
	}}, Options{})
	require.NoError(t, err)

	require.NotEmpty(t, run.LogPath)
	assert.Equal(t, dir, filepath.Dir(run.LogPath))
	assert.True(t, strings.HasSuffix(run.LogPath, "_Log test.log"))

	data, err := os.ReadFile(run.LogPath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "=== flow started: Log test ===")
	assert.Contains(t, content, "[1/4] start: test.record (type=test.record)")
	assert.Contains(t, content, "  stdout: "+strings.Repeat("x", 500)+"\n")
	assert.NotContains(t, content, strings.Repeat("x", 501))
	assert.Contains(t, content, "[2/4] IF: condition.if -> FALSE (skip)")
	assert.Contains(t, content, "[3/4] skipped: test.record")
	assert.Contains(t, content, "[4/4] ENDIF: condition.endif")
	assert.Contains(t, content, "=== flow finished: Log test (SUCCEEDED) ===")

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `, line)
	}
}

func TestRunFile(t *testing.T) {
	r, rec := newTestRunner(t)
	dir := t.TempDir()

	flow := domain.Flow{Name: "from file", Actions: []domain.Step{record("a")}}
	data, err := json.Marshal(flow)
	require.NoError(t, err)
	path := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	run, err := r.RunFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, run.FlowPath)
	assert.Equal(t, "from file", run.FlowName)
	assert.Equal(t, []string{"a"}, rec.calls)
}

func TestRunFile_Errors(t *testing.T) {
	r, _ := newTestRunner(t)
	dir := t.TempDir()

	_, err := r.RunFile(context.Background(), filepath.Join(dir, "missing.json"), Options{})
	assert.ErrorIs(t, err, ErrLoadFlow)

	unbalanced := `{"name":"x","actions":[{"id":"a","type":"condition.endif"}]}`
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(unbalanced), 0o644))

	_, err = r.RunFile(context.Background(), path, Options{})
	assert.ErrorIs(t, err, ErrInvalidFlow)
	assert.ErrorIs(t, err, engine.ErrUnbalancedCondition)
}

func TestBlockState(t *testing.T) {
	var s blockState

	assert.False(t, s.Skipping())
	assert.False(t, s.Close())

	s.Open(false)
	assert.False(t, s.Skipping())

	s.Open(true)
	assert.True(t, s.Skipping())

	// Вложенный блок внутри пропускаемого тоже пропускается
	s.Open(false)
	assert.True(t, s.Skipping())
	assert.Equal(t, 3, s.Depth())

	assert.True(t, s.Close())
	assert.True(t, s.Skipping())
	assert.True(t, s.Close())
	assert.False(t, s.Skipping())
	assert.True(t, s.Close())
	assert.Equal(t, 0, s.Depth())
}
