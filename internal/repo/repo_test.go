package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// --- fake DB ---

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return noRow{}
}

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

// --- RunRepo ---

func TestRunRepo_Create(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	r := NewRunRepo(db)

	run := domain.NewRun("backup", domain.TriggerSchedule)
	run.Vars = map[string]string{"target": "C:/out"}

	if err := r.Create(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(db.calls))
	}
	call := db.calls[0]
	if !strings.Contains(call.sql, "INSERT INTO runs") {
		t.Errorf("unexpected query: %s", call.sql)
	}
	if call.args[0] != run.ID {
		t.Errorf("first arg should be run ID, got %v", call.args[0])
	}
	if call.args[2] != (*string)(nil) {
		t.Errorf("empty flow path should be NULL, got %v", call.args[2])
	}
	if string(call.args[5].([]byte)) != `{"target":"C:/out"}` {
		t.Errorf("unexpected vars JSON: %s", call.args[5])
	}
}

func TestRunRepo_Finish(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	r := NewRunRepo(db)

	run := domain.NewRun("backup", domain.TriggerManual)
	run.MarkFailed("step x failed")

	if err := r.Finish(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := *(db.calls[0].args[3].(*string)); got != "step x failed" {
		t.Errorf("error arg = %q", got)
	}

	db.tag = pgconn.NewCommandTag("UPDATE 0")
	if err := r.Finish(context.Background(), run); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	db.err = errors.New("connection reset")
	if err := r.Finish(context.Background(), run); err == nil {
		t.Error("expected error")
	}
}

func TestRunRepo_SaveStep(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	r := NewRunRepo(db)

	runID := uuid.New()
	err := r.SaveStep(context.Background(), runID, domain.StepRecord{
		Index:    2,
		StepID:   "copy",
		Type:     "file.copy",
		Name:     "Copy report",
		Result:   domain.Success("copied"),
		Duration: 1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := db.calls[0].args
	if args[5] != "SUCCESS" {
		t.Errorf("status arg = %v", args[5])
	}
	if args[7] != int64(1500) {
		t.Errorf("duration arg = %v", args[7])
	}
}

func TestRunRepo_GetByID_NotFound(t *testing.T) {
	r := NewRunRepo(&fakeDB{})

	if _, err := r.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS run_steps") {
		t.Error("schema should create run_steps")
	}
}

// --- MemoryRunRepo ---

func TestMemoryRunRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepo(2)

	base := time.Now()
	var runs []*domain.Run
	for i, name := range []string{"a", "b", "c"} {
		run := domain.NewRun(name, domain.TriggerManual)
		run.StartedAt = base.Add(time.Duration(i) * time.Second)
		if err := r.Create(ctx, run); err != nil {
			t.Fatalf("create: %v", err)
		}
		runs = append(runs, run)
	}

	// Самый старый run вытеснен
	if _, err := r.GetByID(ctx, runs[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest run should be evicted, got %v", err)
	}

	rec := domain.StepRecord{Index: 0, StepID: "s", Result: domain.Success(nil)}
	if err := r.SaveStep(ctx, runs[2].ID, rec); err != nil {
		t.Fatalf("save step: %v", err)
	}
	rec.Result = domain.Failure("boom")
	if err := r.SaveStep(ctx, runs[2].ID, rec); err != nil {
		t.Fatalf("save step: %v", err)
	}
	if err := r.SaveStep(ctx, uuid.New(), rec); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	runs[2].MarkFailed("boom")
	if err := r.Finish(ctx, runs[2]); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := r.GetByID(ctx, runs[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.RunStatusFailed || len(got.Steps) != 1 || !got.Steps[0].Result.Failed() {
		t.Errorf("unexpected run: %+v", got)
	}

	list, err := r.List(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].FlowName != "c" || list[1].FlowName != "b" {
		t.Errorf("unexpected list order: %+v", list)
	}
	if list[0].Steps != nil {
		t.Error("list should not include steps")
	}

	list, _ = r.List(ctx, RunFilter{Status: domain.RunStatusFailed})
	if len(list) != 1 || list[0].FlowName != "c" {
		t.Errorf("status filter failed: %+v", list)
	}

	list, _ = r.List(ctx, RunFilter{FlowName: "b"})
	if len(list) != 1 {
		t.Errorf("flow filter failed: %+v", list)
	}

	list, _ = r.List(ctx, RunFilter{Limit: 1, Offset: 1})
	if len(list) != 1 || list[0].FlowName != "b" {
		t.Errorf("pagination failed: %+v", list)
	}

	list, _ = r.List(ctx, RunFilter{Offset: 5})
	if len(list) != 0 {
		t.Errorf("offset past end should be empty: %+v", list)
	}
}

// --- HistoryObserver ---

func TestHistoryObserver(t *testing.T) {
	store := NewMemoryRunRepo(10)
	obs := NewHistoryObserver(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	run := domain.NewRun("flow", domain.TriggerManual)

	obs.RunStarted(ctx, run)
	obs.StepStarted(ctx, run, &domain.Step{ID: "a"}, 0)
	obs.StepCompleted(ctx, run, domain.StepRecord{Index: 0, StepID: "a", Result: domain.Success(nil)})

	// Отмена run не мешает записать итог
	cancel()
	run.MarkCancelled("context canceled")
	obs.RunFinished(ctx, run)

	got, err := store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.RunStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", got.Status)
	}
	if len(got.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(got.Steps))
	}

	// Ошибки хранилища не паникуют
	failing := NewHistoryObserver(NewRunRepo(&fakeDB{err: errors.New("down")}), nil)
	failing.RunStarted(context.Background(), run)
	failing.RunFinished(context.Background(), run)
}
