package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// stubChecker — набор известных типов для проверки Validate.
type stubChecker map[string]bool

func (s stubChecker) Has(stepType string) bool { return s[stepType] }

func TestValidate_NilFlow(t *testing.T) {
	if err := Validate(nil, nil); !errors.Is(err, ErrNilFlow) {
		t.Errorf("expected ErrNilFlow, got %v", err)
	}
}

func TestValidate_EmptyFlow(t *testing.T) {
	if err := Validate(&domain.Flow{Name: "empty"}, nil); err != nil {
		t.Errorf("empty flow should be valid, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		steps   []domain.Step
		known   TypeChecker
		wantErr error
	}{
		{
			name:    "empty step ID",
			steps:   []domain.Step{{ID: "", Type: "file.copy"}},
			wantErr: ErrEmptyStepID,
		},
		{
			name: "duplicate step ID",
			steps: []domain.Step{
				{ID: "s1", Type: "file.copy"},
				{ID: "s1", Type: "file.move"},
			},
			wantErr: ErrDuplicateStepID,
		},
		{
			name:    "empty type",
			steps:   []domain.Step{{ID: "s1"}},
			wantErr: ErrEmptyStepType,
		},
		{
			name:    "unknown type",
			steps:   []domain.Step{{ID: "s1", Type: "file.teleport"}},
			known:   stubChecker{"file.copy": true},
			wantErr: ErrUnknownActionType,
		},
		{
			name: "endif without if",
			steps: []domain.Step{
				{ID: "e", Type: domain.StepTypeEndIf},
			},
			wantErr: ErrUnbalancedCondition,
		},
		{
			name: "if without endif",
			steps: []domain.Step{
				{ID: "i1", Type: domain.StepTypeIf},
				{ID: "i2", Type: domain.StepTypeIf},
				{ID: "e", Type: domain.StepTypeEndIf},
			},
			wantErr: ErrUnbalancedCondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&domain.Flow{Name: "f", Actions: tt.steps}, tt.known)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ValidFlow(t *testing.T) {
	flow := &domain.Flow{
		Name: "valid",
		Actions: []domain.Step{
			{ID: "s1", Type: "variable.set"},
			{ID: "if1", Type: domain.StepTypeIf},
			{ID: "if2", Type: domain.StepTypeIf, Enabled: domain.BoolPtr(false)},
			{ID: "s2", Type: "file.copy"},
			{ID: "end2", Type: domain.StepTypeEndIf},
			{ID: "end1", Type: domain.StepTypeEndIf},
		},
	}
	known := stubChecker{
		"variable.set":       true,
		"file.copy":          true,
		domain.StepTypeIf:    true,
		domain.StepTypeEndIf: true,
	}

	if err := Validate(flow, known); err != nil {
		t.Errorf("expected valid flow, got %v", err)
	}
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
		"name": "backup",
		"actions": [
			{"id": "mk", "type": "file.create_folder", "params": {"path": "out"}},
			{"type": "file.copy", "enabled": false, "params": {"src": "a", "dst": "b"}}
		]
	}`)

	flow, err := Parse(data, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if flow.Name != "backup" {
		t.Errorf("expected name backup, got %s", flow.Name)
	}
	if len(flow.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(flow.Actions))
	}
	if !flow.Actions[0].IsEnabled() {
		t.Error("omitted enabled should mean true")
	}
	if flow.Actions[1].IsEnabled() {
		t.Error("second step should be disabled")
	}
	// Пустой ID заполняется по индексу
	if flow.Actions[1].ID != "step_1" {
		t.Errorf("expected step_1, got %s", flow.Actions[1].ID)
	}
	if flow.Actions[1].DisplayName() != "file.copy" {
		t.Errorf("display name should default to type, got %s", flow.Actions[1].DisplayName())
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
name: nightly
actions:
  - id: run
    type: command.run
    continue_on_error: true
    params:
      command: echo hi
      timeout: 5
`)

	flow, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	step := flow.Actions[0]
	if step.Type != "command.run" || !step.ContinueOnError {
		t.Errorf("unexpected step: %+v", step)
	}
	if step.Params["timeout"] != 5 {
		t.Errorf("expected timeout 5, got %v (%T)", step.Params["timeout"], step.Params["timeout"])
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte(`{not json`), FormatJSON); !errors.Is(err, ErrInvalidFlow) {
		t.Errorf("expected ErrInvalidFlow, got %v", err)
	}
	if _, err := Parse([]byte(`{}`), Format("toml")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSaveAndLoadFlow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flows", "отчёт.json")

	flow := &domain.Flow{
		Name:        "Ежедневный отчёт",
		Description: "<copy> & report",
		Actions: []domain.Step{
			{ID: "s1", Type: "variable.set", Params: map[string]any{"name": "x", "value": "1"}},
		},
	}

	if err := SaveFlow(path, flow); err != nil {
		t.Fatalf("SaveFlow: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "Ежедневный отчёт") {
		t.Error("non-ASCII text should be written as is")
	}
	if !strings.Contains(string(raw), "<copy> & report") {
		t.Error("HTML characters should not be escaped")
	}

	loaded, err := LoadFlow(path)
	if err != nil {
		t.Fatalf("LoadFlow: %v", err)
	}
	if loaded.Name != flow.Name || len(loaded.Actions) != 1 {
		t.Errorf("loaded flow differs: %+v", loaded)
	}
}

func TestLoadFlow_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFlow(filepath.Join(dir, "flow.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := LoadFlow(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}
