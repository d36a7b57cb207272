package actions

import (
	"errors"
	"sort"
	"testing"

	"github.com/shaiso/LocalAutomator/internal/engine"
)

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()

	// Пустой диспетчер
	if d.Count() != 0 {
		t.Errorf("expected empty dispatcher")
	}

	// Регистрация
	d.Register(NewDelayAction())
	if d.Count() != 1 {
		t.Errorf("expected 1 action, got %d", d.Count())
	}

	// Получение
	action, err := d.Resolve("flow.delay")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if action.Type() != "flow.delay" {
		t.Errorf("expected flow.delay, got %s", action.Type())
	}

	// Несуществующий тип
	_, err = d.Resolve("file.teleport")
	if !errors.Is(err, ErrUnknownActionType) {
		t.Errorf("expected ErrUnknownActionType, got %v", err)
	}
	if !errors.Is(err, engine.ErrUnknownActionType) {
		t.Errorf("dispatcher error should match engine sentinel, got %v", err)
	}

	// Has
	if !d.Has("flow.delay") {
		t.Error("should have flow.delay")
	}
	if d.Has("unknown") {
		t.Error("should not have unknown")
	}

	// Unregister
	d.Unregister("flow.delay")
	if d.Has("flow.delay") {
		t.Error("should not have flow.delay after unregister")
	}
}

func TestDefaultDispatcher(t *testing.T) {
	d := DefaultDispatcher()

	expectedTypes := []string{
		"file.create_folder", "file.delete_folder", "file.copy", "file.move",
		"file.delete", "file.rename", "file.list", "file.read_text",
		"file.write_text", "file.append_text",
		"command.run",
		"variable.set", "variable.string_concat", "variable.string_replace",
		"variable.get_date", "variable.math_calc",
		"condition.if", "condition.endif",
		"trigger.schedule", "trigger.folder_watch",
		"http.request", "flow.delay", "script.eval",
	}
	for _, typ := range expectedTypes {
		if !d.Has(typ) {
			t.Errorf("default dispatcher should have %s", typ)
		}
	}

	types := d.Types()
	if len(types) != len(expectedTypes) {
		t.Errorf("expected %d types, got %d", len(expectedTypes), len(types))
	}
	if !sort.StringsAreSorted(types) {
		t.Error("types should be sorted")
	}
}

func TestDispatcher_Describe(t *testing.T) {
	d := DefaultDispatcher()

	specs := d.Describe()
	if len(specs) != d.Count() {
		t.Fatalf("expected %d specs, got %d", d.Count(), len(specs))
	}

	for _, s := range specs {
		if s.Type == "" || s.Category == "" || s.DisplayName == "" {
			t.Errorf("incomplete spec: %+v", s)
		}
		if s.Category != categoryOf(s.Type) {
			t.Errorf("%s: category %s does not match type", s.Type, s.Category)
		}
	}
}

func TestRequest_Params(t *testing.T) {
	req := NewRequest("s1", map[string]any{
		"str":      "  text  ",
		"num":      float64(42),
		"numStr":   "7",
		"floatStr": "2.5",
		"boolStr":  "no",
		"boolTrue": true,
		"headers":  map[string]any{"X-Count": 3},
	}, nil)

	if got := req.String("str", ""); got != "text" {
		t.Errorf("String: got %q", got)
	}
	if got := req.Raw("str"); got != "  text  " {
		t.Errorf("Raw: got %q", got)
	}
	if got := req.String("missing", "def"); got != "def" {
		t.Errorf("String default: got %q", got)
	}
	if got := req.String("num", ""); got != "42" {
		t.Errorf("String of number: got %q", got)
	}
	if got := req.Int("num", 0); got != 42 {
		t.Errorf("Int: got %d", got)
	}
	if got := req.Int("numStr", 0); got != 7 {
		t.Errorf("Int from string: got %d", got)
	}
	if got := req.Float("floatStr", 0); got != 2.5 {
		t.Errorf("Float from string: got %v", got)
	}
	if got := req.Bool("boolStr", true); got {
		t.Error("Bool from \"no\" should be false")
	}
	if got := req.Bool("boolTrue", false); !got {
		t.Error("Bool should be true")
	}
	if got := req.Bool("missing", true); !got {
		t.Error("Bool default should be used")
	}
	if got := req.MapString("headers"); got["X-Count"] != "3" {
		t.Errorf("MapString: got %v", got)
	}
}
