package actions

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell")
	}
}

func TestCommandAction_Success(t *testing.T) {
	skipOnWindows(t)

	vars := engine.NewContext()
	res, err := runAction(t, TypeCommandRun, map[string]any{
		"command":    "echo hello; echo oops 1>&2",
		"output_var": "greeting",
	}, vars)
	require.NoError(t, err)

	assert.Equal(t, domain.StepStatusSuccess, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.True(t, strings.HasPrefix(res.Output.(string), "exit code: 0"))

	greeting, err := vars.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", greeting)
}

func TestCommandAction_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	res, err := runAction(t, TypeCommandRun, map[string]any{
		"command": "echo partial; exit 3",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StepStatusFailed, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", res.Stdout)
	assert.Equal(t, "exit code: 3", res.Error)
}

func TestCommandAction_WorkingDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	res, err := runAction(t, TypeCommandRun, map[string]any{
		"command":     "pwd",
		"working_dir": dir,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, strings.TrimSpace(dir[strings.LastIndex(dir, "/")+1:]))

	_, err = runAction(t, TypeCommandRun, map[string]any{
		"command":     "pwd",
		"working_dir": dir + "/missing",
	}, nil)
	assert.Error(t, err)
}

func TestCommandAction_NoShell(t *testing.T) {
	skipOnWindows(t)

	res, err := runAction(t, TypeCommandRun, map[string]any{
		"command": "echo a;b",
		"shell":   false,
	}, nil)
	require.NoError(t, err)
	// Без оболочки ";" не разделяет команды
	assert.Equal(t, "a;b\n", res.Stdout)
}

func TestCommandAction_NoShellQuotedArgs(t *testing.T) {
	skipOnWindows(t)

	script := filepath.Join(t.TempDir(), "my tools", "show args.sh")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nfor a in \"$@\"; do printf '[%s]' \"$a\"; done\n"), 0o755))

	res, err := runAction(t, TypeCommandRun, map[string]any{
		"command": `"` + script + `" "a b" 'c d' e`,
		"shell":   false,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStatusSuccess, res.Status)
	assert.Equal(t, "[a b][c d][e]", res.Stdout)

	_, err = runAction(t, TypeCommandRun, map[string]any{
		"command": `"unterminated`,
		"shell":   false,
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCommandAction_FractionalTimeout(t *testing.T) {
	skipOnWindows(t)

	start := time.Now()
	_, err := runAction(t, TypeCommandRun, map[string]any{
		"command": "sleep 5",
		"timeout": "0.5",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after 0.5s")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandAction_Timeout(t *testing.T) {
	skipOnWindows(t)

	start := time.Now()
	_, err := runAction(t, TypeCommandRun, map[string]any{
		"command": "sleep 5",
		"timeout": 1,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandAction_Cancelled(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	action := NewCommandAction()
	_, err := action.Execute(ctx, NewRequest("s", map[string]any{"command": "sleep 5", "timeout": 0}, nil))
	assert.ErrorIs(t, err, ErrActionCancelled)
}

func TestCommandAction_MissingCommand(t *testing.T) {
	_, err := runAction(t, TypeCommandRun, map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
