package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

const (
	// TypeCommandRun — тип действия запуска команды.
	TypeCommandRun = "command.run"

	// defaultCommandTimeout — таймаут по умолчанию в секундах.
	defaultCommandTimeout = 60
)

// CommandAction — запуск внешней команды или скрипта.
//
// Параметры:
//
//	{
//	    "command": "backup.bat {{ now.date }}",
//	    "working_dir": "C:/tools",
//	    "timeout": 60,        // секунды (можно дробные), 0 — без ограничения
//	    "shell": true,        // запуск через cmd /C или sh -c; false — разбор по правилам shell
//	    "output_var": "out",  // сохранить stdout (без пробелов по краям)
//	    "encoding": "cp932"   // кодировка вывода
//	}
//
// Ненулевой код возврата даёт результат FAILED с заполненными
// stdout, stderr и exit_code.
type CommandAction struct {
	// shellArgs — аргументы запуска команды через оболочку.
	shellArgs func(command string) []string
}

// NewCommandAction создаёт новый CommandAction.
func NewCommandAction() *CommandAction {
	return &CommandAction{shellArgs: defaultShell}
}

// Type возвращает тип действия.
func (a *CommandAction) Type() string {
	return TypeCommandRun
}

// Describe возвращает описание действия.
func (a *CommandAction) Describe() Spec {
	return Spec{
		Type:        TypeCommandRun,
		Category:    "command",
		DisplayName: "Run command",
		Description: "Runs an executable, batch file or shell command.",
		Params: []Param{
			{Name: "command", Type: "string", Required: true},
			{Name: "working_dir", Type: "string"},
			{Name: "timeout", Type: "number", Default: defaultCommandTimeout, Description: "seconds, 0 disables the timeout"},
			{Name: "shell", Type: "bool", Default: true, Description: "false splits the command into arguments with shell quoting rules"},
			{Name: "output_var", Type: "string", Description: "variable that receives trimmed stdout"},
			{Name: "encoding", Type: "string", Default: "utf-8"},
		},
	}
}

// Execute запускает команду и ждёт завершения.
func (a *CommandAction) Execute(ctx context.Context, req *Request) (*domain.StepResult, error) {
	command := req.String("command", "")
	if err := requireParam(TypeCommandRun, "command", command); err != nil {
		return nil, err
	}

	workDir := req.String("working_dir", "")
	if workDir != "" {
		if _, err := os.Stat(workDir); err != nil {
			return nil, fmt.Errorf("working directory does not exist: %s", workDir)
		}
	}

	enc, err := lookupEncoding(req.String("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}

	var args []string
	if req.Bool("shell", true) {
		args = a.shellArgs(command)
	} else {
		args, err = shellwords.Parse(command)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: command: %v", ErrInvalidParams, TypeCommandRun, err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s: command is empty", ErrInvalidParams, TypeCommandRun)
		}
	}

	timeout := req.Float("timeout", defaultCommandTimeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workDir
	// Дочерние процессы оболочки могут держать pipe открытым после kill
	cmd.WaitDelay = time.Second
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	stdout := decodeText(stdoutBuf.Bytes(), enc)
	stderr := decodeText(stderrBuf.Bytes(), enc)

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %gs", timeout)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrActionCancelled, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("command failed to start: %w", runErr)
		}
	}

	exitCode := cmd.ProcessState.ExitCode()

	if outVar := req.String("output_var", ""); outVar != "" {
		req.Vars.Set(outVar, strings.TrimSpace(stdout))
	}

	output := fmt.Sprintf("exit code: %d", exitCode)
	if stdout != "" {
		output += "\nstdout: " + truncate(stdout, 200)
	}

	result := &domain.StepResult{
		Status:   domain.StepStatusSuccess,
		Output:   output,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
	}
	if exitCode != 0 {
		result.Status = domain.StepStatusFailed
		result.Error = fmt.Sprintf("exit code: %d", exitCode)
	}
	return result, nil
}

// defaultShell возвращает аргументы запуска через оболочку ОС.
func defaultShell(command string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

// truncate обрезает строку до n символов.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
