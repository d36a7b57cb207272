// automator — инструмент командной строки Local Automator.
//
// Использование:
//
//	automator [--home DIR] [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить flow локально
//	validate  Проверить файл flow
//	flows     Список flows
//	actions   Список типов шагов
//	trigger   Управление триггерами
//	remote    Работа с демоном через HTTP API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/LocalAutomator/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// Ctrl+C отменяет текущий run: шаги останавливаются, run получает CANCELLED
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := cli.NewRootCmd(cli.NewEnv(), version)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
