// Package cli реализует инструмент командной строки automator.
//
// # Обзор
//
// Локальные команды (run, validate, flows, actions, trigger) работают
// с каталогом automator напрямую: flows/, logs/, data/triggers.json.
// Команды remote обращаются к HTTP API демона.
//
// # Ключевые компоненты
//
// ## Env
//
// Значения глобальных флагов (--home, --json, --api-url, --log-level)
// и лениво загруженная конфигурация. Команды получают *Env и читают
// конфигурацию только после разбора флагов.
//
// ## Client
//
// HTTP-клиент для API демона. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8090")
//	runs, err := client.ListRuns(cli.ListRunsOpts{Limit: 10})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: automator flows --json | jq .
package cli
