// Package trigger запускает flow автоматически.
//
// Поддерживаются два вида триггеров:
//   - schedule — по интервалу, ежедневно в заданное время или по cron-выражению
//   - folder_watch — при появлении нового файла в папке
//
// Manager хранит определения в data/triggers.json и вызывает FireFunc
// при срабатывании. Запуски одного flow выполняются по очереди.
package trigger
