// Package repo хранит историю выполнения run.
//
// RunRepo пишет в PostgreSQL через pgx, MemoryRunRepo держит последние
// run в памяти. HistoryObserver подключает любое из хранилищ к runner.
package repo
