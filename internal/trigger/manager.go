package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/LocalAutomator/internal/actions"
	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/telemetry"
)

// Default configuration values.
const (
	defaultTickInterval  = time.Second
	defaultWatchInterval = 2 * time.Second
)

// Firing — одно срабатывание триггера.
type Firing struct {
	// Trigger — копия определения на момент срабатывания.
	Trigger domain.Trigger

	// Vars — переменные для run (для folder_watch: trigger.new_file).
	Vars map[string]string

	// At — время срабатывания.
	At time.Time
}

// FireFunc запускает flow по срабатыванию триггера.
type FireFunc func(ctx context.Context, f Firing)

// Manager управляет триггерами.
//
// Manager:
//   - Хранит определения триггеров в JSON-файле
//   - Раз в TickInterval проверяет расписания
//   - Раз в WatchInterval опрашивает наблюдаемые папки
//   - Запускает FireFunc в отдельной горутине, по одному run на flow
type Manager struct {
	storePath     string
	fire          FireFunc
	tickInterval  time.Duration
	watchInterval time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu       sync.RWMutex
	triggers map[string]*domain.Trigger

	// saveMu сериализует чтение-изменение-запись файла.
	saveMu sync.Mutex

	// Состояние цикла, доступно только из Run.
	nextFire map[string]time.Time
	folders  map[string]*folderState

	locksMu   sync.Mutex
	flowLocks map[string]*sync.Mutex

	wg sync.WaitGroup
}

// Config — конфигурация Manager.
type Config struct {
	// StorePath — путь к triggers.json. Пустой — без сохранения.
	StorePath string

	// Fire — обработчик срабатываний.
	Fire FireFunc

	TickInterval  time.Duration // проверка расписаний (default: 1s)
	WatchInterval time.Duration // опрос папок (default: 2s)

	Logger *slog.Logger
}

// NewManager создаёт новый Manager.
func NewManager(cfg Config) *Manager {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}

	watch := cfg.WatchInterval
	if watch <= 0 {
		watch = defaultWatchInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fire := cfg.Fire
	if fire == nil {
		fire = func(context.Context, Firing) {}
	}

	return &Manager{
		storePath:     cfg.StorePath,
		fire:          fire,
		tickInterval:  tick,
		watchInterval: watch,
		logger:        logger,
		now:           time.Now,
		triggers:      make(map[string]*domain.Trigger),
		nextFire:      make(map[string]time.Time),
		folders:       make(map[string]*folderState),
		flowLocks:     make(map[string]*sync.Mutex),
	}
}

// Load читает определения триггеров из файла.
// Отсутствующий файл означает пустой список.
func (m *Manager) Load() error {
	if m.storePath == "" {
		return nil
	}

	list, err := m.readStore()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.triggers = make(map[string]*domain.Trigger, len(list))
	for i := range list {
		t := list[i]
		if t.ID == "" {
			continue
		}
		m.triggers[t.ID] = &t
	}
	return nil
}

// Add добавляет и сохраняет триггер.
// Пустой ID заменяется сгенерированным.
func (m *Manager) Add(t domain.Trigger) (*domain.Trigger, error) {
	if err := Validate(&t); err != nil {
		return nil, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()[:8]
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}

	m.mu.RLock()
	_, exists := m.triggers[t.ID]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrTriggerExists, t.ID)
	}

	err := m.update(func(stored map[string]*domain.Trigger) error {
		if _, ok := stored[t.ID]; ok {
			return fmt.Errorf("%w: %s", ErrTriggerExists, t.ID)
		}
		saved := t
		stored[t.ID] = &saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.triggers[t.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTriggerExists, t.ID)
	}
	m.triggers[t.ID] = &t
	m.mu.Unlock()

	m.logger.Info("trigger added",
		"trigger_id", t.ID,
		"kind", t.Kind,
		"flow_path", t.FlowPath,
	)

	created := t
	return &created, nil
}

// Remove удаляет триггер.
func (m *Manager) Remove(id string) error {
	if !m.has(id) {
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}

	err := m.update(func(stored map[string]*domain.Trigger) error {
		delete(stored, id)
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.triggers, id)
	m.mu.Unlock()

	m.logger.Info("trigger removed", "trigger_id", id)
	return nil
}

// SetEnabled включает или выключает триггер.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	if !m.has(id) {
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}

	err := m.update(func(stored map[string]*domain.Trigger) error {
		if t, ok := stored[id]; ok {
			t.Enabled = enabled
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if t, ok := m.triggers[id]; ok {
		t.Enabled = enabled
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.triggers[id]
	return ok
}

// Get возвращает копию триггера.
func (m *Manager) Get(id string) (domain.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.triggers[id]
	if !exists {
		return domain.Trigger{}, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}
	return *t, nil
}

// List возвращает копии всех триггеров в порядке создания.
func (m *Manager) List() []domain.Trigger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedTriggers(m.triggers)
}

func sortedTriggers(triggers map[string]*domain.Trigger) []domain.Trigger {
	list := make([]domain.Trigger, 0, len(triggers))
	for _, t := range triggers {
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// readStore читает файл определений. Отсутствующий файл — пустой список.
func (m *Manager) readStore() ([]domain.Trigger, error) {
	data, err := os.ReadFile(m.storePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read triggers: %w", err)
	}

	var list []domain.Trigger
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse triggers: %w", err)
	}
	return list, nil
}

// update перечитывает файл, применяет fn и записывает результат.
// Файл может менять и другой процесс (CLI), поэтому изменения
// применяются к его текущему содержимому, а не к копии в памяти.
func (m *Manager) update(fn func(stored map[string]*domain.Trigger) error) error {
	if m.storePath == "" {
		return nil
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	list, err := m.readStore()
	if err != nil {
		return err
	}

	stored := make(map[string]*domain.Trigger, len(list))
	for i := range list {
		if list[i].ID != "" {
			stored[list[i].ID] = &list[i]
		}
	}

	if err := fn(stored); err != nil {
		return err
	}
	return m.writeStore(sortedTriggers(stored))
}

// writeStore записывает файл через временный файл в том же каталоге.
func (m *Manager) writeStore(list []domain.Trigger) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal triggers: %w", err)
	}

	dir := filepath.Dir(m.storePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.storePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write triggers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write triggers: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.storePath); err != nil {
		return fmt.Errorf("replace triggers: %w", err)
	}
	return nil
}

// Run запускает цикл триггеров и блокируется до отмены ctx.
// Перед возвратом ждёт завершения запущенных flow.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("starting trigger manager",
		"triggers", len(m.List()),
		"tick_interval", m.tickInterval,
		"watch_interval", m.watchInterval,
	)

	tick := time.NewTicker(m.tickInterval)
	defer tick.Stop()
	watch := time.NewTicker(m.watchInterval)
	defer watch.Stop()

	// Первая проверка сразу: interval-триггеры срабатывают при старте
	m.checkSchedules(ctx)
	m.checkFolders(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("trigger manager stopping, waiting for running flows")
			m.wg.Wait()
			return nil
		case <-tick.C:
			m.checkSchedules(ctx)
		case <-watch.C:
			m.checkFolders(ctx)
		}
	}
}

// snapshot возвращает включённые триггеры указанного вида.
func (m *Manager) snapshot(kind domain.TriggerKind) []domain.Trigger {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []domain.Trigger
	for _, t := range m.triggers {
		if t.Enabled && t.Kind == kind {
			list = append(list, *t)
		}
	}
	return list
}

// checkSchedules запускает триггеры, у которых наступило время.
func (m *Manager) checkSchedules(ctx context.Context) {
	now := m.now()
	active := make(map[string]bool)

	for _, t := range m.snapshot(domain.TriggerKindSchedule) {
		active[t.ID] = true

		next, seen := m.nextFire[t.ID]
		if !seen {
			// interval срабатывает сразу, daily и cron ждут своего времени
			if t.ScheduleType == domain.ScheduleInterval {
				next = now
			} else {
				var err error
				if next, err = NextFire(&t, now); err != nil {
					m.logger.Error("invalid schedule", "trigger_id", t.ID, "error", err)
					continue
				}
			}
			m.nextFire[t.ID] = next
		}

		if now.Before(next) {
			continue
		}

		following, err := NextFire(&t, now)
		if err != nil {
			m.logger.Error("invalid schedule", "trigger_id", t.ID, "error", err)
			delete(m.nextFire, t.ID)
			continue
		}
		m.nextFire[t.ID] = following

		m.dispatch(ctx, t, nil, now)
	}

	for id := range m.nextFire {
		if !active[id] {
			delete(m.nextFire, id)
		}
	}
}

// checkFolders опрашивает наблюдаемые папки.
func (m *Manager) checkFolders(ctx context.Context) {
	active := make(map[string]bool)

	for _, t := range m.snapshot(domain.TriggerKindFolderWatch) {
		active[t.ID] = true

		state, seen := m.folders[t.ID]
		if !seen {
			m.folders[t.ID] = newFolderState(t.WatchFolder, t.Pattern())
			continue
		}

		added, err := state.poll(t.WatchFolder, t.Pattern())
		if err != nil {
			m.logger.Warn("folder poll failed", "trigger_id", t.ID, "folder", t.WatchFolder, "error", err)
			continue
		}

		for _, path := range added {
			m.dispatch(ctx, t, map[string]string{actions.TriggerNewFileVar: path}, m.now())
		}
	}

	for id := range m.folders {
		if !active[id] {
			delete(m.folders, id)
		}
	}
}

// dispatch запускает FireFunc в горутине. Запуски одного flow
// выполняются последовательно.
func (m *Manager) dispatch(ctx context.Context, t domain.Trigger, vars map[string]string, at time.Time) {
	logger := telemetry.WithTriggerID(m.logger, t.ID)
	logger.Info("trigger fired", "kind", t.Kind, "flow_path", t.FlowPath)

	m.recordFire(t.ID, at)

	lock := m.flowLock(t.FlowPath)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("trigger handler panic", "panic", p)
			}
		}()

		lock.Lock()
		defer lock.Unlock()

		m.fire(ctx, Firing{Trigger: t, Vars: vars, At: at})
	}()
}

// recordFire сохраняет время срабатывания.
// В файле меняется только время срабатывания этого триггера.
func (m *Manager) recordFire(id string, at time.Time) {
	m.mu.Lock()
	if t, ok := m.triggers[id]; ok {
		t.RecordFire(at)
	}
	m.mu.Unlock()

	err := m.update(func(stored map[string]*domain.Trigger) error {
		if t, ok := stored[id]; ok {
			t.RecordFire(at)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("failed to save triggers", "trigger_id", id, "error", err)
	}
}

// flowLock возвращает мьютекс flow.
func (m *Manager) flowLock(flowPath string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.flowLocks[flowPath]
	if !ok {
		lock = &sync.Mutex{}
		m.flowLocks[flowPath] = lock
	}
	return lock
}
