package actions

import (
	"fmt"
	"sort"
	"sync"
)

// Dispatcher — реестр действий по типу шага.
//
// Позволяет регистрировать и получать реализации Action по тегу
// "category.action". Потокобезопасен.
type Dispatcher struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewDispatcher создаёт пустой диспетчер.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		actions: make(map[string]Action),
	}
}

// DefaultDispatcher создаёт диспетчер со всеми стандартными действиями.
func DefaultDispatcher() *Dispatcher {
	d := NewDispatcher()

	for _, a := range FileActions() {
		d.Register(a)
	}
	for _, a := range VariableActions() {
		d.Register(a)
	}
	d.Register(NewCommandAction())
	d.Register(NewIfAction())
	d.Register(NewEndIfAction())
	d.Register(NewScheduleTriggerAction())
	d.Register(NewFolderWatchTriggerAction())
	d.Register(NewHTTPAction())
	d.Register(NewDelayAction())
	d.Register(NewScriptAction())

	return d
}

// Register регистрирует действие.
// Если действие с таким типом уже существует, оно будет перезаписано.
func (d *Dispatcher) Register(action Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions[action.Type()] = action
}

// Resolve возвращает действие по тегу типа.
// Возвращает ErrUnknownActionType, если действие не зарегистрировано.
func (d *Dispatcher) Resolve(typeTag string) (Action, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	action, exists := d.actions[typeTag]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, typeTag)
	}

	return action, nil
}

// Has проверяет, зарегистрировано ли действие.
func (d *Dispatcher) Has(typeTag string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.actions[typeTag]
	return exists
}

// Types возвращает отсортированный список зарегистрированных типов.
func (d *Dispatcher) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := make([]string, 0, len(d.actions))
	for t := range d.actions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных действий.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.actions)
}

// Unregister удаляет действие из реестра.
func (d *Dispatcher) Unregister(typeTag string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.actions, typeTag)
}

// Describe возвращает описания всех действий, отсортированные по типу.
// Для действий без Describer описание содержит только тип.
func (d *Dispatcher) Describe() []Spec {
	types := d.Types()

	d.mu.RLock()
	defer d.mu.RUnlock()

	specs := make([]Spec, 0, len(types))
	for _, t := range types {
		if desc, ok := d.actions[t].(Describer); ok {
			specs = append(specs, desc.Describe())
			continue
		}
		specs = append(specs, Spec{Type: t, Category: categoryOf(t), DisplayName: t})
	}
	return specs
}

// categoryOf возвращает часть тега до точки.
func categoryOf(typeTag string) string {
	for i := 0; i < len(typeTag); i++ {
		if typeTag[i] == '.' {
			return typeTag[:i]
		}
	}
	return typeTag
}
