package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Имена компонентов, под которыми пишут подсистемы
const (
	ComponentNetwork = "network"
	ComponentServer  = "server"
	ComponentClient  = "client"
	ComponentHTTP    = "http"
)

// Registry хранит по одному логгеру на компонент
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var registry = &Registry{loggers: make(map[string]*Logger)}

// Get возвращает логгер компонента, создавая его по текущим настройкам.
// Если файл логов открыть не удалось, логгер пишет только в консоль.
func (r *Registry) Get(component string) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[component]; ok {
		return l
	}
	l, err := NewLogger(component)
	if err != nil {
		defaultLogger.Warn("логгер %s без файла: %v", component, err)
		l = consoleOnly(component)
	}
	r.loggers[component] = l
	return l
}

func consoleOnly(component string) *Logger {
	optionsMu.RLock()
	level := options.ConsoleLevel
	optionsMu.RUnlock()

	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: level,
		minFileLevel:    ERROR,
	}
}

// Components перечисляет созданные компоненты по алфавиту
func (r *Registry) Components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLevel меняет пороги уже созданного логгера
func (r *Registry) SetLevel(component string, console, file LogLevel) error {
	r.mu.Lock()
	l, ok := r.loggers[component]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не создан", component)
	}
	l.setLevels(console, file)
	return nil
}

// setLevels применяет пороги ко всем созданным логгерам
func (r *Registry) setLevels(console, file LogLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loggers {
		l.setLevels(console, file)
	}
}

// Close закрывает файлы всех логгеров и очищает реестр
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, l := range r.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие логгера %s: %w", name, err))
		}
	}
	r.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// CloseAll закрывает логгеры общего реестра
func CloseAll() error {
	return registry.Close()
}

func GetNetworkLogger() *Logger { return registry.Get(ComponentNetwork) }

func GetServerLogger() *Logger { return registry.Get(ComponentServer) }

func GetClientLogger() *Logger { return registry.Get(ComponentClient) }

func GetHTTPLogger() *Logger { return registry.Get(ComponentHTTP) }
