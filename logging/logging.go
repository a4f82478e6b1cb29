// Package logging hands out component-scoped structured loggers.
//
// The library never replaces the process default logger; by default every
// component logs through slog.Default with a component attribute, and an
// embedding application can redirect all library output with SetBase.
package logging

import (
	"log/slog"
	"sync"
)

var (
	mu   sync.RWMutex
	base *slog.Logger
)

// SetBase redirects all library logging to l. Passing nil restores
// slog.Default.
func SetBase(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// ForComponent returns a logger scoped to one library component.
func ForComponent(name string) *slog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "notifybridge."+name)
}
