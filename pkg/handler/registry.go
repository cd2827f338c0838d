package handler

import (
	"fmt"
	"sort"
	"sync"

	"esghandlers/pkg/config"
)

// Factory builds a handler for a project.
type Factory func(project string, opts Options) (ProjectHandler, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a handler available under name. It panics when name is
// already taken, matching how duplicate entry points are a packaging bug.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("handler: Register factory is nil for " + name)
	}
	if _, dup := registry[name]; dup {
		panic("handler: Register called twice for " + name)
	}
	registry[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered handler names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandlerName resolves the handler configured for project through the
// project_handler option, falling back to the project name.
func HandlerName(project string, cfg Config) string {
	if cfg == nil {
		return project
	}
	return cfg.Get(config.ProjectSection(project), "project_handler", project)
}

// NewProjectHandler builds the handler configured for project.
func NewProjectHandler(project string, opts Options) (ProjectHandler, error) {
	name := HandlerName(project, opts.Config)

	factory, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (project %s)", ErrUnknownHandler, name, project)
	}

	return factory(project, opts)
}
