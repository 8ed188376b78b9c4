package commands

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered commands and the one run when no name is given.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command // name and aliases map to command
	def    string
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already taken.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for _, n := range names {
		if _, exists := r.byName[n]; exists {
			return fmt.Errorf("command name already registered: %s", n)
		}
	}
	for _, n := range names {
		r.byName[n] = c
	}
	return nil
}

// SetDefault marks a registered command as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("default command not registered: %s", name)
	}
	r.def = name
	return nil
}

// Default returns the default command, if one was set.
func (r *Registry) Default() (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.def == "" {
		return nil, false
	}
	cmd, ok := r.byName[r.def]
	return cmd, ok
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[name]
	return cmd, ok
}

// All returns all unique commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unique := make(map[string]Command)
	for _, cmd := range r.byName {
		unique[cmd.Name()] = cmd
	}

	result := make([]Command, 0, len(unique))
	for _, cmd := range unique {
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}

// RegisterDefault adds a command to the default registry and makes it the
// command run without a name.
func RegisterDefault(c Command) {
	Register(c)
	if err := DefaultRegistry.SetDefault(c.Name()); err != nil {
		panic(err)
	}
}
