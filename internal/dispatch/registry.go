package dispatch

import (
	"context"
	"fmt"
	"sort"
)

// Handler executes an action with the tokens that followed its name.
// A nil error maps to ExitSuccess; see ExitError for other statuses.
type Handler func(ctx context.Context, args []string) error

// Action is a named unit of work selectable by the first command-line token.
type Action struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry maps action names to actions. It cannot be modified after NewRegistry returns.
type Registry struct {
	actions map[string]Action
	names   []string
}

// NewRegistry builds a registry from actions. It panics on an empty name, a
// nil handler, or a duplicate name, since all of these are wiring mistakes.
func NewRegistry(actions ...Action) *Registry {
	r := &Registry{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if a.Name == "" {
			panic("action name must not be empty")
		}
		if a.Handler == nil {
			panic(fmt.Sprintf("action %s has no handler", a.Name))
		}
		if _, exists := r.actions[a.Name]; exists {
			panic(fmt.Sprintf("action %s already registered", a.Name))
		}
		r.actions[a.Name] = a
		r.names = append(r.names, a.Name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the action registered under name. Matching is exact and case-sensitive.
func (r *Registry) Lookup(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Actions returns the registered actions sorted by name.
func (r *Registry) Actions() []Action {
	out := make([]Action, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.actions[name])
	}
	return out
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	return len(r.names)
}
