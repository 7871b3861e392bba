package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"go.uber.org/zap"
)

// Registry maps strategy names to factories so strategies can be selected
// at runtime and rebuilt with new parameters by the optimizers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

// NewRegistry creates an empty strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    l,
	}
}

// Register adds a factory under the given name, replacing any previous one
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Factory retrieves a factory by name
func (r *Registry) Factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// New builds the named strategy with the given parameters
func (r *Registry) New(name string, params core.ParameterSet) (Strategy, error) {
	f, ok := r.Factory(name)
	if !ok {
		return nil, core.WrapError(core.ErrUnknownName, fmt.Errorf("%q (known: %v)", name, r.Names()))
	}

	s, err := f(params)
	if err != nil {
		r.logger.Warn("strategy construction failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Debug("strategy created",
		zap.String("strategy", name),
		zap.String("description", s.Description()),
	)
	return s, nil
}

// Names returns registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
