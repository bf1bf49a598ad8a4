// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named probes reporting runtime state on demand.

package control

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/momentics/hioload-green/api"
)

// DebugProbes maps dotted names such as "sched.threads" to probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// validProbeName accepts non-empty dot-separated segments without blanks.
func validProbeName(name string) bool {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// Register adds or replaces the probe under name. A nil fn removes it.
func (dp *DebugProbes) Register(name string, fn func() any) error {
	if !validProbeName(name) {
		return api.NewError(api.ErrCodeInvalidArgument, "control: bad probe name").WithContext("name", name)
	}
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if fn == nil {
		delete(dp.probes, name)
		return nil
	}
	dp.probes[name] = fn
	return nil
}

// RegisterProbe is Register for callers bound to api.Debug; an invalid
// name is ignored.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	_ = dp.Register(name, fn)
}

// Names returns the registered probe names in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	dp.mu.RUnlock()
	slices.Sort(names)
	return names
}

// DumpState evaluates every probe in name order. Probes run outside the
// registry lock and may themselves register probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for _, name := range slices.Sorted(maps.Keys(fns)) {
		out[name] = fns[name]()
	}
	return out
}
