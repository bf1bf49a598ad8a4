// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration: build-time defaults and a read-only snapshot store.

package control

import (
	"os"
	"sync"
	"time"

	"github.com/momentics/hioload-green/api"
)

// Build-time defaults.
const (
	// DefaultMaxThreads bounds the number of live threads, main included.
	DefaultMaxThreads = 128

	// DefaultStackSize is the size of the region owned by each created thread.
	DefaultStackSize = 32767

	// DefaultPreemptInterval is the time slice of the round-robin scheduler.
	DefaultPreemptInterval = 50 * time.Millisecond
)

// Config holds parameters immutable for the life of a runtime.
type Config struct {
	MaxThreads int // Maximum live threads including main
	StackSize  int // Bytes reserved per created thread

	// PreemptInterval is the period of the preemption event. Zero disables
	// preemption, leaving only voluntary scheduling points.
	PreemptInterval time.Duration

	// Terminate ends the process once no thread can run. Defaults to os.Exit.
	Terminate func(code int)

	// OnExit, when set, observes every thread exit with its exit value.
	// It runs inside the scheduler critical section and must not call back
	// into the runtime.
	OnExit func(id api.ThreadID, value any)
}

// DefaultConfig returns the build-time configuration.
func DefaultConfig() Config {
	return Config{
		MaxThreads:      DefaultMaxThreads,
		StackSize:       DefaultStackSize,
		PreemptInterval: DefaultPreemptInterval,
		Terminate:       os.Exit,
	}
}

// Validate checks the configuration and fills in a missing Terminate hook.
func (c *Config) Validate() error {
	switch {
	case c.MaxThreads < 2:
		return api.NewError(api.ErrCodeInvalidArgument, "config: MaxThreads must allow main plus one thread").
			WithContext("max_threads", c.MaxThreads)
	case c.StackSize <= 0:
		return api.NewError(api.ErrCodeInvalidArgument, "config: StackSize must be positive").
			WithContext("stack_size", c.StackSize)
	case c.PreemptInterval < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "config: PreemptInterval must not be negative").
			WithContext("preempt_interval", c.PreemptInterval)
	}
	if c.Terminate == nil {
		c.Terminate = os.Exit
	}
	return nil
}

// Snapshot renders the configuration as a flat map.
func (c Config) Snapshot() map[string]any {
	return map[string]any{
		"max_threads":      c.MaxThreads,
		"stack_size":       c.StackSize,
		"preempt_interval": c.PreemptInterval.String(),
	}
}

// ConfigStore is a read-only key/value view over a Config.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
}

// NewConfigStore captures cfg.
func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg.Snapshot()}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig rejects updates: scheduling parameters are fixed per runtime.
func (cs *ConfigStore) SetConfig(map[string]any) error {
	return api.NewError(api.ErrCodeNotSupported, "config: runtime configuration is immutable")
}
