package cardmap

import (
	"sync"

	"github.com/agentstation/cardmap/pkg/update"
)

// Verification reasons passed to NamesVerifiedHook.
const (
	ReasonReconciled = "reconciled" // hand-written dictionary entry
	ReasonAccepted   = "accepted"   // local acceptance check
	ReasonAnnotated  = "annotated"  // submitted to the reading service
)

// Hook function types for pipeline events
type (
	// TaskCompletedHook is called after each annotation task is persisted
	TaskCompletedHook func(task update.TaskResult)

	// NamesVerifiedHook is called when names move to the verified set
	NamesVerifiedHook func(names []string, reason string)
)

// Hooks provides event callback registration.
type Hooks interface {
	// OnTaskCompleted registers a callback for completed annotation tasks
	OnTaskCompleted(TaskCompletedHook)

	// OnNamesVerified registers a callback for verified names
	OnNamesVerified(NamesVerifiedHook)
}

// OnTaskCompleted implements Hooks.
func (c *client) OnTaskCompleted(fn TaskCompletedHook) { c.hooks.OnTaskCompleted(fn) }

// OnNamesVerified implements Hooks.
func (c *client) OnNamesVerified(fn NamesVerifiedHook) { c.hooks.OnNamesVerified(fn) }

// hooks manages event callbacks
type hooks struct {
	mu              sync.RWMutex
	onTaskCompleted []TaskCompletedHook
	onNamesVerified []NamesVerifiedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

func (h *hooks) OnTaskCompleted(fn TaskCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTaskCompleted = append(h.onTaskCompleted, fn)
}

func (h *hooks) OnNamesVerified(fn NamesVerifiedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNamesVerified = append(h.onNamesVerified, fn)
}

func (h *hooks) triggerTaskCompleted(task update.TaskResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onTaskCompleted {
		hook(task)
	}
}

func (h *hooks) triggerNamesVerified(names []string, reason string) {
	if len(names) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onNamesVerified {
		hook(names, reason)
	}
}
