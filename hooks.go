package enginelink

import (
	"sync"

	"github.com/agentstation/enginelink/pkg/resources"
)

// Hook function types for view and connection events
type (
	// RecordAddedHook is called when a record appears in a merged view
	RecordAddedHook func(record resources.Record)

	// RecordUpdatedHook is called when the record of an id changes in a merged view
	RecordUpdatedHook func(old, new resources.Record)

	// RecordRemovedHook is called when a record leaves a merged view
	RecordRemovedHook func(record resources.Record)

	// StateChangeHook is called after every connection state transition
	StateChangeHook func(from, to State)
)

// hooks manages event callbacks. Record hooks run on the observer loop and
// must not call Client methods that wait for it.
type hooks struct {
	mu              sync.RWMutex
	onRecordAdded   []RecordAddedHook
	onRecordUpdated []RecordUpdatedHook
	onRecordRemoved []RecordRemovedHook
	onStateChange   []StateChangeHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnRecordAdded registers a callback for records added to any view
func (c *Client) OnRecordAdded(fn RecordAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordAdded = append(c.hooks.onRecordAdded, fn)
}

// OnRecordUpdated registers a callback for records updated in any view
func (c *Client) OnRecordUpdated(fn RecordUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordUpdated = append(c.hooks.onRecordUpdated, fn)
}

// OnRecordRemoved registers a callback for records removed from any view
func (c *Client) OnRecordRemoved(fn RecordRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordRemoved = append(c.hooks.onRecordRemoved, fn)
}

// OnStateChange registers a callback for connection state transitions
func (c *Client) OnStateChange(fn StateChangeHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onStateChange = append(c.hooks.onStateChange, fn)
}

// triggerViewUpdate compares two sequences of a view and fires record hooks
func (h *hooks) triggerViewUpdate(old, new []resources.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.onRecordAdded)+len(h.onRecordUpdated)+len(h.onRecordRemoved) == 0 {
		return
	}

	oldByID := make(map[string]resources.Record, len(old))
	for _, r := range old {
		oldByID[r.ID] = r
	}
	newByID := make(map[string]struct{}, len(new))

	for _, r := range new {
		newByID[r.ID] = struct{}{}
		prev, exists := oldByID[r.ID]
		switch {
		case !exists:
			for _, hook := range h.onRecordAdded {
				hook(r)
			}
		case prev != r:
			for _, hook := range h.onRecordUpdated {
				hook(prev, r)
			}
		}
	}

	for _, r := range old {
		if _, exists := newByID[r.ID]; !exists {
			for _, hook := range h.onRecordRemoved {
				hook(r)
			}
		}
	}
}

func (h *hooks) triggerStateChange(from, to State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStateChange {
		hook(from, to)
	}
}
