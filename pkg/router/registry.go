// Package router dispatches parsed HL7v2 messages to registered handlers by
// message type and trigger event, turns the outcome into an ACK, and keeps a
// bounded dead-letter queue of messages that could not be handled.
package router

import (
	"fmt"
	"sync"

	"github.com/tribal-ehr/hl7engine/pkg/hl7"
)

// Outcome is what a Handler reports back to the router after processing a
// message.
type Outcome struct {
	Success      bool
	AckCode      hl7.AckCode
	ErrorMessage string
}

// Handler processes one parsed message and reports how the router should
// acknowledge it. A Handler must be safe for concurrent invocation with
// itself across different messages (spec §5).
type Handler func(msg *hl7.Message) (Outcome, error)

const wildcard = "*"

type registrationKey struct {
	messageCode  string
	triggerEvent string
}

// Registry holds (messageCode, triggerEvent) -> Handler registrations with
// wildcard fallback. A wildcard triggerEvent of "*" matches any trigger for
// that message code; a wildcard messageCode of "*" (with triggerEvent "*")
// matches anything.
type Registry struct {
	mu       sync.RWMutex
	handlers map[registrationKey]Handler
	logger   logger
}

type logger interface {
	Warn(format string, args ...interface{})
}

// NewRegistry creates an empty Registry.
func NewRegistry(lg logger) *Registry {
	return &Registry{
		handlers: make(map[registrationKey]Handler),
		logger:   lg,
	}
}

// Register adds a handler for the given messageCode/triggerEvent pair. Pass
// "*" for triggerEvent to match any trigger of that message code, or "*" for
// both to register a catch-all. Re-registering the same key replaces the
// existing handler and logs a warning.
func (r *Registry) Register(messageCode, triggerEvent string, h Handler) {
	key := registrationKey{messageCode: messageCode, triggerEvent: triggerEvent}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists && r.logger != nil {
		r.logger.Warn("router: replacing existing handler for %s^%s", messageCode, triggerEvent)
	}
	r.handlers[key] = h
}

// Lookup finds the handler for (messageCode, triggerEvent) using the
// exact -> (type,*) -> (*,*) precedence order. The second return value is
// false when no handler matches at any level.
func (r *Registry) Lookup(messageCode, triggerEvent string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[registrationKey{messageCode, triggerEvent}]; ok {
		return h, true
	}
	if h, ok := r.handlers[registrationKey{messageCode, wildcard}]; ok {
		return h, true
	}
	if h, ok := r.handlers[registrationKey{wildcard, wildcard}]; ok {
		return h, true
	}
	return nil, false
}

func registrationLabel(messageCode, triggerEvent string) string {
	return fmt.Sprintf("%s^%s", messageCode, triggerEvent)
}
