package router

import (
	"github.com/tribal-ehr/hl7engine/pkg/hl7"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
)

// ErrNoHandler is the DLQ reason recorded when no registered handler matches
// a message's (messageCode, triggerEvent).
const ErrNoHandler = "no handler"

// ErrHandlerException is the DLQ reason recorded when a handler returns an
// error or panics, and also when it reports an unsuccessful Outcome.
const ErrHandlerException = "handler exception"

// Router dispatches parsed messages to a Registry, translates the outcome
// into an ACK via hl7.BuildACK, and dead-letters anything it could not
// process. Routing itself never time-bounds a handler call; that is the
// handler's own responsibility.
type Router struct {
	registry *Registry
	dlq      *DeadLetterQueue
	logger   *monitoring.Logger
}

// Config configures a Router's dead-letter queue size.
type Config struct {
	MaxDeadLetterSize int // default 1000
}

// New creates a Router backed by registry.
func New(registry *Registry, cfg Config, logger *monitoring.Logger) *Router {
	return &Router{
		registry: registry,
		dlq:      NewDeadLetterQueue(cfg.MaxDeadLetterSize),
		logger:   logger,
	}
}

// DLQ returns the router's dead-letter queue, for operator inspection.
func (r *Router) DLQ() *DeadLetterQueue {
	return r.dlq
}

// Route looks up a handler for msg, invokes it, and returns the ACK that
// should be sent back to the originator. Route itself never returns an
// error: dispatch failures are absorbed into the DLQ and surfaced as an AE
// or AR ACK instead (spec §7 — routing errors never propagate to the I/O
// loop).
func (r *Router) Route(msg *hl7.Message) *hl7.Message {
	handler, ok := r.registry.Lookup(msg.Header.MessageCode, msg.Header.TriggerEvent)
	if !ok {
		reason := "no handler registered for " + registrationLabel(msg.Header.MessageCode, msg.Header.TriggerEvent)
		r.dlq.Add(msg.Header.ControlID, ErrNoHandler, reason, msg.Raw)
		return r.mustACK(msg, hl7.AckReject, reason)
	}

	outcome, err := r.invoke(handler, msg)
	if err != nil {
		r.dlq.Add(msg.Header.ControlID, ErrHandlerException, err.Error(), msg.Raw)
		return r.mustACK(msg, hl7.AckError, err.Error())
	}

	if !outcome.Success {
		r.dlq.Add(msg.Header.ControlID, ErrHandlerException, outcome.ErrorMessage, msg.Raw)
	}

	return r.mustACK(msg, outcome.AckCode, outcome.ErrorMessage)
}

// invoke calls handler, recovering a panic into an error so a misbehaving
// handler dead-letters the message instead of taking down the connection
// goroutine that called Route.
func (r *Router) invoke(handler Handler, msg *hl7.Message) (outcome Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicToError(p)
		}
	}()
	return handler(msg)
}

func (r *Router) mustACK(msg *hl7.Message, code hl7.AckCode, errMsg string) *hl7.Message {
	ack, err := hl7.BuildACK(msg, code, errMsg)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("router: failed to build ACK for control ID %s: %v", msg.Header.ControlID, err)
		}
		return nil
	}
	return ack
}

// Retry removes controlID from the DLQ (if present) and re-routes its
// stored message. If dispatch fails again, the standard Route path
// re-inserts it into the DLQ with attempts bumped further. Retry reports
// whether a dead-lettered message for controlID was found at all.
func (r *Router) Retry(controlID string) (*hl7.Message, bool) {
	entry, ok := r.dlq.Remove(controlID)
	if !ok {
		return nil, false
	}

	msg, err := hl7.Parse(entry.Message)
	if err != nil {
		r.dlq.Add(controlID, entry.Reason, "retry: failed to reparse stored message: "+err.Error(), entry.Message)
		return nil, true
	}

	return r.Route(msg), true
}
