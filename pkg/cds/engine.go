package cds

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
)

const defaultServiceTimeout = 10 * time.Second

// EngineConfig configures per-handler invocation timeout.
type EngineConfig struct {
	ServiceTimeout time.Duration // default 10s
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.ServiceTimeout <= 0 {
		c.ServiceTimeout = defaultServiceTimeout
	}
	return c
}

// Engine fans a hook invocation out to every registered handler for that
// hook in parallel, applies a per-handler timeout, and aggregates whatever
// settles successfully (spec §4.7).
type Engine struct {
	registry *Registry
	cfg      EngineConfig
	logger   *monitoring.Logger
}

// NewEngine creates an Engine backed by registry.
func NewEngine(registry *Registry, cfg EngineConfig, logger *monitoring.Logger) *Engine {
	return &Engine{registry: registry, cfg: cfg.withDefaults(), logger: logger}
}

// Discovery returns the discovery document for every registered service.
func (e *Engine) Discovery() []ServiceDescriptor {
	return e.registry.Discovery()
}

// ErrUnknownService is returned by InvokeService when serviceID names no
// registered handler.
var ErrUnknownService = errors.New("cds: unknown service id")

// InvokeService runs exactly the handler registered under serviceID under
// the engine's timeout, matching the CDS Hooks HTTP contract of POSTing to
// a specific service's path rather than fanning out by hook name.
func (e *Engine) InvokeService(serviceID string, req Request) (Response, error) {
	h, ok := e.registry.ByID(serviceID)
	if !ok {
		return Response{}, ErrUnknownService
	}
	if req.HookInstance == "" {
		req.HookInstance = uuid.New().String()
	}

	results := make(chan handlerResult, 1)
	e.invokeOne(0, h, req, results)
	return aggregate([]handlerResult{<-results}), nil
}

// handlerResult carries one handler's outcome back to the aggregator,
// tagged with its registration order so aggregation can preserve it.
type handlerResult struct {
	order int
	resp  Response
	ok    bool
}

// Invoke finds every handler registered for req.Hook, runs them
// concurrently each under its own timeout, and aggregates the cards and
// system actions of whichever handlers complete successfully. An
// individual handler's failure or timeout is logged and excluded from the
// result; it never fails the overall invocation.
func (e *Engine) Invoke(req Request) Response {
	handlers := e.registry.ForHook(req.Hook)
	if req.HookInstance == "" {
		req.HookInstance = uuid.New().String()
	}

	results := make(chan handlerResult, len(handlers))

	for i, h := range handlers {
		go e.invokeOne(i, h, req, results)
	}

	settled := make([]handlerResult, 0, len(handlers))
	for range handlers {
		settled = append(settled, <-results)
	}

	return aggregate(settled)
}

func (e *Engine) invokeOne(order int, h HookHandler, req Request, out chan<- handlerResult) {
	done := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				errCh <- panicToError(p)
			}
		}()
		resp, err := h.Invoke(req)
		if err != nil {
			errCh <- err
			return
		}
		done <- resp
	}()

	select {
	case resp := <-done:
		out <- handlerResult{order: order, resp: resp, ok: true}
	case err := <-errCh:
		if e.logger != nil {
			e.logger.Warn("cds: handler %q failed: %v", h.Descriptor().ID, err)
		}
		out <- handlerResult{order: order, ok: false}
	case <-time.After(e.cfg.ServiceTimeout):
		if e.logger != nil {
			e.logger.Warn("cds: handler %q timed out after %v", h.Descriptor().ID, e.cfg.ServiceTimeout)
		}
		out <- handlerResult{order: order, ok: false}
	}
}

func aggregate(settled []handlerResult) Response {
	ordered := make([]handlerResult, len(settled))
	copy(ordered, settled)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].order < ordered[i].order {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	var out Response
	for _, r := range ordered {
		if !r.ok {
			continue
		}
		for _, card := range r.resp.Cards {
			if card.UUID == "" {
				card.UUID = uuid.New().String()
			}
			out.Cards = append(out.Cards, card)
		}
		out.SystemActions = append(out.SystemActions, r.resp.SystemActions...)
	}
	return out
}

func panicToError(p interface{}) error {
	if err, ok := p.(error); ok {
		return err
	}
	return &panicError{value: p}
}

type panicError struct{ value interface{} }

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}
