// Package gateway is the execution façade used by the rest of the
// application. It translates intent (execute, interrupt, restart,
// completions, inspection, variables) into either a streaming frame over a
// kernel session or a one-shot REST request, and fans session events out to
// its subscribers.
//
// Streaming is an optimization: every operation has a correct synchronous
// path through the REST client, so execution still works with no live
// socket.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"nbclient/internal/api"
	"nbclient/internal/logging"
	"nbclient/internal/notebook"
	"nbclient/internal/session"
	"nbclient/internal/transport"
)

// OutputHandler receives streamed cell output.
type OutputHandler func(cellID string, output *notebook.CellOutput)

// Gateway multiplexes execution across kernels.
type Gateway struct {
	api      *api.Client
	sessions *session.Manager

	// connectGroup dedupes concurrent ConnectToKernel calls per kernel id.
	connectGroup singleflight.Group

	subMu      sync.RWMutex
	nextID     int
	eventSubs  map[int]session.EventHandler
	outputSubs map[int]OutputHandler

	hookMu sync.Mutex
	hooked map[string]bool // kernel ids whose session events are already fanned out
}

// New creates a Gateway over the given REST client and session manager.
func New(apiClient *api.Client, sessions *session.Manager) *Gateway {
	return &Gateway{
		api:        apiClient,
		sessions:   sessions,
		eventSubs:  make(map[int]session.EventHandler),
		outputSubs: make(map[int]OutputHandler),
		hooked:     make(map[string]bool),
	}
}

// ConnectToKernel establishes (or reuses) the streaming session for a
// kernel. Concurrent calls for the same kernel share one dial.
func (g *Gateway) ConnectToKernel(ctx context.Context, kernelID string) (*session.Session, error) {
	v, err, _ := g.connectGroup.Do(kernelID, func() (any, error) {
		s, err := g.sessions.GetOrCreate(kernelID)
		if err != nil {
			return nil, err
		}
		g.hookSession(s)
		if s.ConnState() == transport.StateConnected {
			return s, nil
		}
		if err := s.Connect(ctx); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

// hookSession fans one session's events out to gateway subscribers.
// Idempotent per kernel id.
func (g *Gateway) hookSession(s *session.Session) {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	if g.hooked[s.KernelID()] {
		return
	}
	g.hooked[s.KernelID()] = true

	s.Subscribe(func(ev session.Event) {
		g.subMu.RLock()
		events := make([]session.EventHandler, 0, len(g.eventSubs))
		for _, h := range g.eventSubs {
			events = append(events, h)
		}
		var outputs []OutputHandler
		if ev.Type == session.EventOutput {
			outputs = make([]OutputHandler, 0, len(g.outputSubs))
			for _, h := range g.outputSubs {
				outputs = append(outputs, h)
			}
		}
		g.subMu.RUnlock()

		for _, h := range events {
			h(ev)
		}
		for _, h := range outputs {
			h(ev.CellID, ev.Output)
		}
	})
}

// OnEvent subscribes to all execution events across kernels.
func (g *Gateway) OnEvent(h session.EventHandler) transport.Unsubscribe {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	id := g.nextID
	g.nextID++
	g.eventSubs[id] = h
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.eventSubs, id)
	}
}

// OnOutput subscribes to streamed cell output across kernels.
func (g *Gateway) OnOutput(h OutputHandler) transport.Unsubscribe {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	id := g.nextID
	g.nextID++
	g.outputSubs[id] = h
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.outputSubs, id)
	}
}

// Execute runs code through the synchronous REST path and returns the full
// result. This path works regardless of streaming session state.
func (g *Gateway) Execute(ctx context.Context, req api.ExecuteRequest) (*api.ExecutionResult, error) {
	if req.CellID == "" {
		// Scratch execution: give it a correlation id so any broadcast
		// output can still be attributed.
		req.CellID = uuid.NewString()
	}
	logging.Gateway("execute kernel=%s cell=%s (sync)", req.KernelID, req.CellID)
	return g.api.Execute(ctx, req)
}

// ExecuteViaWebSocket sends an execute frame over the kernel's streaming
// session, creating and connecting it if needed. Results arrive via
// OnEvent/OnOutput, correlated by cell id.
func (g *Gateway) ExecuteViaWebSocket(ctx context.Context, kernelID, code, cellID string) error {
	s, err := g.ConnectToKernel(ctx, kernelID)
	if err != nil {
		return fmt.Errorf("connect to kernel %s: %w", kernelID, err)
	}
	logging.Gateway("execute kernel=%s cell=%s (stream)", kernelID, cellID)
	return s.Execute(code, cellID)
}

// Cancel delivers a best-effort interrupt. A connected session gets the
// signal in-band; otherwise the REST interrupt endpoint is used. Local
// state shows "interrupted" only once a terminal event arrives.
func (g *Gateway) Cancel(ctx context.Context, kernelID string) error {
	if s := g.sessions.Get(kernelID); s != nil && s.ConnState() == transport.StateConnected {
		return s.Interrupt()
	}
	return g.api.InterruptKernel(ctx, kernelID)
}

// Restart restarts a kernel through the REST API. The existing session (if
// any) stays bound to the kernel id; the backend decides identity.
func (g *Gateway) Restart(ctx context.Context, kernelID string) (*notebook.Kernel, error) {
	return g.api.RestartKernel(ctx, kernelID)
}

// GetCompletions asks the kernel for completions at a cursor position.
func (g *Gateway) GetCompletions(ctx context.Context, kernelID, code string, cursorPos int) (*api.CompletionResult, error) {
	return g.api.Complete(ctx, kernelID, api.CompletionRequest{Code: code, CursorPos: cursorPos})
}

// Inspect asks the kernel for documentation at a cursor position.
func (g *Gateway) Inspect(ctx context.Context, kernelID, code string, cursorPos int) (*api.InspectionResult, error) {
	return g.api.Inspect(ctx, kernelID, api.CompletionRequest{Code: code, CursorPos: cursorPos})
}

// GetVariables lists the kernel namespace.
func (g *Gateway) GetVariables(ctx context.Context, kernelID string) ([]api.Variable, error) {
	return g.api.GetVariables(ctx, kernelID)
}

// Disconnect tears down the streaming session for one kernel.
func (g *Gateway) Disconnect(kernelID string) {
	g.hookMu.Lock()
	delete(g.hooked, kernelID)
	g.hookMu.Unlock()
	g.sessions.Remove(kernelID)
}

// Close tears down all sessions.
func (g *Gateway) Close() {
	g.hookMu.Lock()
	g.hooked = make(map[string]bool)
	g.hookMu.Unlock()
	g.sessions.CloseAll()
}
