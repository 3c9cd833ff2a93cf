package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"nbclient/internal/logging"
	"nbclient/internal/notebook"
	"nbclient/internal/transport"
)

// EventHandler receives demuxed execution events.
type EventHandler func(ev Event)

// Session coordinates one kernel's live socket connection and event
// delivery. At most one socket is live per session; reconnection is handled
// by the transport layer and is invisible here beyond state changes.
type Session struct {
	kernelID string
	conn     *transport.Conn

	mu     sync.RWMutex
	status notebook.KernelStatus

	subMu  sync.RWMutex
	nextID int
	subs   map[int]EventHandler

	unsubMsg   transport.Unsubscribe
	unsubState transport.Unsubscribe
}

// New creates a session for the given kernel over the given connection.
// The caller retains ownership of conn configuration; the session registers
// its frame handler immediately so no frame is missed after Connect.
func New(kernelID string, conn *transport.Conn) *Session {
	s := &Session{
		kernelID: kernelID,
		conn:     conn,
		status:   notebook.KernelStarting,
		subs:     make(map[int]EventHandler),
	}

	s.unsubMsg = conn.OnMessage(s.handleFrame)
	s.unsubState = conn.OnStateChange(func(st transport.State) {
		if st == transport.StateDisconnected {
			logging.SessionDebug("kernel %s transport disconnected", kernelID)
		}
	})

	return s
}

// KernelID returns the kernel this session is bound to.
func (s *Session) KernelID() string {
	return s.kernelID
}

// Connect dials the kernel's streaming endpoint.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("session connect kernel %s: %w", s.kernelID, err)
	}
	logging.Session("kernel %s session connected", s.kernelID)
	return nil
}

// Close tears down the session permanently.
func (s *Session) Close() {
	s.unsubMsg()
	s.unsubState()
	s.conn.Close()
	logging.Session("kernel %s session closed", s.kernelID)
}

// ConnState reports the underlying transport state.
func (s *Session) ConnState() transport.State {
	return s.conn.State()
}

// Status returns the cached kernel status mirror.
func (s *Session) Status() notebook.KernelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Execute sends an execute frame for the given cell. The request is
// buffered by the transport if the socket is down; completion is observed
// via subscribed events, not a return value.
func (s *Session) Execute(code, cellID string) error {
	s.setStatus(notebook.KernelBusy)
	return s.conn.Send(Frame{
		Type:     frameExecute,
		KernelID: s.kernelID,
		Code:     code,
		CellID:   cellID,
	})
}

// Interrupt sends a best-effort interrupt signal. The client's authority
// ends at delivering the signal; the kernel decides when to stop.
func (s *Session) Interrupt() error {
	return s.conn.Send(Frame{Type: frameInterrupt, KernelID: s.kernelID})
}

// Ping sends a keepalive frame.
func (s *Session) Ping() error {
	return s.conn.Send(Frame{Type: framePing})
}

// Subscribe registers an event handler and returns its unsubscribe func.
// Events for a given cell are delivered in receipt order.
func (s *Session) Subscribe(h EventHandler) transport.Unsubscribe {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = h
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// handleFrame demuxes one inbound frame into a typed event.
func (s *Session) handleFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		logging.SessionWarn("kernel %s: dropping malformed frame: %v", s.kernelID, err)
		return
	}

	switch f.Type {
	case frameExecutionStart:
		s.setStatus(notebook.KernelBusy)
		s.emit(Event{Type: EventStarted, KernelID: s.kernelID, CellID: f.CellID})

	case frameOutput, frameStream, frameExecuteResult:
		s.emit(Event{
			Type:     EventOutput,
			KernelID: s.kernelID,
			CellID:   f.CellID,
			Output:   outputFromFrame(&f),
		})

	case frameExecutionComplete:
		s.setStatus(notebook.KernelIdle)
		count := 0
		if f.ExecutionCount != nil {
			count = *f.ExecutionCount
		}
		s.emit(Event{
			Type:           EventCompleted,
			KernelID:       s.kernelID,
			CellID:         f.CellID,
			ExecutionCount: count,
			Status:         f.Status,
			DurationMs:     f.DurationMs,
		})

	case frameError:
		s.setStatus(notebook.KernelIdle)
		s.emit(Event{
			Type:     EventError,
			KernelID: s.kernelID,
			CellID:   f.CellID,
			Message:  f.Message,
		})

	case frameInterrupted:
		s.setStatus(notebook.KernelIdle)
		s.emit(Event{Type: EventInterrupted, KernelID: s.kernelID, CellID: f.CellID})

	case frameStatus:
		st := notebook.KernelStatus(f.Status)
		s.setStatus(st)
		s.emit(Event{Type: EventStatus, KernelID: s.kernelID, KernelStatus: st})

	case framePong:
		// Keepalive reply; nothing to deliver.

	default:
		logging.SessionDebug("kernel %s: ignoring unknown frame type %q", s.kernelID, f.Type)
	}
}

func (s *Session) setStatus(st notebook.KernelStatus) {
	if st == "" {
		return
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// emit delivers an event to all subscribers synchronously, preserving
// receipt order per cell.
func (s *Session) emit(ev Event) {
	s.subMu.RLock()
	handlers := make([]EventHandler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
