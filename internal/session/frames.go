// Package session implements the per-kernel execution session: a state
// machine over one transport.Conn that tracks kernel status and demuxes
// inbound frames into typed execution events.
package session

import "nbclient/internal/notebook"

// Outbound frame types.
const (
	frameExecute   = "execute"
	frameInterrupt = "interrupt"
	framePing      = "ping"
)

// Inbound frame types.
const (
	frameExecutionStart    = "execution_start"
	frameOutput            = "output"
	frameStream            = "stream"
	frameExecuteResult     = "execute_result"
	frameError             = "error"
	frameExecutionComplete = "execution_complete"
	frameInterrupted       = "interrupted"
	frameStatus            = "status"
	framePong              = "pong"
)

// Frame is the wire representation of one streaming message, in either
// direction. Field presence depends on Type.
type Frame struct {
	Type     string `json:"type"`
	KernelID string `json:"kernel_id,omitempty"`
	CellID   string `json:"cell_id,omitempty"`

	// Outbound execute payload.
	Code string `json:"code,omitempty"`

	// Terminal frame payload.
	ExecutionCount *int   `json:"execution_count,omitempty"`
	Status         string `json:"status,omitempty"`
	DurationMs     int64  `json:"duration_ms,omitempty"`
	Message        string `json:"message,omitempty"`

	// Output payload (flattened into the frame by the backend).
	OutputType string         `json:"output_type,omitempty"`
	Name       string         `json:"name,omitempty"`
	Text       string         `json:"text,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Ename      string         `json:"ename,omitempty"`
	Evalue     string         `json:"evalue,omitempty"`
	Traceback  []string       `json:"traceback,omitempty"`
}

// EventType classifies a demuxed execution event.
type EventType string

const (
	EventStarted     EventType = "started"
	EventOutput      EventType = "output"
	EventCompleted   EventType = "completed"
	EventError       EventType = "error"
	EventInterrupted EventType = "interrupted"
	EventStatus      EventType = "status"
)

// Event is one typed execution event delivered to subscribers. CellID
// correlates the event to the cell whose execution produced it; for a given
// cell, Started precedes all Output events, which precede exactly one
// terminal Completed, Error or Interrupted.
type Event struct {
	Type     EventType
	KernelID string
	CellID   string

	// Output is set for EventOutput.
	Output *notebook.CellOutput

	// Terminal payload for EventCompleted. ExecutionCount is the backend's
	// authoritative counter, never synthesized client-side.
	ExecutionCount int
	Status         string
	DurationMs     int64

	// Message is set for EventError.
	Message string

	// KernelStatus is set for EventStatus frames.
	KernelStatus notebook.KernelStatus
}

// outputFromFrame lifts the flattened output fields of a frame into a
// CellOutput. Stream frames without an explicit output_type default to
// stream output.
func outputFromFrame(f *Frame) *notebook.CellOutput {
	out := &notebook.CellOutput{
		Type:      notebook.OutputType(f.OutputType),
		Name:      f.Name,
		Text:      f.Text,
		Data:      f.Data,
		Ename:     f.Ename,
		Evalue:    f.Evalue,
		Traceback: f.Traceback,
	}

	if out.Type == "" {
		switch f.Type {
		case frameStream:
			out.Type = notebook.OutputStream
		case frameExecuteResult:
			out.Type = notebook.OutputExecuteResult
		default:
			out.Type = notebook.OutputStream
		}
	}
	return out
}
