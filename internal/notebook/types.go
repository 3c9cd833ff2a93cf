// Package notebook defines the client-side data model for notebooks, cells
// and kernels, plus the context serialization handed to the AI provider.
//
// The backend owns all of this state; nbclient holds a cached mirror. JSON
// tags match the backend wire format exactly.
package notebook

import (
	"time"

	"github.com/google/uuid"
)

// KernelStatus is the lifecycle state of a kernel as reported by the backend.
type KernelStatus string

const (
	KernelStarting   KernelStatus = "starting"
	KernelIdle       KernelStatus = "idle"
	KernelBusy       KernelStatus = "busy"
	KernelRestarting KernelStatus = "restarting"
	KernelDead       KernelStatus = "dead"
)

// Kernel is the client mirror of a running kernel instance.
//
// ExecutionCount is non-decreasing for the lifetime of a kernel id and is
// always taken verbatim from the backend; the client never synthesizes it.
// A restart does not imply a new id - the backend decides identity.
type Kernel struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         KernelStatus `json:"status"`
	ExecutionCount int          `json:"execution_count"`
	NotebookID     string       `json:"notebook_id,omitempty"`
	Connections    int          `json:"connections,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	LastActivity   time.Time    `json:"last_activity"`
}

// CellType distinguishes code cells from markdown cells.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
)

// OutputType tags the CellOutput variant.
type OutputType string

const (
	OutputStream        OutputType = "stream"
	OutputExecuteResult OutputType = "execute_result"
	OutputDisplayData   OutputType = "display_data"
	OutputError         OutputType = "error"
)

// CellOutput is one output entry of a cell. Exactly one payload group is
// populated depending on Type: Text for stream, Data for execute_result and
// display_data, Ename/Evalue/Traceback for error.
type CellOutput struct {
	Type      OutputType     `json:"output_type"`
	Name      string         `json:"name,omitempty"` // stdout or stderr for stream outputs
	Text      string         `json:"text,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Ename     string         `json:"ename,omitempty"`
	Evalue    string         `json:"evalue,omitempty"`
	Traceback []string       `json:"traceback,omitempty"`
}

// Cell is a single notebook cell. Outputs are an ordered, append-only
// sequence owned by the cell; they are cleared only by an explicit clear.
// ExecutionCount is nil until the first successful run.
type Cell struct {
	ID             string         `json:"id"`
	CellType       CellType       `json:"cell_type"`
	Source         string         `json:"source"`
	Outputs        []CellOutput   `json:"outputs"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Notebook is a complete notebook document.
type Notebook struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cells    []Cell `json:"cells"`
	KernelID string `json:"kernel_id,omitempty"`
}

// NewCell creates a cell with a fresh unique id and no outputs.
func NewCell(cellType CellType, source string) Cell {
	return Cell{ID: uuid.NewString(), CellType: cellType, Source: source}
}

// FindCell returns the cell with the given id from cells, or nil.
func FindCell(cells []Cell, id string) *Cell {
	for i := range cells {
		if cells[i].ID == id {
			return &cells[i]
		}
	}
	return nil
}

// CellIndex returns the position of the cell with the given id, or -1.
func CellIndex(cells []Cell, id string) int {
	for i := range cells {
		if cells[i].ID == id {
			return i
		}
	}
	return -1
}
