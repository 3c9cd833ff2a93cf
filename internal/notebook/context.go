package notebook

import (
	"encoding/json"
	"strings"

	"nbclient/internal/logging"
)

// CellContext is the per-cell slice of the AI grounding context. Outputs are
// flattened to display text so the provider sees what the user sees.
type CellContext struct {
	ID      string   `json:"id"`
	Type    CellType `json:"type"`
	Source  string   `json:"source"`
	Outputs []string `json:"outputs"`
}

// Context is the serialized snapshot of notebook state handed to the AI
// provider as grounding context for a chat turn.
type Context struct {
	NotebookID     string        `json:"notebook_id"`
	Cells          []CellContext `json:"cells"`
	SelectedCellID string        `json:"selected_cell_id,omitempty"`
	CellCount      int           `json:"cell_count"`
}

// BuildContext produces the AI grounding snapshot for a notebook.
// It is a pure function of its inputs: no execution, no mutation.
func BuildContext(notebookID string, cells []Cell, selectedCellID string) Context {
	out := Context{
		NotebookID:     notebookID,
		Cells:          make([]CellContext, 0, len(cells)),
		SelectedCellID: selectedCellID,
		CellCount:      len(cells),
	}

	for _, cell := range cells {
		out.Cells = append(out.Cells, CellContext{
			ID:      cell.ID,
			Type:    cell.CellType,
			Source:  cell.Source,
			Outputs: flattenOutputs(cell.Outputs),
		})
	}

	logging.Get(logging.CategoryContext).Debug("built context for notebook %s (%d cells)", notebookID, len(cells))
	return out
}

// flattenOutputs renders each output as display text: stream text verbatim,
// errors as "EName: EValue", rich data as its JSON encoding.
func flattenOutputs(outputs []CellOutput) []string {
	// Always non-nil so the serialized context carries [] rather than null.
	flat := make([]string, 0, len(outputs))
	for _, o := range outputs {
		switch o.Type {
		case OutputStream:
			flat = append(flat, o.Text)
		case OutputError:
			flat = append(flat, o.Ename+": "+o.Evalue)
		case OutputExecuteResult, OutputDisplayData:
			if o.Data != nil {
				data, err := json.Marshal(o.Data)
				if err == nil {
					flat = append(flat, string(data))
					continue
				}
			}
			flat = append(flat, o.Text)
		default:
			if o.Text != "" {
				flat = append(flat, o.Text)
			}
		}
	}
	return flat
}

// OutputText joins a cell's flattened outputs into one block, used when a
// single string is needed (e.g. readCellOutput results).
func OutputText(cell *Cell) string {
	return strings.Join(flattenOutputs(cell.Outputs), "\n")
}
