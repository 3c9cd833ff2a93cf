package actions

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"nbclient/internal/notebook"
)

// fakeHost is an in-memory notebook used to observe dispatch effects. It
// records every callback invocation in order.
type fakeHost struct {
	cells    []notebook.Cell
	selected string
	nextID   int
	log      []string
}

func newFakeHost(cells ...notebook.Cell) *fakeHost {
	return &fakeHost{cells: cells, nextID: 100}
}

func (h *fakeHost) record(format string, args ...any) {
	h.log = append(h.log, fmt.Sprintf(format, args...))
}

func (h *fakeHost) createCell(cellType notebook.CellType, source string, position int) (string, error) {
	h.nextID++
	id := fmt.Sprintf("c%d", h.nextID)
	cell := notebook.Cell{ID: id, CellType: cellType, Source: source}
	if position < 0 || position >= len(h.cells) {
		h.cells = append(h.cells, cell)
	} else {
		h.cells = append(h.cells[:position], append([]notebook.Cell{cell}, h.cells[position:]...)...)
	}
	h.record("create %s", id)
	return id, nil
}

func (h *fakeHost) editCell(cellID, source string) error {
	for i := range h.cells {
		if h.cells[i].ID == cellID {
			h.cells[i].Source = source
			h.record("edit %s", cellID)
			return nil
		}
	}
	return fmt.Errorf("no such cell: %s", cellID)
}

func (h *fakeHost) deleteCell(cellID string) error {
	for i := range h.cells {
		if h.cells[i].ID == cellID {
			h.cells = append(h.cells[:i], h.cells[i+1:]...)
			h.record("delete %s", cellID)
			return nil
		}
	}
	return fmt.Errorf("no such cell: %s", cellID)
}

// callbacks wires the fake host into a full cell-editing capability table.
func (h *fakeHost) callbacks() *Callbacks {
	return &Callbacks{
		GetCells:          func() []notebook.Cell { return h.cells },
		GetSelectedCellID: func() string { return h.selected },

		OnCreateCell: h.createCell,
		OnEditCell:   h.editCell,
		OnDeleteCell: h.deleteCell,
		OnExecuteCell: func(cellID string) error {
			h.record("execute %s", cellID)
			return nil
		},
		OnSelectCell: func(cellID string) error {
			h.selected = cellID
			h.record("select %s", cellID)
			return nil
		},
		OnMoveCell: func(cellID, direction string) error {
			h.record("move %s %s", cellID, direction)
			return nil
		},
		OnChangeCellType: func(cellID string, cellType notebook.CellType) error {
			for i := range h.cells {
				if h.cells[i].ID == cellID {
					h.cells[i].CellType = cellType
				}
			}
			h.record("changeType %s %s", cellID, cellType)
			return nil
		},
		OnClearOutputs: func(cellID string) error {
			h.record("clearOutputs %s", cellID)
			return nil
		},
		OnClearAllOutputs: func() error {
			h.record("clearAllOutputs")
			return nil
		},
	}
}

func mustResult(t *testing.T, r Result, wantSuccess bool) {
	t.Helper()
	if r.Success != wantSuccess {
		t.Fatalf("Success = %v, want %v (message: %q)", r.Success, wantSuccess, r.Message)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := NewDispatcher(newFakeHost().callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: "formatHardDrive"})
	mustResult(t, r, false)
	if !strings.Contains(r.Message, "Unknown tool") {
		t.Fatalf("Message = %q, want unknown tool", r.Message)
	}
}

func TestDispatch_UnsupportedTool(t *testing.T) {
	// No OnUndo callback wired.
	d := NewDispatcher(newFakeHost().callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: ToolUndo})
	mustResult(t, r, false)
	if r.Message != "undo not supported" {
		t.Fatalf("Message = %q, want undo not supported", r.Message)
	}
}

func TestDispatch_ParamAliasesEquivalent(t *testing.T) {
	for _, key := range []string{"cell_id", "cellId", "id"} {
		t.Run(key, func(t *testing.T) {
			h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "old"})
			d := NewDispatcher(h.callbacks())

			r := d.ProcessAction(context.Background(), Action{
				Tool:   ToolEditCell,
				Params: map[string]any{key: "c1", "code": "new"},
			})
			mustResult(t, r, true)
			if h.cells[0].Source != "new" {
				t.Fatalf("Source = %q, want new", h.cells[0].Source)
			}
		})
	}

	for _, key := range []string{"code", "source", "content", "text"} {
		t.Run(key, func(t *testing.T) {
			h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "old"})
			d := NewDispatcher(h.callbacks())

			r := d.ProcessAction(context.Background(), Action{
				Tool:   ToolEditCell,
				Params: map[string]any{"cell_id": "c1", key: "new"},
			})
			mustResult(t, r, true)
			if h.cells[0].Source != "new" {
				t.Fatalf("Source = %q, want new", h.cells[0].Source)
			}
		})
	}
}

func TestDispatch_NoCellSpecifiedNoSelection(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "x = 1"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: ToolExecuteCode})
	mustResult(t, r, false)
	if r.Message != "No cell specified and no cell selected" {
		t.Fatalf("Message = %q", r.Message)
	}
	if len(h.log) != 0 {
		t.Fatalf("no callback should run, got %v", h.log)
	}
}

func TestDispatch_SelectedCellFallback(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "x = 1"})
	h.selected = "c1"
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: ToolExecuteCode})
	mustResult(t, r, true)
	if len(h.log) != 1 || h.log[0] != "execute c1" {
		t.Fatalf("log = %v, want [execute c1]", h.log)
	}
}

func TestDispatch_StaleCellIDRejected(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "a"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "b"},
	)
	d := NewDispatcher(h.callbacks())

	// A batch where an earlier delete invalidates a later reference.
	results := d.ProcessActions(context.Background(), []Action{
		{Tool: ToolDeleteCell, Params: map[string]any{"cell_id": "c1"}},
		{Tool: ToolEditCell, Params: map[string]any{"cell_id": "c1", "code": "c"}},
	})

	mustResult(t, results[0], true)
	mustResult(t, results[1], false)
	if results[1].Message != "Cell not found: c1" {
		t.Fatalf("Message = %q", results[1].Message)
	}
	// The surviving cell must be untouched.
	if len(h.cells) != 1 || h.cells[0].Source != "b" {
		t.Fatalf("cells = %+v", h.cells)
	}
}

func TestDispatch_BatchSequentialOrder(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "a"})
	d := NewDispatcher(h.callbacks())

	results := d.ProcessActions(context.Background(), []Action{
		{Tool: ToolClearAllOutputs},
		{Tool: ToolDeleteCell, Params: map[string]any{"cell_id": "c1"}},
		{Tool: ToolEditCell, Params: map[string]any{"cell_id": "c1", "code": "x"}},
		{Tool: ToolCreateCell, Params: map[string]any{"code": "y"}},
	})

	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	// A failure mid-batch must not abort the rest.
	mustResult(t, results[0], true)
	mustResult(t, results[1], true)
	mustResult(t, results[2], false)
	mustResult(t, results[3], true)

	want := []string{"clearAllOutputs", "delete c1", "create c101"}
	if len(h.log) != len(want) {
		t.Fatalf("log = %v, want %v", h.log, want)
	}
	for i := range want {
		if h.log[i] != want[i] {
			t.Fatalf("log[%d] = %q, want %q", i, h.log[i], want[i])
		}
	}
}

func TestDispatch_ExecuteRejectsMarkdownCell(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "m1", CellType: notebook.CellMarkdown, Source: "# Title"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolExecuteCode,
		Params: map[string]any{"cell_id": "m1"},
	})
	mustResult(t, r, false)
	if r.Message != "Cell m1 is not a code cell" {
		t.Fatalf("Message = %q", r.Message)
	}
}

func TestDispatch_CreateCellDefaultsAndValidation(t *testing.T) {
	h := newFakeHost()
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: ToolCreateCell})
	mustResult(t, r, true)
	if h.cells[0].CellType != notebook.CellCode {
		t.Fatalf("CellType = %q, want code", h.cells[0].CellType)
	}

	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolCreateCell,
		Params: map[string]any{"cell_type": "raw"},
	})
	mustResult(t, r, false)
	if !strings.Contains(r.Message, "Invalid cell type") {
		t.Fatalf("Message = %q", r.Message)
	}
}

func TestDispatch_MoveCellDirectionValidated(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolMoveCell,
		Params: map[string]any{"cell_id": "c1", "direction": "sideways"},
	})
	mustResult(t, r, false)
	if !strings.Contains(r.Message, "Invalid direction") {
		t.Fatalf("Message = %q", r.Message)
	}

	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolMoveCell,
		Params: map[string]any{"cell_id": "c1", "direction": "down"},
	})
	mustResult(t, r, true)
}

func TestDispatch_SelectCellRequiresExplicitID(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode})
	h.selected = "c1"
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{Tool: ToolSelectCell})
	mustResult(t, r, false)
	if r.Message != "cell_id is required" {
		t.Fatalf("Message = %q", r.Message)
	}
}

func TestDispatch_SplitCellByLineBoundaries(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c0", CellType: notebook.CellCode, Source: "before"},
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "A\nB\nC"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "after"},
	)
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolSplitCell,
		Params: map[string]any{"cell_id": "c1", "split_at": []any{float64(1), float64(2)}},
	})
	mustResult(t, r, true)

	if len(h.cells) != 5 {
		t.Fatalf("cells = %d, want 5", len(h.cells))
	}
	// New cells occupy the original's position, order preserved.
	wantSources := []string{"before", "A", "B", "C", "after"}
	for i, want := range wantSources {
		if h.cells[i].Source != want {
			t.Fatalf("cells[%d].Source = %q, want %q", i, h.cells[i].Source, want)
		}
	}
	if notebook.FindCell(h.cells, "c1") != nil {
		t.Fatal("original cell should be gone")
	}
}

func TestDispatch_SplitCellByExplicitParts(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "ignored"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolSplitCell,
		Params: map[string]any{"cell_id": "c1", "parts": []any{"x = 1", "y = 2"}},
	})
	mustResult(t, r, true)
	if len(h.cells) != 2 || h.cells[0].Source != "x = 1" || h.cells[1].Source != "y = 2" {
		t.Fatalf("cells = %+v", h.cells)
	}
}

func TestDispatch_SplitCellRejectsMarkdown(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "m1", CellType: notebook.CellMarkdown, Source: "a\nb"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolSplitCell,
		Params: map[string]any{"cell_id": "m1", "split_at": []any{float64(1)}},
	})
	mustResult(t, r, false)
	if len(h.cells) != 1 {
		t.Fatal("markdown cell must be untouched")
	}
}

func TestDispatch_MergeCells(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "A"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "B"},
		notebook.Cell{ID: "c3", CellType: notebook.CellCode, Source: "C"},
	)
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolMergeCells,
		Params: map[string]any{"cell_ids": []any{"c1", "c2", "c3"}},
	})
	mustResult(t, r, true)

	if len(h.cells) != 1 {
		t.Fatalf("cells = %d, want 1", len(h.cells))
	}
	if h.cells[0].Source != "A\n\nB\n\nC" {
		t.Fatalf("merged source = %q", h.cells[0].Source)
	}
}

func TestDispatch_SplitThenMergeRoundTrip(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "A\nB"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolSplitCell,
		Params: map[string]any{"cell_id": "c1", "split_at": []any{float64(1)}},
	})
	mustResult(t, r, true)

	ids := make([]any, 0, len(h.cells))
	for _, c := range h.cells {
		ids = append(ids, c.ID)
	}
	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolMergeCells,
		Params: map[string]any{"cell_ids": ids},
	})
	mustResult(t, r, true)

	// Single-newline separation becomes blank-line separation after the
	// round trip; cell count and content order are restored.
	if len(h.cells) != 1 || h.cells[0].Source != "A\n\nB" {
		t.Fatalf("cells = %+v", h.cells)
	}
}

func TestDispatch_MergeCellsValidatesBeforeMutating(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "A"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "B"},
	)
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolMergeCells,
		Params: map[string]any{"cell_ids": []any{"c1", "ghost"}},
	})
	mustResult(t, r, false)
	if r.Message != "Cell not found: ghost" {
		t.Fatalf("Message = %q", r.Message)
	}
	// Nothing mutated.
	if len(h.cells) != 2 || len(h.log) != 0 {
		t.Fatalf("cells = %+v, log = %v", h.cells, h.log)
	}
}

func TestDispatch_MergeCellsNeedsAtLeastTwo(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "A"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolMergeCells,
		Params: map[string]any{"cell_ids": []any{"c1"}},
	})
	mustResult(t, r, false)
}

func TestDispatch_ReadCellOutput(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "print(1)",
			Outputs: []notebook.CellOutput{{Type: notebook.OutputStream, Name: "stdout", Text: "1\n"}}},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "x = 1"},
	)
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolReadCellOutput,
		Params: map[string]any{"cell_id": "c1"},
	})
	mustResult(t, r, true)
	data, ok := r.Data.(map[string]any)
	if !ok || data["output"] != "1\n" {
		t.Fatalf("Data = %+v", r.Data)
	}

	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolReadCellOutput,
		Params: map[string]any{"cell_id": "c2"},
	})
	mustResult(t, r, true)
	if !strings.Contains(r.Message, "no output") {
		t.Fatalf("Message = %q", r.Message)
	}
}

func TestDispatch_FindInNotebookFallback(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode,
			Source: "import torch\nprint(torch.__version__)"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode,
			Source: "TORCH_HOME = '/tmp'"},
	)
	d := NewDispatcher(h.callbacks())

	// Default matching is case-insensitive substring.
	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolFindInNotebook,
		Params: map[string]any{"query": "torch"},
	})
	mustResult(t, r, true)
	data := r.Data.(map[string]any)
	matches := data["matches"].([]SearchMatch)
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3: %+v", len(matches), matches)
	}

	// whole_word excludes TORCH_HOME: underscore is a word character.
	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolFindInNotebook,
		Params: map[string]any{"query": "torch", "whole_word": true},
	})
	mustResult(t, r, true)
	matches = r.Data.(map[string]any)["matches"].([]SearchMatch)
	if len(matches) != 2 {
		t.Fatalf("whole_word matches = %d, want 2: %+v", len(matches), matches)
	}
	for _, m := range matches {
		if m.CellID != "c1" {
			t.Fatalf("unexpected match in %s", m.CellID)
		}
	}

	// case_sensitive excludes the uppercase occurrence.
	r = d.ProcessAction(context.Background(), Action{
		Tool:   ToolFindInNotebook,
		Params: map[string]any{"query": "torch", "case_sensitive": true},
	})
	mustResult(t, r, true)
	matches = r.Data.(map[string]any)["matches"].([]SearchMatch)
	if len(matches) != 2 {
		t.Fatalf("case_sensitive matches = %d, want 2", len(matches))
	}
}

func TestDispatch_FindToleratesStringBools(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "Torch"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolFindInNotebook,
		Params: map[string]any{"query": "torch", "case_sensitive": "true"},
	})
	mustResult(t, r, true)
	matches := r.Data.(map[string]any)["matches"].([]SearchMatch)
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(matches))
	}
}

func TestDispatch_ReplaceInNotebookFallback(t *testing.T) {
	h := newFakeHost(
		notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "import torch\ntorch.cuda"},
		notebook.Cell{ID: "c2", CellType: notebook.CellCode, Source: "no match here"},
	)
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolReplaceInNotebook,
		Params: map[string]any{"query": "torch", "replacement": "jax"},
	})
	mustResult(t, r, true)
	if !strings.Contains(r.Message, "Replaced 2 occurrences") {
		t.Fatalf("Message = %q", r.Message)
	}
	if h.cells[0].Source != "import jax\njax.cuda" {
		t.Fatalf("Source = %q", h.cells[0].Source)
	}
	if h.cells[1].Source != "no match here" {
		t.Fatalf("untouched cell changed: %q", h.cells[1].Source)
	}
}

func TestDispatch_ReplaceAllowsEmptyReplacement(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "ab"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolReplaceInNotebook,
		Params: map[string]any{"query": "a", "replacement": ""},
	})
	mustResult(t, r, true)
	if h.cells[0].Source != "b" {
		t.Fatalf("Source = %q, want b", h.cells[0].Source)
	}
}

func TestDispatch_FindRejectsInvalidRegex(t *testing.T) {
	h := newFakeHost(notebook.Cell{ID: "c1", CellType: notebook.CellCode, Source: "x"})
	d := NewDispatcher(h.callbacks())

	r := d.ProcessAction(context.Background(), Action{
		Tool:   ToolFindInNotebook,
		Params: map[string]any{"query": "([", "regex": true},
	})
	mustResult(t, r, false)
}

func TestDispatch_FileOpsRequirePaths(t *testing.T) {
	cb := newFakeHost().callbacks()
	written := map[string]string{}
	cb.OnWriteFile = func(ctx context.Context, path, content string) error {
		written[path] = content
		return nil
	}
	cb.OnReadFile = func(ctx context.Context, path string) (string, error) {
		return "data", nil
	}
	d := NewDispatcher(cb)

	r := d.ProcessAction(context.Background(), Action{Tool: ToolWriteFile,
		Params: map[string]any{"content": "x"}})
	mustResult(t, r, false)

	r = d.ProcessAction(context.Background(), Action{Tool: ToolWriteFile,
		Params: map[string]any{"path": "a.py", "content": ""}})
	mustResult(t, r, true)
	if v, ok := written["a.py"]; !ok || v != "" {
		t.Fatalf("written = %+v", written)
	}

	r = d.ProcessAction(context.Background(), Action{Tool: ToolReadFile,
		Params: map[string]any{"path": "a.py"}})
	mustResult(t, r, true)
	data := r.Data.(map[string]any)
	if data["content"] != "data" {
		t.Fatalf("Data = %+v", r.Data)
	}
}

func TestDispatch_WriteFileContentAliases(t *testing.T) {
	cb := newFakeHost().callbacks()
	written := map[string]string{}
	cb.OnWriteFile = func(ctx context.Context, path, content string) error {
		written[path] = content
		return nil
	}
	d := NewDispatcher(cb)

	// The canonical key and its camelCase form must work, not just the
	// looser spellings.
	for i, key := range []string{"file_content", "fileContent", "content", "text"} {
		path := fmt.Sprintf("f%d.txt", i)
		r := d.ProcessAction(context.Background(), Action{Tool: ToolWriteFile,
			Params: map[string]any{"path": path, key: "x"}})
		if !r.Success {
			t.Fatalf("writeFile with %q failed: %q", key, r.Message)
		}
		if written[path] != "x" {
			t.Fatalf("written[%s] = %q via %q", path, written[path], key)
		}
	}
}

func TestDispatch_ContainerOps(t *testing.T) {
	cb := newFakeHost().callbacks()
	var started string
	cb.OnStartContainer = func(ctx context.Context, id string) (string, error) {
		started = id
		return "Started " + id, nil
	}
	d := NewDispatcher(cb)

	r := d.ProcessAction(context.Background(), Action{Tool: ToolStartContainer,
		Params: map[string]any{"container_id": "pytorch-dev"}})
	mustResult(t, r, true)
	if started != "pytorch-dev" {
		t.Fatalf("started = %q", started)
	}

	r = d.ProcessAction(context.Background(), Action{Tool: ToolStopContainer,
		Params: map[string]any{"container_id": "x"}})
	mustResult(t, r, false)
	if r.Message != "stopContainer not supported" {
		t.Fatalf("Message = %q", r.Message)
	}
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		boundaries []int
		want       []string
	}{
		{"two cuts", "A\nB\nC", []int{1, 2}, []string{"A", "B", "C"}},
		{"single cut", "A\nB", []int{1}, []string{"A", "B"}},
		{"unsorted dedup", "A\nB\nC", []int{2, 1, 2}, []string{"A", "B", "C"}},
		{"out of range clamped", "A\nB", []int{0, 1, 5}, []string{"A", "B"}},
		{"trailing kept", "A\nB\nC\nD", []int{2}, []string{"A\nB", "C\nD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSource(tt.source, tt.boundaries)
			if len(got) != len(tt.want) {
				t.Fatalf("parts = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("parts[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
