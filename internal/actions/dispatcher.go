package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"nbclient/internal/logging"
	"nbclient/internal/notebook"
)

// Dispatcher validates and executes AI actions against a capability
// callback table. Every action produces exactly one Result; the side effect
// happens if and only if validation passes, and always through a callback.
//
// The host must serialize dispatch: one AI turn is fully processed before
// the next begins, which is what makes validate-then-act sound.
type Dispatcher struct {
	cb *Callbacks
}

// NewDispatcher creates a dispatcher bound to the given callback table.
func NewDispatcher(cb *Callbacks) *Dispatcher {
	return &Dispatcher{cb: cb}
}

// ProcessActions dispatches a batch strictly in array order, sequentially.
// A later action may depend on an earlier one's effect (create-then-edit),
// so parallel or reordered dispatch would be incorrect. Individual failures
// do not abort the batch.
func (d *Dispatcher) ProcessActions(ctx context.Context, acts []Action) []Result {
	results := make([]Result, 0, len(acts))
	for _, a := range acts {
		results = append(results, d.ProcessAction(ctx, a))
	}
	return results
}

// ProcessAction validates and executes one action.
func (d *Dispatcher) ProcessAction(ctx context.Context, a Action) Result {
	if !a.Tool.Valid() {
		logging.ActionsWarn("unknown tool %q", a.Tool)
		return failure(a.Tool, fmt.Sprintf("Unknown tool: %s", a.Tool))
	}
	if !d.cb.Supports(a.Tool) {
		return failure(a.Tool, fmt.Sprintf("%s not supported", a.Tool))
	}

	logging.ActionsDebug("dispatching %s", a.Tool)
	res := d.dispatch(ctx, a)
	if res.Success {
		logging.Actions("%s: %s", a.Tool, res.Message)
	} else {
		logging.ActionsWarn("%s failed: %s", a.Tool, res.Message)
	}
	return res
}

// dispatch is the exhaustive switch over the closed tool set.
func (d *Dispatcher) dispatch(ctx context.Context, a Action) Result {
	p := a.Params
	if p == nil {
		p = map[string]any{}
	}

	switch a.Tool {
	case ToolCreateCell:
		return d.createCell(p)
	case ToolEditCell:
		return d.editCell(p)
	case ToolDeleteCell:
		return d.deleteCell(p)
	case ToolExecuteCode:
		return d.executeCode(p)
	case ToolReadCellOutput:
		return d.readCellOutput(p)
	case ToolSelectCell:
		return d.selectCell(p)
	case ToolMoveCell:
		return d.moveCell(p)
	case ToolChangeCellType:
		return d.changeCellType(p)
	case ToolSplitCell:
		return d.splitCell(p)
	case ToolMergeCells:
		return d.mergeCells(p)
	case ToolClearOutputs:
		return d.clearOutputs(p)
	case ToolClearAllOutputs:
		return d.simple(ToolClearAllOutputs, "Cleared all outputs", d.cb.OnClearAllOutputs)
	case ToolRunAllCells:
		return d.simple(ToolRunAllCells, "Run all cells requested", d.cb.OnRunAllCells)
	case ToolRunAllAbove:
		return d.runRelative(ToolRunAllAbove, p, d.cb.OnRunAllAbove)
	case ToolRunAllBelow:
		return d.runRelative(ToolRunAllBelow, p, d.cb.OnRunAllBelow)
	case ToolRestartKernel:
		return d.simple(ToolRestartKernel, "Kernel restart requested", d.cb.OnRestartKernel)
	case ToolInterruptExecution:
		return d.simple(ToolInterruptExecution, "Interrupt requested", d.cb.OnInterruptExecution)
	case ToolFindInNotebook:
		return d.findInNotebook(p)
	case ToolReplaceInNotebook:
		return d.replaceInNotebook(p)
	case ToolToggleView:
		return d.toggleView(p)
	case ToolUndo:
		return d.simple(ToolUndo, "Undo requested", d.cb.OnUndo)
	case ToolRedo:
		return d.simple(ToolRedo, "Redo requested", d.cb.OnRedo)
	case ToolRenameNotebook:
		return d.renameNotebook(p)
	case ToolSaveNotebook:
		return d.simple(ToolSaveNotebook, "Notebook saved", d.cb.OnSaveNotebook)
	case ToolListFiles:
		return d.listFiles(ctx, p)
	case ToolReadFile:
		return d.readFile(ctx, p)
	case ToolWriteFile:
		return d.writeFile(ctx, p)
	case ToolDeleteFile:
		return d.deleteFile(ctx, p)
	case ToolInstallPackage:
		return d.installPackage(ctx, p)
	case ToolUninstallPackage:
		return d.uninstallPackage(ctx, p)
	case ToolListPackages:
		return d.query(ctx, ToolListPackages, "Listed packages", d.cb.OnListPackages)
	case ToolGetGPUStatus:
		return d.query(ctx, ToolGetGPUStatus, "GPU status", d.cb.OnGetGPUStatus)
	case ToolListContainers:
		return d.query(ctx, ToolListContainers, "Listed containers", d.cb.OnListContainers)
	case ToolStartContainer:
		return d.containerOp(ctx, ToolStartContainer, p, d.cb.OnStartContainer)
	case ToolStopContainer:
		return d.containerOp(ctx, ToolStopContainer, p, d.cb.OnStopContainer)
	case ToolRestartContainer:
		return d.containerOp(ctx, ToolRestartContainer, p, d.cb.OnRestartContainer)
	}

	// Unreachable: Valid() gates the switch.
	return failure(a.Tool, fmt.Sprintf("Unknown tool: %s", a.Tool))
}

// resolveCellID extracts the target cell id from params (under any alias),
// falling back to the currently selected cell. With neither, the action
// fails explicitly rather than guessing.
func (d *Dispatcher) resolveCellID(tool Tool, params map[string]any) (string, *Result) {
	if id, ok := stringParam(params, "cell_id"); ok {
		return id, nil
	}
	if id := d.cb.selectedCellID(); id != "" {
		return id, nil
	}
	res := failure(tool, "No cell specified and no cell selected")
	return "", &res
}

// requireCell re-verifies the referenced cell against the current live
// snapshot. An id is never trusted just because it was valid when the model
// composed the action; a prior action in the batch may have deleted it.
func (d *Dispatcher) requireCell(tool Tool, cellID string) (*notebook.Cell, *Result) {
	cell := notebook.FindCell(d.cb.cells(), cellID)
	if cell == nil {
		res := failure(tool, fmt.Sprintf("Cell not found: %s", cellID))
		return nil, &res
	}
	return cell, nil
}

func (d *Dispatcher) createCell(p map[string]any) Result {
	cellType := notebook.CellCode
	if t, ok := stringParam(p, "cell_type"); ok {
		switch notebook.CellType(t) {
		case notebook.CellCode, notebook.CellMarkdown:
			cellType = notebook.CellType(t)
		default:
			return failure(ToolCreateCell, fmt.Sprintf("Invalid cell type: %s", t))
		}
	}

	source, _ := stringParam(p, "code")
	position := -1
	if pos, ok := intParam(p, "position"); ok {
		position = pos
	}

	id, err := d.cb.OnCreateCell(cellType, source, position)
	if err != nil {
		return failure(ToolCreateCell, err.Error())
	}
	return successData(ToolCreateCell,
		fmt.Sprintf("Created %s cell %s", cellType, id),
		map[string]any{"cell_id": id})
}

func (d *Dispatcher) editCell(p map[string]any) Result {
	id, res := d.resolveCellID(ToolEditCell, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(ToolEditCell, id); res != nil {
		return *res
	}

	source, ok := stringParam(p, "code")
	if !ok {
		return failure(ToolEditCell, "code is required")
	}

	if err := d.cb.OnEditCell(id, source); err != nil {
		return failure(ToolEditCell, err.Error())
	}
	return success(ToolEditCell, fmt.Sprintf("Updated cell %s", id))
}

func (d *Dispatcher) deleteCell(p map[string]any) Result {
	id, res := d.resolveCellID(ToolDeleteCell, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(ToolDeleteCell, id); res != nil {
		return *res
	}

	if err := d.cb.OnDeleteCell(id); err != nil {
		return failure(ToolDeleteCell, err.Error())
	}
	return success(ToolDeleteCell, fmt.Sprintf("Deleted cell %s", id))
}

func (d *Dispatcher) executeCode(p map[string]any) Result {
	id, res := d.resolveCellID(ToolExecuteCode, p)
	if res != nil {
		return *res
	}
	cell, res := d.requireCell(ToolExecuteCode, id)
	if res != nil {
		return *res
	}
	if cell.CellType != notebook.CellCode {
		return failure(ToolExecuteCode, fmt.Sprintf("Cell %s is not a code cell", id))
	}

	// Fire-and-forget: completion is observed via gateway events.
	if err := d.cb.OnExecuteCell(id); err != nil {
		return failure(ToolExecuteCode, err.Error())
	}
	return success(ToolExecuteCode, fmt.Sprintf("Execution requested for cell %s", id))
}

func (d *Dispatcher) readCellOutput(p map[string]any) Result {
	id, res := d.resolveCellID(ToolReadCellOutput, p)
	if res != nil {
		return *res
	}
	cell, res := d.requireCell(ToolReadCellOutput, id)
	if res != nil {
		return *res
	}

	text := notebook.OutputText(cell)
	if text == "" {
		return success(ToolReadCellOutput, fmt.Sprintf("Cell %s has no output", id))
	}
	return successData(ToolReadCellOutput,
		fmt.Sprintf("Read output of cell %s", id),
		map[string]any{"output": text})
}

func (d *Dispatcher) selectCell(p map[string]any) Result {
	// Falling back to the selected cell would make this a no-op, so the id
	// must be explicit.
	id, ok := stringParam(p, "cell_id")
	if !ok {
		return failure(ToolSelectCell, "cell_id is required")
	}
	if _, res := d.requireCell(ToolSelectCell, id); res != nil {
		return *res
	}

	if err := d.cb.OnSelectCell(id); err != nil {
		return failure(ToolSelectCell, err.Error())
	}
	return success(ToolSelectCell, fmt.Sprintf("Selected cell %s", id))
}

func (d *Dispatcher) moveCell(p map[string]any) Result {
	id, res := d.resolveCellID(ToolMoveCell, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(ToolMoveCell, id); res != nil {
		return *res
	}

	direction, ok := stringParam(p, "direction")
	if !ok {
		return failure(ToolMoveCell, "direction is required")
	}
	if direction != "up" && direction != "down" {
		return failure(ToolMoveCell, fmt.Sprintf("Invalid direction: %s (expected up or down)", direction))
	}

	if err := d.cb.OnMoveCell(id, direction); err != nil {
		return failure(ToolMoveCell, err.Error())
	}
	return success(ToolMoveCell, fmt.Sprintf("Moved cell %s %s", id, direction))
}

func (d *Dispatcher) changeCellType(p map[string]any) Result {
	id, res := d.resolveCellID(ToolChangeCellType, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(ToolChangeCellType, id); res != nil {
		return *res
	}

	t, ok := stringParam(p, "cell_type")
	if !ok {
		return failure(ToolChangeCellType, "cell_type is required")
	}
	cellType := notebook.CellType(t)
	if cellType != notebook.CellCode && cellType != notebook.CellMarkdown {
		return failure(ToolChangeCellType, fmt.Sprintf("Invalid cell type: %s", t))
	}

	if err := d.cb.OnChangeCellType(id, cellType); err != nil {
		return failure(ToolChangeCellType, err.Error())
	}
	return success(ToolChangeCellType, fmt.Sprintf("Changed cell %s to %s", id, cellType))
}

func (d *Dispatcher) splitCell(p map[string]any) Result {
	id, res := d.resolveCellID(ToolSplitCell, p)
	if res != nil {
		return *res
	}
	cell, res := d.requireCell(ToolSplitCell, id)
	if res != nil {
		return *res
	}
	if cell.CellType != notebook.CellCode {
		return failure(ToolSplitCell, fmt.Sprintf("Cell %s is not a code cell", id))
	}

	parts, hasParts := stringListParam(p, "parts")
	if !hasParts {
		boundaries, hasSplits := intListParam(p, "split_at")
		if !hasSplits {
			return failure(ToolSplitCell, "parts or split_at is required")
		}
		parts = splitSource(cell.Source, boundaries)
	}
	if len(parts) < 2 {
		return failure(ToolSplitCell, "split requires at least 2 parts")
	}

	position := notebook.CellIndex(d.cb.cells(), id)
	if err := d.cb.OnDeleteCell(id); err != nil {
		return failure(ToolSplitCell, err.Error())
	}

	newIDs := make([]string, 0, len(parts))
	for i, part := range parts {
		newID, err := d.cb.OnCreateCell(notebook.CellCode, part, position+i)
		if err != nil {
			return failure(ToolSplitCell, fmt.Sprintf("created %d of %d cells: %v", i, len(parts), err))
		}
		newIDs = append(newIDs, newID)
	}

	return successData(ToolSplitCell,
		fmt.Sprintf("Split cell %s into %d cells", id, len(parts)),
		map[string]any{"cell_ids": newIDs})
}

// splitSource cuts source at the given line boundaries (a boundary b means
// a new cell begins at line b, 0-indexed from the top). Boundaries are
// sorted, deduplicated and clamped to the line range; the trailing fragment
// is always kept when non-empty.
func splitSource(source string, boundaries []int) []string {
	lines := strings.Split(source, "\n")

	cuts := make([]int, 0, len(boundaries))
	seen := make(map[int]bool)
	for _, b := range boundaries {
		if b <= 0 || b >= len(lines) || seen[b] {
			continue
		}
		seen[b] = true
		cuts = append(cuts, b)
	}
	sort.Ints(cuts)

	var parts []string
	prev := 0
	for _, b := range cuts {
		parts = append(parts, strings.Join(lines[prev:b], "\n"))
		prev = b
	}
	parts = append(parts, strings.Join(lines[prev:], "\n"))

	// Drop empty fragments produced by edge boundaries, but never a
	// non-empty trailing one.
	filtered := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			filtered = append(filtered, part)
		}
	}
	return filtered
}

// mergeJoin is the separator inserted between merged cell sources.
const mergeJoin = "\n\n"

func (d *Dispatcher) mergeCells(p map[string]any) Result {
	ids, ok := stringListParam(p, "cell_ids")
	if !ok || len(ids) < 2 {
		return failure(ToolMergeCells, "At least 2 cell ids are required")
	}

	// Validate every id before mutating anything: if any fails, the merge
	// aborts with the notebook untouched.
	cells := d.cb.cells()
	sources := make([]string, 0, len(ids))
	for _, id := range ids {
		cell := notebook.FindCell(cells, id)
		if cell == nil {
			return failure(ToolMergeCells, fmt.Sprintf("Cell not found: %s", id))
		}
		if cell.CellType != notebook.CellCode {
			return failure(ToolMergeCells, fmt.Sprintf("Cell %s is not a code cell", id))
		}
		sources = append(sources, cell.Source)
	}

	position := notebook.CellIndex(cells, ids[0])
	merged := strings.Join(sources, mergeJoin)

	newID, err := d.cb.OnCreateCell(notebook.CellCode, merged, position)
	if err != nil {
		return failure(ToolMergeCells, err.Error())
	}
	for _, id := range ids {
		if err := d.cb.OnDeleteCell(id); err != nil {
			return failure(ToolMergeCells, fmt.Sprintf("merged into %s but delete of %s failed: %v", newID, id, err))
		}
	}

	return successData(ToolMergeCells,
		fmt.Sprintf("Merged %d cells into %s", len(ids), newID),
		map[string]any{"cell_id": newID})
}

func (d *Dispatcher) clearOutputs(p map[string]any) Result {
	id, res := d.resolveCellID(ToolClearOutputs, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(ToolClearOutputs, id); res != nil {
		return *res
	}

	if err := d.cb.OnClearOutputs(id); err != nil {
		return failure(ToolClearOutputs, err.Error())
	}
	return success(ToolClearOutputs, fmt.Sprintf("Cleared outputs of cell %s", id))
}

// simple dispatches a parameterless fire-and-forget callback.
func (d *Dispatcher) simple(tool Tool, message string, fn func() error) Result {
	if err := fn(); err != nil {
		return failure(tool, err.Error())
	}
	return success(tool, message)
}

func (d *Dispatcher) runRelative(tool Tool, p map[string]any, fn func(cellID string) error) Result {
	id, res := d.resolveCellID(tool, p)
	if res != nil {
		return *res
	}
	if _, res := d.requireCell(tool, id); res != nil {
		return *res
	}

	if err := fn(id); err != nil {
		return failure(tool, err.Error())
	}
	return success(tool, fmt.Sprintf("%s from cell %s requested", tool, id))
}

func (d *Dispatcher) findInNotebook(p map[string]any) Result {
	query, ok := stringParam(p, "query")
	if !ok {
		return failure(ToolFindInNotebook, "query is required")
	}

	q := SearchQuery{Query: query}
	q.CaseSensitive, _ = boolParam(p, "case_sensitive")
	q.WholeWord, _ = boolParam(p, "whole_word")
	q.Regex, _ = boolParam(p, "regex")

	var (
		matches []SearchMatch
		err     error
	)
	if d.cb.OnFindInNotebook != nil {
		matches, err = d.cb.OnFindInNotebook(q)
	} else {
		matches, err = findInCells(d.cb.cells(), q)
	}
	if err != nil {
		return failure(ToolFindInNotebook, err.Error())
	}

	return successData(ToolFindInNotebook,
		fmt.Sprintf("Found %d matches for %q", len(matches), query),
		map[string]any{"matches": matches})
}

func (d *Dispatcher) replaceInNotebook(p map[string]any) Result {
	query, ok := stringParam(p, "query")
	if !ok {
		return failure(ToolReplaceInNotebook, "query is required")
	}
	// The replacement may legitimately be empty (delete matches), so only
	// presence is required.
	raw, ok := lookupParam(p, "replacement")
	if !ok {
		return failure(ToolReplaceInNotebook, "replacement is required")
	}
	replacement, _ := raw.(string)

	q := ReplaceQuery{SearchQuery: SearchQuery{Query: query}, Replacement: replacement}
	q.CaseSensitive, _ = boolParam(p, "case_sensitive")
	q.WholeWord, _ = boolParam(p, "whole_word")
	q.Regex, _ = boolParam(p, "regex")

	var (
		count int
		err   error
	)
	if d.cb.OnReplaceInNotebook != nil {
		count, err = d.cb.OnReplaceInNotebook(q)
	} else {
		count, err = replaceInCells(d.cb.cells(), q, d.cb.OnEditCell)
	}
	if err != nil {
		return failure(ToolReplaceInNotebook, err.Error())
	}

	return success(ToolReplaceInNotebook,
		fmt.Sprintf("Replaced %d occurrences of %q", count, query))
}

func (d *Dispatcher) toggleView(p map[string]any) Result {
	view, ok := stringParam(p, "view")
	if !ok {
		return failure(ToolToggleView, "view is required")
	}
	if err := d.cb.OnToggleView(view); err != nil {
		return failure(ToolToggleView, err.Error())
	}
	return success(ToolToggleView, fmt.Sprintf("Toggled %s view", view))
}

func (d *Dispatcher) renameNotebook(p map[string]any) Result {
	name, ok := stringParam(p, "name")
	if !ok {
		return failure(ToolRenameNotebook, "name is required")
	}
	if err := d.cb.OnRenameNotebook(name); err != nil {
		return failure(ToolRenameNotebook, err.Error())
	}
	return success(ToolRenameNotebook, fmt.Sprintf("Renamed notebook to %q", name))
}

func (d *Dispatcher) listFiles(ctx context.Context, p map[string]any) Result {
	path, _ := stringParam(p, "path")
	listing, err := d.cb.OnListFiles(ctx, path)
	if err != nil {
		return failure(ToolListFiles, err.Error())
	}
	return successData(ToolListFiles, fmt.Sprintf("Listed files in %q", path), listing)
}

func (d *Dispatcher) readFile(ctx context.Context, p map[string]any) Result {
	path, ok := stringParam(p, "path")
	if !ok {
		return failure(ToolReadFile, "path is required")
	}
	content, err := d.cb.OnReadFile(ctx, path)
	if err != nil {
		return failure(ToolReadFile, err.Error())
	}
	return successData(ToolReadFile, fmt.Sprintf("Read %s", path),
		map[string]any{"path": path, "content": content})
}

func (d *Dispatcher) writeFile(ctx context.Context, p map[string]any) Result {
	path, ok := stringParam(p, "path")
	if !ok {
		return failure(ToolWriteFile, "path is required")
	}
	raw, ok := lookupParam(p, "file_content")
	if !ok {
		return failure(ToolWriteFile, "content is required")
	}
	content, _ := raw.(string)

	if err := d.cb.OnWriteFile(ctx, path, content); err != nil {
		return failure(ToolWriteFile, err.Error())
	}
	return success(ToolWriteFile, fmt.Sprintf("Wrote %s", path))
}

func (d *Dispatcher) deleteFile(ctx context.Context, p map[string]any) Result {
	path, ok := stringParam(p, "path")
	if !ok {
		return failure(ToolDeleteFile, "path is required")
	}
	if err := d.cb.OnDeleteFile(ctx, path); err != nil {
		return failure(ToolDeleteFile, err.Error())
	}
	return success(ToolDeleteFile, fmt.Sprintf("Deleted %s", path))
}

func (d *Dispatcher) installPackage(ctx context.Context, p map[string]any) Result {
	pkg, ok := stringParam(p, "package")
	if !ok {
		return failure(ToolInstallPackage, "package is required")
	}
	msg, err := d.cb.OnInstallPackage(ctx, pkg)
	if err != nil {
		return failure(ToolInstallPackage, err.Error())
	}
	if msg == "" {
		msg = fmt.Sprintf("Installed %s", pkg)
	}
	return success(ToolInstallPackage, msg)
}

func (d *Dispatcher) uninstallPackage(ctx context.Context, p map[string]any) Result {
	pkg, ok := stringParam(p, "package")
	if !ok {
		return failure(ToolUninstallPackage, "package is required")
	}
	msg, err := d.cb.OnUninstallPackage(ctx, pkg)
	if err != nil {
		return failure(ToolUninstallPackage, err.Error())
	}
	if msg == "" {
		msg = fmt.Sprintf("Uninstalled %s", pkg)
	}
	return success(ToolUninstallPackage, msg)
}

// query dispatches a parameterless read-only capability callback.
func (d *Dispatcher) query(ctx context.Context, tool Tool, message string, fn func(ctx context.Context) (any, error)) Result {
	data, err := fn(ctx)
	if err != nil {
		return failure(tool, err.Error())
	}
	return successData(tool, message, data)
}

func (d *Dispatcher) containerOp(ctx context.Context, tool Tool, p map[string]any, fn func(ctx context.Context, id string) (string, error)) Result {
	id, ok := stringParam(p, "container_id")
	if !ok {
		return failure(tool, "container_id is required")
	}
	msg, err := fn(ctx, id)
	if err != nil {
		return failure(tool, err.Error())
	}
	if msg == "" {
		msg = fmt.Sprintf("%s: %s", tool, id)
	}
	return success(tool, msg)
}
