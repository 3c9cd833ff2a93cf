package actions

import (
	"context"

	"nbclient/internal/notebook"
)

// Callbacks is the capability table binding the dispatcher to the live
// notebook. Every side effect goes through a callback; unset callbacks mean
// the host does not support the corresponding tools, and the dispatcher
// reports "not supported" instead of acting.
//
// GetCells is the single source of truth for notebook state: the dispatcher
// re-reads it immediately before every identifier-bearing action, because
// the notebook may have changed between planning and execution.
type Callbacks struct {
	// State accessors.
	GetCells          func() []notebook.Cell
	GetSelectedCellID func() string

	// Cell mutations. OnCreateCell inserts at position (negative appends)
	// and returns the new cell's id.
	OnCreateCell     func(cellType notebook.CellType, source string, position int) (string, error)
	OnEditCell       func(cellID, source string) error
	OnDeleteCell     func(cellID string) error
	OnExecuteCell    func(cellID string) error
	OnSelectCell     func(cellID string) error
	OnMoveCell       func(cellID, direction string) error
	OnChangeCellType func(cellID string, cellType notebook.CellType) error
	OnClearOutputs   func(cellID string) error

	// Notebook-wide operations.
	OnClearAllOutputs func() error
	OnRenameNotebook  func(name string) error
	OnSaveNotebook    func() error

	// Execution control. Fire-and-forget: success means the intent was
	// forwarded, not that the kernel confirmed completion.
	OnRunAllCells        func() error
	OnRunAllAbove        func(cellID string) error
	OnRunAllBelow        func(cellID string) error
	OnRestartKernel      func() error
	OnInterruptExecution func() error

	// View state and history.
	OnToggleView func(view string) error
	OnUndo       func() error
	OnRedo       func() error

	// Search. When unset, the dispatcher falls back to manual matching
	// over GetCells; replace additionally needs OnEditCell.
	OnFindInNotebook    func(q SearchQuery) ([]SearchMatch, error)
	OnReplaceInNotebook func(q ReplaceQuery) (int, error)

	// File operations.
	OnListFiles  func(ctx context.Context, path string) (any, error)
	OnReadFile   func(ctx context.Context, path string) (string, error)
	OnWriteFile  func(ctx context.Context, path, content string) error
	OnDeleteFile func(ctx context.Context, path string) error

	// Package operations.
	OnInstallPackage   func(ctx context.Context, pkg string) (string, error)
	OnUninstallPackage func(ctx context.Context, pkg string) (string, error)
	OnListPackages     func(ctx context.Context) (any, error)

	// GPU and containers.
	OnGetGPUStatus     func(ctx context.Context) (any, error)
	OnListContainers   func(ctx context.Context) (any, error)
	OnStartContainer   func(ctx context.Context, containerID string) (string, error)
	OnStopContainer    func(ctx context.Context, containerID string) (string, error)
	OnRestartContainer func(ctx context.Context, containerID string) (string, error)
}

// Supports reports whether the host wired everything the given tool needs.
// Compound tools require all of their constituent callbacks; search tools
// are always supported through the manual fallback as long as GetCells is
// available.
func (c *Callbacks) Supports(tool Tool) bool {
	switch tool {
	case ToolCreateCell:
		return c.OnCreateCell != nil
	case ToolEditCell:
		return c.OnEditCell != nil
	case ToolDeleteCell:
		return c.OnDeleteCell != nil
	case ToolExecuteCode:
		return c.OnExecuteCell != nil
	case ToolReadCellOutput:
		return c.GetCells != nil
	case ToolSelectCell:
		return c.OnSelectCell != nil
	case ToolMoveCell:
		return c.OnMoveCell != nil
	case ToolChangeCellType:
		return c.OnChangeCellType != nil
	case ToolSplitCell:
		return c.OnCreateCell != nil && c.OnDeleteCell != nil
	case ToolMergeCells:
		return c.OnCreateCell != nil && c.OnDeleteCell != nil
	case ToolClearOutputs:
		return c.OnClearOutputs != nil
	case ToolClearAllOutputs:
		return c.OnClearAllOutputs != nil
	case ToolRunAllCells:
		return c.OnRunAllCells != nil
	case ToolRunAllAbove:
		return c.OnRunAllAbove != nil
	case ToolRunAllBelow:
		return c.OnRunAllBelow != nil
	case ToolRestartKernel:
		return c.OnRestartKernel != nil
	case ToolInterruptExecution:
		return c.OnInterruptExecution != nil
	case ToolFindInNotebook:
		return c.OnFindInNotebook != nil || c.GetCells != nil
	case ToolReplaceInNotebook:
		return c.OnReplaceInNotebook != nil || (c.GetCells != nil && c.OnEditCell != nil)
	case ToolToggleView:
		return c.OnToggleView != nil
	case ToolUndo:
		return c.OnUndo != nil
	case ToolRedo:
		return c.OnRedo != nil
	case ToolRenameNotebook:
		return c.OnRenameNotebook != nil
	case ToolSaveNotebook:
		return c.OnSaveNotebook != nil
	case ToolListFiles:
		return c.OnListFiles != nil
	case ToolReadFile:
		return c.OnReadFile != nil
	case ToolWriteFile:
		return c.OnWriteFile != nil
	case ToolDeleteFile:
		return c.OnDeleteFile != nil
	case ToolInstallPackage:
		return c.OnInstallPackage != nil
	case ToolUninstallPackage:
		return c.OnUninstallPackage != nil
	case ToolListPackages:
		return c.OnListPackages != nil
	case ToolGetGPUStatus:
		return c.OnGetGPUStatus != nil
	case ToolListContainers:
		return c.OnListContainers != nil
	case ToolStartContainer:
		return c.OnStartContainer != nil
	case ToolStopContainer:
		return c.OnStopContainer != nil
	case ToolRestartContainer:
		return c.OnRestartContainer != nil
	default:
		return false
	}
}

// Capabilities returns the host's declared tool support as a snapshot, for
// up-front capability checks and clearer diagnostics in tests.
func (c *Callbacks) Capabilities() map[Tool]bool {
	caps := make(map[Tool]bool, len(allTools))
	for _, tool := range allTools {
		caps[tool] = c.Supports(tool)
	}
	return caps
}

// cells returns the live cell snapshot, or nil when the accessor is
// unwired.
func (c *Callbacks) cells() []notebook.Cell {
	if c.GetCells == nil {
		return nil
	}
	return c.GetCells()
}

// selectedCellID returns the currently selected cell id, or "".
func (c *Callbacks) selectedCellID() string {
	if c.GetSelectedCellID == nil {
		return ""
	}
	return c.GetSelectedCellID()
}
