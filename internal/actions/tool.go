// Package actions turns raw AI model output into validated, effectful
// operations against notebook state. The parser extracts a structured
// {message, actions} payload from free-form text; the dispatcher validates
// each action against the live notebook and applies it through a capability
// callback table. The dispatcher never mutates notebook state directly.
package actions

// Tool enumerates the closed set of AI-invocable operations. Dispatch is an
// exhaustive switch over this set, so adding a tool is a compile-time
// visible change.
type Tool string

const (
	// Cell operations.
	ToolCreateCell      Tool = "createCell"
	ToolEditCell        Tool = "editCell"
	ToolDeleteCell      Tool = "deleteCell"
	ToolExecuteCode     Tool = "executeCode"
	ToolReadCellOutput  Tool = "readCellOutput"
	ToolSelectCell      Tool = "selectCell"
	ToolMoveCell        Tool = "moveCell"
	ToolChangeCellType  Tool = "changeCellType"
	ToolSplitCell       Tool = "splitCell"
	ToolMergeCells      Tool = "mergeCells"
	ToolClearOutputs    Tool = "clearOutputs"
	ToolClearAllOutputs Tool = "clearAllOutputs"

	// Execution control.
	ToolRunAllCells        Tool = "runAllCells"
	ToolRunAllAbove        Tool = "runAllAbove"
	ToolRunAllBelow        Tool = "runAllBelow"
	ToolRestartKernel      Tool = "restartKernel"
	ToolInterruptExecution Tool = "interruptExecution"

	// Find/replace.
	ToolFindInNotebook    Tool = "findInNotebook"
	ToolReplaceInNotebook Tool = "replaceInNotebook"

	// View state and history.
	ToolToggleView Tool = "toggleView"
	ToolUndo       Tool = "undo"
	ToolRedo       Tool = "redo"

	// Notebook operations.
	ToolRenameNotebook Tool = "renameNotebook"
	ToolSaveNotebook   Tool = "saveNotebook"

	// File operations.
	ToolListFiles  Tool = "listFiles"
	ToolReadFile   Tool = "readFile"
	ToolWriteFile  Tool = "writeFile"
	ToolDeleteFile Tool = "deleteFile"

	// Package operations.
	ToolInstallPackage   Tool = "installPackage"
	ToolUninstallPackage Tool = "uninstallPackage"
	ToolListPackages     Tool = "listPackages"

	// GPU and containers.
	ToolGetGPUStatus     Tool = "getGPUStatus"
	ToolListContainers   Tool = "listContainers"
	ToolStartContainer   Tool = "startContainer"
	ToolStopContainer    Tool = "stopContainer"
	ToolRestartContainer Tool = "restartContainer"
)

// allTools is the authoritative enumeration used for validity checks and
// capability snapshots.
var allTools = []Tool{
	ToolCreateCell, ToolEditCell, ToolDeleteCell, ToolExecuteCode,
	ToolReadCellOutput, ToolSelectCell, ToolMoveCell, ToolChangeCellType,
	ToolSplitCell, ToolMergeCells, ToolClearOutputs, ToolClearAllOutputs,
	ToolRunAllCells, ToolRunAllAbove, ToolRunAllBelow, ToolRestartKernel,
	ToolInterruptExecution,
	ToolFindInNotebook, ToolReplaceInNotebook,
	ToolToggleView, ToolUndo, ToolRedo,
	ToolRenameNotebook, ToolSaveNotebook,
	ToolListFiles, ToolReadFile, ToolWriteFile, ToolDeleteFile,
	ToolInstallPackage, ToolUninstallPackage, ToolListPackages,
	ToolGetGPUStatus, ToolListContainers, ToolStartContainer,
	ToolStopContainer, ToolRestartContainer,
}

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	for _, known := range allTools {
		if t == known {
			return true
		}
	}
	return false
}

// Action is one AI-requested operation. Params validity is tool-specific
// and checked at dispatch time, not parse time.
type Action struct {
	Tool   Tool           `json:"tool"`
	Params map[string]any `json:"params"`
}

// Response is the structured payload extracted from a model reply.
type Response struct {
	Message string   `json:"message"`
	Actions []Action `json:"actions,omitempty"`
}

// Result is the authoritative record of one dispatched action. The result
// sequence for a turn is surfaced back to the user and the model; it is
// never silently dropped.
type Result struct {
	Success bool   `json:"success"`
	Tool    Tool   `json:"tool"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func failure(tool Tool, message string) Result {
	return Result{Success: false, Tool: tool, Message: message}
}

func success(tool Tool, message string) Result {
	return Result{Success: true, Tool: tool, Message: message}
}

func successData(tool Tool, message string, data any) Result {
	return Result{Success: true, Tool: tool, Message: message, Data: data}
}
