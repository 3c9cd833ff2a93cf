package api

import (
	"context"
	"fmt"

	"nbclient/internal/notebook"
)

// ExecutionStatus is the backend's view of one execution.
type ExecutionStatus string

const (
	ExecutionQueued    ExecutionStatus = "queued"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSuccess   ExecutionStatus = "success"
	ExecutionError     ExecutionStatus = "error"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// ExecuteRequest is the synchronous execution request. Silent executions
// skip output broadcast; StoreHistory controls the kernel's In/Out history.
type ExecuteRequest struct {
	KernelID     string `json:"kernel_id"`
	Code         string `json:"code"`
	CellID       string `json:"cell_id,omitempty"`
	Silent       bool   `json:"silent"`
	StoreHistory bool   `json:"store_history"`
}

// ExecutionResult is the outcome of one execution. ExecutionCount is the
// backend's authoritative counter.
type ExecutionResult struct {
	ExecutionID    string                `json:"execution_id"`
	Status         ExecutionStatus       `json:"status"`
	ExecutionCount *int                  `json:"execution_count,omitempty"`
	Outputs        []notebook.CellOutput `json:"outputs"`
	Error          map[string]any        `json:"error,omitempty"`
	DurationMs     *int64                `json:"duration_ms,omitempty"`
}

// Execute runs code synchronously through the REST fallback path. This is
// the degraded-but-correct path used when no streaming session exists.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecutionResult, error) {
	var res ExecutionResult
	if err := c.post(ctx, "/execute", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetExecution fetches an execution result by id.
func (c *Client) GetExecution(ctx context.Context, executionID string) (*ExecutionResult, error) {
	var res ExecutionResult
	if err := c.get(ctx, "/execute/"+executionID, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelExecution sends a best-effort cancel for a kernel's running
// execution.
func (c *Client) CancelExecution(ctx context.Context, kernelID string) error {
	return c.post(ctx, fmt.Sprintf("/execute/%s/cancel", kernelID), nil, nil)
}
