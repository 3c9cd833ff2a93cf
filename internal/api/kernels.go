package api

import (
	"context"
	"fmt"

	"nbclient/internal/notebook"
)

// KernelCreateRequest asks the backend to start a kernel.
type KernelCreateRequest struct {
	Name       string `json:"name"`
	NotebookID string `json:"notebook_id,omitempty"`
}

// CompletionRequest asks the kernel for completions or inspection at a
// cursor position.
type CompletionRequest struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// CompletionResult is the kernel's completion reply.
type CompletionResult struct {
	Matches     []string `json:"matches"`
	CursorStart int      `json:"cursor_start"`
	CursorEnd   int      `json:"cursor_end"`
}

// InspectionResult is the kernel's introspection reply.
type InspectionResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

// Variable describes one entry of the kernel namespace.
type Variable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Size  string `json:"size,omitempty"`
}

// CreateKernel starts a new kernel.
func (c *Client) CreateKernel(ctx context.Context, req KernelCreateRequest) (*notebook.Kernel, error) {
	var k notebook.Kernel
	if err := c.post(ctx, "/kernels", req, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// ListKernels returns all active kernels.
func (c *Client) ListKernels(ctx context.Context) ([]notebook.Kernel, error) {
	var kernels []notebook.Kernel
	if err := c.get(ctx, "/kernels", &kernels); err != nil {
		return nil, err
	}
	return kernels, nil
}

// GetKernel returns one kernel by id.
func (c *Client) GetKernel(ctx context.Context, kernelID string) (*notebook.Kernel, error) {
	var k notebook.Kernel
	if err := c.get(ctx, "/kernels/"+kernelID, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// GetKernelStatus polls the status of one kernel.
func (c *Client) GetKernelStatus(ctx context.Context, kernelID string) (notebook.KernelStatus, error) {
	var resp struct {
		KernelID string                `json:"kernel_id"`
		Status   notebook.KernelStatus `json:"status"`
	}
	if err := c.get(ctx, fmt.Sprintf("/kernels/%s/status", kernelID), &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// InterruptKernel sends an interrupt signal to a kernel.
func (c *Client) InterruptKernel(ctx context.Context, kernelID string) error {
	return c.post(ctx, fmt.Sprintf("/kernels/%s/interrupt", kernelID), nil, nil)
}

// RestartKernel restarts a kernel. The returned kernel is authoritative for
// identity: the numeric id may or may not be reused.
func (c *Client) RestartKernel(ctx context.Context, kernelID string) (*notebook.Kernel, error) {
	var k notebook.Kernel
	if err := c.post(ctx, fmt.Sprintf("/kernels/%s/restart", kernelID), nil, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// ShutdownKernel stops and removes a kernel.
func (c *Client) ShutdownKernel(ctx context.Context, kernelID string) error {
	return c.delete(ctx, "/kernels/"+kernelID)
}

// GetVariables lists the kernel namespace.
func (c *Client) GetVariables(ctx context.Context, kernelID string) ([]Variable, error) {
	var resp struct {
		Variables []Variable `json:"variables"`
	}
	if err := c.get(ctx, fmt.Sprintf("/kernels/%s/variables", kernelID), &resp); err != nil {
		return nil, err
	}
	return resp.Variables, nil
}

// Complete asks the kernel for code completions.
func (c *Client) Complete(ctx context.Context, kernelID string, req CompletionRequest) (*CompletionResult, error) {
	var res CompletionResult
	if err := c.post(ctx, fmt.Sprintf("/kernels/%s/complete", kernelID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Inspect asks the kernel for documentation at a cursor position.
func (c *Client) Inspect(ctx context.Context, kernelID string, req CompletionRequest) (*InspectionResult, error) {
	var res InspectionResult
	if err := c.post(ctx, fmt.Sprintf("/kernels/%s/inspect", kernelID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
