package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// The capability services: files, packages, GPU and containers. Each is an
// opaque backend contract the action dispatcher reaches through its
// callback table; shapes mirror the backend's models.

// FileInfo describes one file or directory entry.
type FileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	FileType string `json:"file_type"` // file or directory
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// DirectoryListing is the contents of one directory.
type DirectoryListing struct {
	Path  string     `json:"path"`
	Files []FileInfo `json:"files"`
}

// FileContent is the content of one file.
type FileContent struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// ListFiles lists the given directory.
func (c *Client) ListFiles(ctx context.Context, path string) (*DirectoryListing, error) {
	var listing DirectoryListing
	p := "/files"
	if path != "" {
		p += "?path=" + url.QueryEscape(path)
	}
	if err := c.get(ctx, p, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ReadFile fetches the content of one file.
func (c *Client) ReadFile(ctx context.Context, path string) (*FileContent, error) {
	var content FileContent
	if err := c.get(ctx, "/files/"+path, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// WriteFile uploads content as a file, creating or replacing it.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST /files/upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Method: http.MethodPost, Path: "/files/upload"}
	}
	return nil
}

// DeleteFile removes a file or directory.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	return c.delete(ctx, "/files/"+path)
}

// Mkdir creates a directory.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	return c.post(ctx, "/files/mkdir", map[string]string{"path": path}, nil)
}

// PackageInfo describes one installed package.
type PackageInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Location string `json:"location,omitempty"`
}

// OutdatedPackage pairs an installed version with the latest available.
type OutdatedPackage struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
}

// InstallResult reports the outcome of a package install/uninstall.
type InstallResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	Output           string `json:"output,omitempty"`
	KernelsRestarted int    `json:"kernels_restarted,omitempty"`
}

// ListPackages lists installed packages.
func (c *Client) ListPackages(ctx context.Context) ([]PackageInfo, error) {
	var resp struct {
		Packages []PackageInfo `json:"packages"`
	}
	if err := c.get(ctx, "/packages", &resp); err != nil {
		return nil, err
	}
	return resp.Packages, nil
}

// InstallPackage installs a package by pip spec (name or name==version).
func (c *Client) InstallPackage(ctx context.Context, pkg string) (*InstallResult, error) {
	var res InstallResult
	if err := c.post(ctx, "/packages/install", map[string]string{"package": pkg}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UninstallPackage removes a package.
func (c *Client) UninstallPackage(ctx context.Context, pkg string) (*InstallResult, error) {
	var res InstallResult
	if err := c.post(ctx, "/packages/uninstall", map[string]string{"package": pkg}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// OutdatedPackages lists packages with newer versions available.
func (c *Client) OutdatedPackages(ctx context.Context) ([]OutdatedPackage, error) {
	var resp struct {
		Packages []OutdatedPackage `json:"packages"`
	}
	if err := c.get(ctx, "/packages/outdated", &resp); err != nil {
		return nil, err
	}
	return resp.Packages, nil
}

// GPUStatus is the status of a single GPU.
type GPUStatus struct {
	Index              int     `json:"index"`
	Name               string  `json:"name"`
	UUID               string  `json:"uuid"`
	TemperatureC       int     `json:"temperature_c"`
	UtilizationPercent int     `json:"utilization_percent"`
	MemoryUsedMB       int     `json:"memory_used_mb"`
	MemoryTotalMB      int     `json:"memory_total_mb"`
	MemoryFreeMB       int     `json:"memory_free_mb"`
	PowerDrawW         float64 `json:"power_draw_w,omitempty"`
}

// GPUSystemStatus is the status of all GPUs.
type GPUSystemStatus struct {
	DriverVersion string      `json:"driver_version"`
	CUDAVersion   string      `json:"cuda_version"`
	GPUCount      int         `json:"gpu_count"`
	GPUs          []GPUStatus `json:"gpus"`
}

// GetGPUStatus polls the GPU monitor.
func (c *Client) GetGPUStatus(ctx context.Context) (*GPUSystemStatus, error) {
	var status GPUSystemStatus
	if err := c.get(ctx, "/gpu/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetGPU polls a single GPU by index.
func (c *Client) GetGPU(ctx context.Context, index int) (*GPUStatus, error) {
	var status GPUStatus
	if err := c.get(ctx, "/gpu/"+strconv.Itoa(index), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ContainerSummary describes one container.
type ContainerSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"`
	State  string `json:"state"`
	Ports  string `json:"ports,omitempty"`
}

// OperationResponse reports a container operation outcome.
type OperationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListContainers lists all containers.
func (c *Client) ListContainers(ctx context.Context) ([]ContainerSummary, error) {
	var containers []ContainerSummary
	if err := c.get(ctx, "/docker/containers", &containers); err != nil {
		return nil, err
	}
	return containers, nil
}

// StartContainer starts a container.
func (c *Client) StartContainer(ctx context.Context, id string) (*OperationResponse, error) {
	var resp OperationResponse
	if err := c.post(ctx, fmt.Sprintf("/docker/containers/%s/start", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopContainer stops a container.
func (c *Client) StopContainer(ctx context.Context, id string) (*OperationResponse, error) {
	var resp OperationResponse
	if err := c.post(ctx, fmt.Sprintf("/docker/containers/%s/stop", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RestartContainer restarts a container.
func (c *Client) RestartContainer(ctx context.Context, id string) (*OperationResponse, error) {
	var resp OperationResponse
	if err := c.post(ctx, fmt.Sprintf("/docker/containers/%s/restart", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ContainerLogs fetches recent log lines from a container.
func (c *Client) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	var resp struct {
		Logs string `json:"logs"`
	}
	p := fmt.Sprintf("/docker/containers/%s/logs", id)
	if tail > 0 {
		p += "?tail=" + strconv.Itoa(tail)
	}
	if err := c.get(ctx, p, &resp); err != nil {
		return "", err
	}
	return resp.Logs, nil
}
