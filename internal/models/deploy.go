package models

// DeployStatus is the backend's deployment state, from GET /api/deploy/status.
type DeployStatus struct {
	Status      string            `json:"status"`
	URLs        map[string]string `json:"urls"`
	ComposeTool string            `json:"compose_tool"`
	Logs        []string          `json:"logs"`
}

// DeployCheck is the readiness probe result, from GET /api/deploy/check.
type DeployCheck struct {
	Ready       bool   `json:"ready"`
	HasExport   bool   `json:"has_export"`
	ComposeTool string `json:"compose_tool"`
	Message     string `json:"message"`
}

// ExportResult summarizes POST /runs/{id}/export.
type ExportResult struct {
	Status        string   `json:"status"`
	RunID         string   `json:"run_id"`
	ZipDownload   string   `json:"zip_download"`
	FilesWritten  int      `json:"files_written"`
	Files         []string `json:"files"`
	ZipSizeMB     float64  `json:"zip_size_mb"`
	ReadyToDeploy bool     `json:"ready_to_deploy"`
}

// DeployResult summarizes POST /api/deploy.
type DeployResult struct {
	Status      string            `json:"status"`
	URLs        map[string]string `json:"urls"`
	ComposeTool string            `json:"compose_tool"`
	Message     string            `json:"message"`
}
