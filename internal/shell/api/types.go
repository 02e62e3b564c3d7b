package api

import "github.com/artpar/hoster-template/internal/core/domain"

// =============================================================================
// Request Types
// =============================================================================

// DeployRequest is the request body for deploying a project.
type DeployRequest struct {
	Identity    string `json:"identity"`
	ProjectRoot string `json:"project_root"`
}

// CheckRequest is the request body for checking and planning a project.
type CheckRequest struct {
	ProjectRoot string `json:"project_root"`
}

// =============================================================================
// Response Types
// =============================================================================

// CheckResponse reports which template claims a project.
type CheckResponse struct {
	Template string `json:"template,omitempty"`
	Matched  bool   `json:"matched"`
}

// ListDeploymentsResponse is the response for listing deployments.
type ListDeploymentsResponse struct {
	Deployments []domain.Deployment `json:"deployments"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for readiness check.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
