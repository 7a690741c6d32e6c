// Package server provides the HTTP API of the text2video relay.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/maauso/text2video-api/internal/catalog"

// CreateVideoRequest is the HTTP request body for a generation request.
type CreateVideoRequest struct {
	// Prompt describes the video to generate.
	Prompt string `json:"prompt" validate:"required,max=4000"`
	// Model is a catalog model ID; unknown IDs fall back to the default model.
	Model string `json:"model" validate:"omitempty,max=100"`
	// Seconds is the requested duration; it is clamped to the model's maximum.
	Seconds int `json:"seconds" validate:"omitempty,min=0,max=60"`
	// AspectRatio of the output video.
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1"`
	// Image is an optional base64 string or data URL used as the first frame.
	Image string `json:"image"`
	// GenerationMode optionally overrides the echoed mode for image requests.
	GenerationMode string `json:"generation_mode" validate:"omitempty,max=50"`
}

// ModelListResponse is the HTTP response listing the selectable models.
type ModelListResponse struct {
	Object  string          `json:"object"`
	Default string          `json:"default"`
	Data    []catalog.Model `json:"data"`
}

// ErrorResponse is the error format for requests rejected before reaching the relay.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
