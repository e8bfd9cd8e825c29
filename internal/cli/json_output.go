// json_output.go - Machine-readable output for scripting.
//
// Every command that accepts --json prints one JSONResponse envelope to
// stdout. Human-readable notices go to stderr in that mode.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONResponse is the envelope shared by all commands.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	return r.WriteTo(os.Stdout)
}

// WriteTo encodes the response, indented, to w.
func (r *JSONResponse) WriteTo(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData is returned by ask, analyze and suggest.
type AskData struct {
	Provider   string   `json:"provider"`
	Model      string   `json:"model"`
	Response   string   `json:"response"`
	Kind       string   `json:"kind"`
	Keywords   []string `json:"keywords,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// ProviderStatus is one row of the status command.
type ProviderStatus struct {
	Provider   string   `json:"provider"`
	Configured bool     `json:"configured"`
	Reachable  bool     `json:"reachable"`
	Message    string   `json:"message"`
	Models     []string `json:"models,omitempty"`
}

// StatusData represents the data returned by the status command.
type StatusData struct {
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
	Providers []ProviderStatus `json:"providers"`
	Cache     CacheStatsData   `json:"cache"`
}

// CacheStatsData represents the data returned by cache stats.
type CacheStatsData struct {
	Enabled bool    `json:"enabled"`
	Backend string  `json:"backend"`
	Path    string  `json:"path,omitempty"`
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Writes  int64   `json:"writes"`
	Faults  int64   `json:"faults"`
	HitRate float64 `json:"hit_rate"`
}

// TemplateData is one entry of templates list.
type TemplateData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Adversarial bool   `json:"adversarial"`
	Custom      bool   `json:"custom"`
}

// SessionData is one entry of sessions list.
type SessionData struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Messages  int    `json:"messages"`
	UpdatedAt string `json:"updated_at"`
	Preview   string `json:"preview,omitempty"`
}
