// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net/http"
)

// DiagnosticResponse reports whether the upstream credential is configured.
type DiagnosticResponse struct {
	HasAPIKey bool   `json:"hasApiKey"`
	Message   string `json:"message"`
}

// Diagnose builds the diagnostic report for the current environment.
func (s *Server) Diagnose() DiagnosticResponse {
	if _, ok := s.cfg.Upstream.LookupAPIKey(); ok {
		return DiagnosticResponse{
			HasAPIKey: true,
			Message:   "OpenAI API key is configured",
		}
	}
	return DiagnosticResponse{
		HasAPIKey: false,
		Message: fmt.Sprintf("OpenAI API key is missing. Please set %s in your environment variables.",
			s.cfg.Upstream.APIKeyEnv),
	}
}

// handleDiagnostic handles GET /api/test.
func (s *Server) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Diagnose())
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
