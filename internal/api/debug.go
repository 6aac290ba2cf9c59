package api

import (
	"net/http"

	"github.com/aspexet1/VRP/internal/buildinfo"
)

// DebugJSON reports build metadata, useful when checking a deploy.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
