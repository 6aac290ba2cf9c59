package api

import (
	"net/http"

	"github.com/aspexet1/VRP/internal/importer"
)

// ImportInstanceHandler handles POST /v1/instances/import. The body is
// text/csv node records (x, y, demand, inactiveProb; depot first); the
// fleet comes from the vehicles and capacity query parameters.
func (s *Server) ImportInstanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, tenant := s.withTenant(r)
	inst, err := importer.ParseInstance(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
		return
	}
	capacity := intQuery(r, "capacity", 0)
	if capacity <= 0 {
		writeProblem(w, http.StatusBadRequest, "Missing capacity", "capacity query parameter is required", r.URL.Path)
		return
	}
	inst.NumVehicles = intQuery(r, "vehicles", 1)
	inst.VehicleCapacities = make([]int64, inst.NumVehicles)
	for i := range inst.VehicleCapacities {
		inst.VehicleCapacities[i] = int64(capacity)
	}
	inst.Name = r.URL.Query().Get("name")
	inst.ApplyDefaults()
	if err := inst.Validate(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	id, err := s.Store.CreateInstance(ctx, tenant, *inst)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "nodes": len(inst.Demands)})
}
