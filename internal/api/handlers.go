package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aspexet1/VRP/internal/metrics"
	"github.com/aspexet1/VRP/internal/model"
	"github.com/aspexet1/VRP/internal/routing"
	"github.com/aspexet1/VRP/internal/store"
	"github.com/aspexet1/VRP/internal/webhooks"
)

// InstancesHandler handles POST (create) and GET (list) on /v1/instances.
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		var inst model.Instance
		if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		inst.ApplyDefaults()
		if err := inst.Validate(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		id, err := s.Store.CreateInstance(ctx, tenant, inst)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := intQuery(r, "limit", 0)
		items, next, err := s.Store.ListInstances(ctx, tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// InstanceByIDHandler handles GET /v1/instances/{id}.
func (s *Server) InstanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/instances/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	inst, err := s.Store.GetInstance(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Instance not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// SolveHandler handles POST /v1/solve. Synchronous by default; with
// async=true it returns 202 and the solve runs in the background,
// streaming progress through the broker.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "retry later", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if p.Role != "admin" && p.Role != "planner" {
		writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	req.TenantID = p.Tenant

	var inst model.Instance
	if req.InstanceID != "" {
		got, err := s.Store.GetInstance(r.Context(), p.Tenant, req.InstanceID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Instance not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
			return
		}
		inst = got
	} else {
		inst = *req.Instance
	}
	inst.ApplyDefaults()
	if req.RiskLimit != nil {
		inst.RiskLimit = *req.RiskLimit
	}
	if err := inst.Validate(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}

	params := s.solveParams(r.Context(), p.Tenant, &req)

	if req.Async {
		solveID := "sol_" + uuid.New().String()
		go s.runAsyncSolve(solveID, p.Tenant, req.InstanceID, inst, params)
		writeJSON(w, http.StatusAccepted, map[string]string{"solveId": solveID, "status": "running"})
		return
	}

	started := time.Now()
	sol, err := routing.SolveInstance(r.Context(), &inst, params)
	metrics.SolveDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.Solves.WithLabelValues("error").Inc()
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	metrics.Solves.WithLabelValues(sol.Status).Inc()
	metrics.SolveIterations.Observe(float64(sol.Metrics.Iterations))
	sol.TenantID = p.Tenant
	sol.InstanceID = req.InstanceID
	id, err := s.Store.SaveSolution(r.Context(), sol)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
		return
	}
	sol.ID = id
	event := webhooks.EventSolveCompleted
	if sol.Status == model.StatusInfeasible {
		event = webhooks.EventSolveFailed
	}
	s.Pub.Emit(r.Context(), p.Tenant, event, map[string]any{"solveId": id, "status": sol.Status, "objective": sol.Objective})
	writeJSON(w, http.StatusOK, sol)
}

// solveParams merges service defaults, tenant solver config, and
// per-request overrides, in that order.
func (s *Server) solveParams(ctx context.Context, tenant string, req *model.SolveRequest) routing.Params {
	sc := s.Cfg.Solver
	if cfg, err := s.Store.GetSolverConfig(ctx, tenant); err == nil && cfg != nil {
		if v, ok := asInt(cfg["timeLimitSeconds"]); ok && v > 0 {
			sc.TimeLimitSeconds = v
		}
		if v, ok := asInt(cfg["workers"]); ok && v > 0 {
			sc.Workers = v
		}
		if v, ok := asInt(cfg["stallLimit"]); ok && v > 0 {
			sc.StallLimit = v
		}
		if v, ok := cfg["lambdaFactor"].(float64); ok && v > 0 {
			sc.LambdaFactor = v
		}
	}
	p := routing.Params{
		TimeLimit:    time.Duration(sc.TimeLimitSeconds) * time.Second,
		Seed:         req.Seed,
		Workers:      sc.Workers,
		StallLimit:   sc.StallLimit,
		LambdaFactor: sc.LambdaFactor,
	}
	if req.TimeBudgetMs > 0 {
		p.TimeLimit = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	if req.Workers > 0 {
		p.Workers = req.Workers
	}
	return p
}

func (s *Server) runAsyncSolve(solveID, tenant, instanceID string, inst model.Instance, params routing.Params) {
	ctx, cancel := context.WithTimeout(context.Background(), params.TimeLimit+30*time.Second)
	defer cancel()
	s.Broker.Publish(solveID, SSEEvent{Type: "solve.started", Data: map[string]any{"solveId": solveID}})
	started := time.Now()
	sol, err := routing.SolveInstance(ctx, &inst, params)
	metrics.SolveDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.Solves.WithLabelValues("error").Inc()
		s.Broker.Publish(solveID, SSEEvent{Type: "solve.failed", Data: map[string]any{"solveId": solveID, "error": err.Error()}})
		s.Pub.Emit(ctx, tenant, webhooks.EventSolveFailed, map[string]any{"solveId": solveID, "error": err.Error()})
		return
	}
	metrics.Solves.WithLabelValues(sol.Status).Inc()
	metrics.SolveIterations.Observe(float64(sol.Metrics.Iterations))
	sol.ID = solveID
	sol.TenantID = tenant
	sol.InstanceID = instanceID
	if _, err := s.Store.SaveSolution(ctx, sol); err != nil {
		s.Broker.Publish(solveID, SSEEvent{Type: "solve.failed", Data: map[string]any{"solveId": solveID, "error": err.Error()}})
		return
	}
	event := webhooks.EventSolveCompleted
	if sol.Status == model.StatusInfeasible {
		event = webhooks.EventSolveFailed
	}
	s.Broker.Publish(solveID, SSEEvent{Type: event, Data: map[string]any{
		"solveId": solveID, "status": sol.Status, "objective": sol.Objective, "elapsedMs": sol.ElapsedMs,
	}})
	s.Pub.Emit(ctx, tenant, event, map[string]any{"solveId": solveID, "status": sol.Status, "objective": sol.Objective})
}

// SolutionsHandler handles GET /v1/solutions with optional instanceId filter.
func (s *Server) SolutionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, tenant := s.withTenant(r)
	items, next, err := s.Store.ListSolutions(ctx, tenant, r.URL.Query().Get("instanceId"), r.URL.Query().Get("cursor"), intQuery(r, "limit", 0))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// SolutionByIDHandler handles GET /v1/solutions/{id}.
func (s *Server) SolutionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/solutions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	sol, err := s.Store.GetSolution(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Solution not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

// SolveByIDHandler handles GET /v1/solves/{id} and GET
// /v1/solves/{id}/events/stream (SSE).
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if strings.HasSuffix(path, "/events/stream") {
		id := strings.TrimSuffix(path, "/events/stream")
		s.streamSolveEvents(w, r, id)
		return
	}
	if r.Method != http.MethodGet || path == "" || strings.Contains(path, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	sol, err := s.Store.GetSolution(ctx, tenant, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Async solve still running: no stored result yet.
			writeJSON(w, http.StatusOK, map[string]string{"solveId": path, "status": "running"})
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) streamSolveEvents(w http.ResponseWriter, r *http.Request, solveID string) {
	if solveID == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(solveID)
	defer s.Broker.Unsubscribe(solveID, ch)
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// SolverConfigHandler returns effective solver defaults for the tenant.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	defaults := map[string]any{
		"timeLimitSeconds": s.Cfg.Solver.TimeLimitSeconds,
		"workers":          s.Cfg.Solver.Workers,
		"stallLimit":       s.Cfg.Solver.StallLimit,
		"lambdaFactor":     s.Cfg.Solver.LambdaFactor,
		"riskLimit":        model.DefaultRiskLimit,
	}
	ctx, tenant := s.withTenant(r)
	if cfg, _ := s.Store.GetSolverConfig(ctx, tenant); cfg != nil {
		for k, v := range cfg {
			defaults[k] = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"defaults": defaults})
}

// AdminSolverConfigHandler gets or sets the tenant solver config.
func (s *Server) AdminSolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solver/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if err := s.Store.SaveSolverConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST (create) and GET (list) on /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscriptionRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		req.TenantID = tenant
		sub, err := s.Store.CreateSubscription(ctx, req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		items, next, err := s.Store.ListSubscriptions(ctx, tenant, r.URL.Query().Get("cursor"), intQuery(r, "limit", 0))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
			return
		}
		for i := range items {
			items[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	ctx, tenant := s.withTenant(r)
	if err := s.Store.DeleteSubscription(ctx, tenant, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler lists webhook deliveries for the tenant (admin).
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, r.URL.Query().Get("status"), r.URL.Query().Get("cursor"), intQuery(r, "limit", 0))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry.
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/retry") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Delivery not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Retry failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func intQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
