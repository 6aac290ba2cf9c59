package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aspexet1/VRP/internal/model"
)

// Memory is a mutex-guarded in-memory store used when no DATABASE_URL
// is configured, and by tests.
type Memory struct {
	mu         sync.Mutex
	instances  map[string]model.Instance
	instMeta   map[string]model.InstanceOut
	instByTen  map[string][]string
	solutions  map[string]model.Solution
	solByTen   map[string][]string
	cfg        map[string]map[string]any
	subs       map[string][]model.Subscription
	deliveries map[string]*memDelivery
	delByTen   map[string][]string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		instances:  map[string]model.Instance{},
		instMeta:   map[string]model.InstanceOut{},
		instByTen:  map[string][]string{},
		solutions:  map[string]model.Solution{},
		solByTen:   map[string][]string{},
		cfg:        map[string]map[string]any{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
		delByTen:   map[string][]string{},
	}
}

func (m *Memory) CreateInstance(ctx context.Context, tenantID string, inst model.Instance) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.instances[id] = inst
	m.instMeta[id] = model.InstanceOut{
		ID:        id,
		TenantID:  tenantID,
		Name:      inst.Name,
		NumNodes:  len(inst.DistanceMatrix),
		Vehicles:  inst.NumVehicles,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.instByTen[tenantID] = append(m.instByTen[tenantID], id)
	return id, nil
}

func (m *Memory) GetInstance(ctx context.Context, tenantID, id string) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.instMeta[id]
	if !ok || meta.TenantID != tenantID {
		return model.Instance{}, ErrNotFound
	}
	return m.instances[id], nil
}

func (m *Memory) ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.instByTen[tenantID]
	out := []model.InstanceOut{}
	next := ""
	for i := cursorStart(ids, cursor); i < len(ids) && len(out) < limitOr(limit); i++ {
		out = append(out, m.instMeta[ids[i]])
		next = ids[i]
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) SaveSolution(ctx context.Context, sol model.Solution) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sol.ID == "" {
		sol.ID = uuid.New().String()
	}
	if sol.CreatedAt == "" {
		sol.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.solutions[sol.ID] = sol
	m.solByTen[sol.TenantID] = append(m.solByTen[sol.TenantID], sol.ID)
	return sol.ID, nil
}

func (m *Memory) GetSolution(ctx context.Context, tenantID, id string) (model.Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.solutions[id]
	if !ok || s.TenantID != tenantID {
		return model.Solution{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSolutions(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.Solution, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.solByTen[tenantID]
	out := []model.Solution{}
	next := ""
	for i := cursorStart(ids, cursor); i < len(ids) && len(out) < limitOr(limit); i++ {
		s := m.solutions[ids[i]]
		if instanceID == "" || s.InstanceID == instanceID {
			out = append(out, s)
		}
		next = ids[i]
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg[tenantID], nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg[tenantID] = cfg
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	out := []model.Subscription{}
	start := 0
	if cursor != "" {
		for i, s := range subs {
			if s.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	next := ""
	for i := start; i < len(subs) && len(out) < limitOr(limit); i++ {
		out = append(out, subs[i])
		next = subs[i].ID
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, s := range subs {
		if s.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret,
			Payload: payload, Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.delByTen[tenantID] = append(m.delByTen[tenantID], id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []WebhookDelivery
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if len(out) >= limitOr(limit) {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		now := time.Now()
		d.Status = "delivered"
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.delByTen[tenantID]
	out := []map[string]any{}
	next := ""
	for i := cursorStart(ids, cursor); i < len(ids) && len(out) < limitOr(limit); i++ {
		d := m.deliveries[ids[i]]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, map[string]any{
			"id": d.ID, "eventType": d.EventType, "url": d.URL,
			"status": d.Status, "attempts": d.Attempts,
			"lastError": d.LastError, "responseCode": d.ResponseCode,
		})
		next = ids[i]
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok || d.TenantID != tenantID {
		return ErrNotFound
	}
	d.Status = "pending"
	d.NextAttemptAt = time.Now()
	return nil
}

func cursorStart(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}

func limitOr(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
