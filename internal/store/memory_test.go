package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aspexet1/VRP/internal/model"
)

func smallInstance() model.Instance {
	return model.Instance{
		Name:              "smoke",
		DistanceMatrix:    [][]int64{{0, 1}, {1, 0}},
		Demands:           []int64{0, 1},
		VehicleCapacities: []int64{1},
		BreakdownProb:     [][]float64{{0, 0}, {0, 0}},
		NodeInactiveProb:  []float64{0, 0},
		NumVehicles:       1,
	}
}

func TestMemoryInstancesRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.CreateInstance(ctx, "t1", smallInstance())
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	got, err := m.GetInstance(ctx, "t1", id)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got.Name != "smoke" || got.NumVehicles != 1 {
		t.Fatalf("instance mismatch: %+v", got)
	}
	if _, err := m.GetInstance(ctx, "t2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read: got %v, want ErrNotFound", err)
	}
	items, next, err := m.ListInstances(ctx, "t1", "", 10)
	if err != nil || len(items) != 1 || next != "" {
		t.Fatalf("ListInstances: items=%d next=%q err=%v", len(items), next, err)
	}
	if items[0].NumNodes != 2 {
		t.Fatalf("meta numNodes: got %d", items[0].NumNodes)
	}
}

func TestMemoryListInstancesPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 3; i++ {
		if _, err := m.CreateInstance(ctx, "t1", smallInstance()); err != nil {
			t.Fatalf("CreateInstance: %v", err)
		}
	}
	first, cursor, err := m.ListInstances(ctx, "t1", "", 2)
	if err != nil || len(first) != 2 || cursor == "" {
		t.Fatalf("page 1: items=%d cursor=%q err=%v", len(first), cursor, err)
	}
	second, cursor2, err := m.ListInstances(ctx, "t1", cursor, 2)
	if err != nil || len(second) != 1 || cursor2 != "" {
		t.Fatalf("page 2: items=%d cursor=%q err=%v", len(second), cursor2, err)
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Fatal("pages overlap")
	}
}

func TestMemorySolutions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.SaveSolution(ctx, model.Solution{TenantID: "t1", InstanceID: "i1", Status: model.StatusSolved, Objective: 42})
	if err != nil {
		t.Fatalf("SaveSolution: %v", err)
	}
	got, err := m.GetSolution(ctx, "t1", id)
	if err != nil || got.Objective != 42 {
		t.Fatalf("GetSolution: %+v %v", got, err)
	}
	if got.CreatedAt == "" {
		t.Fatal("createdAt not set")
	}
	// preset IDs survive, for async solves
	if id2, _ := m.SaveSolution(ctx, model.Solution{ID: "sol_x", TenantID: "t1"}); id2 != "sol_x" {
		t.Fatalf("preset ID: got %q", id2)
	}
	withMatch, _, _ := m.ListSolutions(ctx, "t1", "i1", "", 10)
	if len(withMatch) != 1 {
		t.Fatalf("filtered list: got %d", len(withMatch))
	}
	all, _, _ := m.ListSolutions(ctx, "t1", "", "", 10)
	if len(all) != 2 {
		t.Fatalf("unfiltered list: got %d", len(all))
	}
}

func TestMemorySolverConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if cfg, _ := m.GetSolverConfig(ctx, "t1"); cfg != nil {
		t.Fatalf("expected nil config, got %v", cfg)
	}
	if err := m.SaveSolverConfig(ctx, "t1", map[string]any{"workers": 4}); err != nil {
		t.Fatalf("SaveSolverConfig: %v", err)
	}
	cfg, _ := m.GetSolverConfig(ctx, "t1")
	if cfg["workers"] != 4 {
		t.Fatalf("config: %v", cfg)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.com/hook",
		Events: []string{"solve.completed"}, Secret: "s",
	})
	if err != nil || sub.ID == "" {
		t.Fatalf("CreateSubscription: %+v %v", sub, err)
	}
	hits, _ := m.GetSubscriptionsForEvent(ctx, "t1", "solve.completed")
	if len(hits) != 1 {
		t.Fatalf("matching subs: got %d", len(hits))
	}
	misses, _ := m.GetSubscriptionsForEvent(ctx, "t1", "solve.failed")
	if len(misses) != 0 {
		t.Fatalf("non-matching subs: got %d", len(misses))
	}
	if err := m.DeleteSubscription(ctx, "t1", sub.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if err := m.DeleteSubscription(ctx, "t1", sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}

func TestMemoryWebhookDeliveryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.EnqueueWebhook(ctx, "t1", "sub1", "solve.completed", "https://example.com/hook", "s", []byte(`{}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due: %+v", due)
	}

	// retry pushes the next attempt into the future
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivery due too early: %+v", due)
	}

	// admin retry makes it due again, then success removes it
	if err := m.RetryWebhookDelivery(ctx, "t1", id); err != nil {
		t.Fatalf("RetryWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 {
		t.Fatalf("retried delivery not due: %+v", due)
	}
	if due[0].Attempts != 1 {
		t.Fatalf("attempts: got %d, want 1", due[0].Attempts)
	}
	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("MarkWebhookDelivery success: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered item still due: %+v", due)
	}

	items, _, err := m.ListWebhookDeliveries(ctx, "t1", "delivered", "", 10)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListWebhookDeliveries: %d %v", len(items), err)
	}
	if items[0]["attempts"] != 2 {
		t.Fatalf("attempts in listing: %v", items[0]["attempts"])
	}
	if err := m.RetryWebhookDelivery(ctx, "t2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant retry: got %v", err)
	}
}
