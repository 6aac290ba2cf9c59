package routing

import (
	"context"
	"testing"
	"time"

	"github.com/aspexet1/VRP/internal/model"
)

// Small end-to-end cases with hand-checkable optima.

func TestTwoVehiclesMustSplitDemand(t *testing.T) {
	inst := &model.Instance{
		DistanceMatrix: [][]int64{
			{0, 4, 6, 8},
			{4, 0, 3, 5},
			{6, 3, 0, 2},
			{8, 5, 2, 0},
		},
		Demands:           []int64{0, 7, 5, 8},
		VehicleCapacities: []int64{15, 15},
		BreakdownProb:     [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		NodeInactiveProb:  []float64{0, 0, 0, 0},
		NumVehicles:       2,
		Depot:             0,
		RiskLimit:         0.3,
		TimeLimitSeconds:  1,
	}
	sol, err := SolveInstance(context.Background(), inst, Params{TimeLimit: 300 * time.Millisecond, Seed: 1, StallLimit: 50})
	if err != nil {
		t.Fatalf("SolveInstance: %v", err)
	}
	if sol.Status != model.StatusSolved {
		t.Fatalf("status: %s", sol.Status)
	}
	if len(sol.SkippedNodes) != 0 {
		t.Fatalf("all nodes are mandatory, skipped: %v", sol.SkippedNodes)
	}
	// Total demand 20 exceeds one vehicle; both routes must carry load
	// within capacity, and loads must sum to 20.
	var total int64
	for _, r := range sol.Routes {
		if r.Load > inst.VehicleCapacities[r.Vehicle] {
			t.Fatalf("vehicle %d over capacity: %d", r.Vehicle, r.Load)
		}
		total += r.Load
	}
	if total != 20 {
		t.Fatalf("loads sum to %d, want 20", total)
	}
}

func TestZeroCostsMakeRiskVacuous(t *testing.T) {
	inst := testInstance()
	inst.BreakdownCost = 0
	inst.InactivePenalty = 0
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	// every skip penalty rounds to zero, so every node is mandatory
	for i := 0; i < m.Manager().Size(); i++ {
		if m.optional(i) {
			t.Fatalf("index %d should be mandatory", i)
		}
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 300 * time.Millisecond, Seed: 1, StallLimit: 50})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	// pure CVRP optimum for this matrix: {1,2} and {3,4} for 26
	if res.Objective != 26 {
		t.Fatalf("objective: got %d, want 26", res.Objective)
	}
}

func TestZeroRiskLimitExcludesRiskyNodes(t *testing.T) {
	inst := testInstance()
	inst.RiskLimit = 0
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 300 * time.Millisecond, Seed: 1, StallLimit: 50})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	sol := m.Summarize(res.Assignment)
	for _, node := range []int{1, 3} {
		found := false
		for _, s := range sol.SkippedNodes {
			if s == node {
				found = true
			}
		}
		if !found {
			t.Fatalf("risky node %d served under a zero risk limit", node)
		}
	}
	for _, r := range sol.Routes {
		if r.Risk != 0 {
			t.Fatalf("vehicle %d carries risk %v under a zero limit", r.Vehicle, r.Risk)
		}
	}
	if sol.PenaltyCost != 150 {
		t.Fatalf("penalty: got %d, want 150", sol.PenaltyCost)
	}
}

func TestRaisingRiskLimitOnlyRelaxes(t *testing.T) {
	tight := testInstance()
	tight.RiskLimit = 0.04
	loose := testInstance()
	loose.RiskLimit = 0.3
	mt, err := BuildModel(tight)
	if err != nil {
		t.Fatalf("BuildModel tight: %v", err)
	}
	ml, err := BuildModel(loose)
	if err != nil {
		t.Fatalf("BuildModel loose: %v", err)
	}
	// every route feasible under the tight bound stays feasible under
	// the loose one
	for i := 0; i < mt.Manager().Size(); i++ {
		for j := 0; j < mt.Manager().Size(); j++ {
			if i == j {
				continue
			}
			route := []int{i, j}
			if mt.routeFeasible(route, 0) && !ml.routeFeasible(route, 0) {
				t.Fatalf("route %v feasible at 0.04 but not at 0.3", route)
			}
		}
	}
}
