package routing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConstructServesEverythingWhenItFits(t *testing.T) {
	m, err := BuildModel(testInstance())
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	routes, err := m.construct()
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	served := 0
	for v, route := range routes {
		if !m.routeFeasible(route, v) {
			t.Fatalf("vehicle %d route infeasible: %v", v, route)
		}
		served += len(route)
	}
	if served != m.Manager().Size() {
		t.Fatalf("served %d of %d nodes", served, m.Manager().Size())
	}
}

func TestConstructFailsOnUnplaceableMandatoryNode(t *testing.T) {
	inst := testInstance()
	// Mandatory nodes 2 and 4 need one unit each; no vehicle can carry any.
	inst.VehicleCapacities = []int64{0, 0}
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	if _, err := m.construct(); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("construct: got %v, want ErrNoSolution", err)
	}
}

func TestSolveFindsKnownOptimum(t *testing.T) {
	inst := testInstance()
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 500 * time.Millisecond, Seed: 1, StallLimit: 50})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	// Serving all nodes as {1,2} and {3,4} costs 26; every alternative
	// partition or skip is strictly worse.
	if res.Objective != 26 {
		t.Fatalf("objective: got %d, want 26", res.Objective)
	}
	for i := 0; i < m.Manager().Size(); i++ {
		if !res.Assignment.Performed(i) {
			t.Fatalf("index %d unexpectedly skipped", i)
		}
	}
}

func TestSolveNeverWorseThanConstruction(t *testing.T) {
	inst := testInstance()
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 200 * time.Millisecond, Seed: 7, StallLimit: 20})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Objective > res.Metrics.Construction {
		t.Fatalf("search worsened the solution: %d > %d", res.Objective, res.Metrics.Construction)
	}
	if res.Metrics.BestObjective != res.Objective {
		t.Fatalf("metrics objective %d != result %d", res.Metrics.BestObjective, res.Objective)
	}
}

func TestSolveDeterministicForFixedSeed(t *testing.T) {
	inst := testInstance()
	solve := func() int64 {
		m, err := BuildModel(inst)
		if err != nil {
			t.Fatalf("BuildModel: %v", err)
		}
		res, err := m.Solve(context.Background(), Params{TimeLimit: 200 * time.Millisecond, Seed: 42, Workers: 1, StallLimit: 100})
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		return res.Objective
	}
	if a, b := solve(), solve(); a != b {
		t.Fatalf("same seed produced different objectives: %d vs %d", a, b)
	}
}

func TestSolveParallelWorkers(t *testing.T) {
	m, err := BuildModel(testInstance())
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 300 * time.Millisecond, Seed: 3, Workers: 4, StallLimit: 50})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Metrics.Workers != 4 {
		t.Fatalf("workers: got %d, want 4", res.Metrics.Workers)
	}
	if res.Objective > res.Metrics.Construction {
		t.Fatalf("parallel search worsened the solution")
	}
}

func TestSolveReturnsBestOnCanceledContext(t *testing.T) {
	m, err := BuildModel(testInstance())
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := m.Solve(ctx, Params{TimeLimit: time.Second, Seed: 1})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	// No improvement iterations ran; the construction result stands.
	if res.Objective != res.Metrics.Construction {
		t.Fatalf("objective %d != construction %d", res.Objective, res.Metrics.Construction)
	}
}

func TestTightRiskLimitForcesSkips(t *testing.T) {
	inst := testInstance()
	// Bound 40 is below the arrival risk of node 1 (50) and node 3 (100);
	// both are optional and must be skipped.
	inst.RiskLimit = 0.04
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 300 * time.Millisecond, Seed: 5, StallLimit: 50})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	man := m.Manager()
	for node, wantSkipped := range map[int]bool{1: true, 2: false, 3: true, 4: false} {
		if got := !res.Assignment.Performed(man.NodeToIndex(node)); got != wantSkipped {
			t.Fatalf("node %d: skipped=%v, want %v", node, got, wantSkipped)
		}
	}
	// 0->2->4->0 distance 17 plus penalties 50+100
	if res.Objective != 167 {
		t.Fatalf("objective: got %d, want 167", res.Objective)
	}
}

func TestExactTourMatchesBruteOptimum(t *testing.T) {
	dist := [][]int64{
		{0, 1, 9, 9},
		{1, 0, 1, 9},
		{9, 1, 0, 1},
		{9, 9, 1, 0},
	}
	tour, cost := ExactTour(dist, 0)
	if cost != 12 {
		t.Fatalf("cost: got %d, want 12", cost)
	}
	if len(tour) != 5 || tour[0] != 0 || tour[len(tour)-1] != 0 {
		t.Fatalf("tour malformed: %v", tour)
	}
	seen := map[int]bool{}
	for _, n := range tour[:len(tour)-1] {
		if seen[n] {
			t.Fatalf("node %d visited twice: %v", n, tour)
		}
		seen[n] = true
	}
}

func TestSolveMatchesExactTourSingleVehicle(t *testing.T) {
	dist := [][]int64{
		{0, 1, 9, 9},
		{1, 0, 1, 9},
		{9, 1, 0, 1},
		{9, 9, 1, 0},
	}
	inst := testInstance()
	inst.DistanceMatrix = dist
	inst.Demands = []int64{0, 1, 1, 1}
	inst.VehicleCapacities = []int64{10}
	inst.BreakdownProb = [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	inst.NodeInactiveProb = []float64{0, 0, 0, 0}
	inst.NumVehicles = 1
	inst.RiskLimit = 0
	m, err := BuildModel(inst)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	res, err := m.Solve(context.Background(), Params{TimeLimit: 500 * time.Millisecond, Seed: 9, StallLimit: 100})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	_, want := ExactTour(dist, 0)
	if res.Objective != want {
		t.Fatalf("objective: got %d, exact optimum %d", res.Objective, want)
	}
}
