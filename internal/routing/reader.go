package routing

import (
	"context"
	"errors"
	"time"

	"github.com/aspexet1/VRP/internal/model"
)

// Summarize projects an assignment into per-vehicle route sequences and
// aggregate metrics. It only reads the assignment: re-running it over
// an unchanged assignment yields identical values.
func (m *Model) Summarize(a *Assignment) model.Solution {
	man := m.man
	sol := model.Solution{Status: model.StatusSolved}
	visited := make([]bool, man.NumIndices())
	for v := 0; v < man.NumVehicles(); v++ {
		r := model.Route{Vehicle: v, Nodes: []int{man.Depot()}}
		prev := man.Start(v)
		var dist, load, risk int64
		for _, idx := range a.RouteIndices(v) {
			visited[idx] = true
			r.Nodes = append(r.Nodes, man.IndexToNode(idx))
			dist += m.arcCost(prev, idx)
			prev = idx
		}
		dist += m.arcCost(prev, man.End(v))
		r.Nodes = append(r.Nodes, man.Depot())
		if cum, ok := m.CumulAt(a, DimCapacity, man.End(v)); ok {
			load = cum
		}
		if cum, ok := m.CumulAt(a, DimRisk, man.End(v)); ok {
			risk = cum
		}
		r.Distance = dist
		r.Load = load
		r.Risk = float64(risk) / RiskScale
		sol.Routes = append(sol.Routes, r)
		sol.TotalDistance += dist
		sol.TotalRisk += r.Risk
	}
	for i := 0; i < man.Size(); i++ {
		if !visited[i] {
			sol.SkippedNodes = append(sol.SkippedNodes, man.IndexToNode(i))
		}
	}
	sol.PenaltyCost = m.unperformedPenalty(visited)
	sol.Objective = sol.TotalDistance + sol.PenaltyCost
	return sol
}

// SolveInstance is the end-to-end convenience used by the API and CLI:
// build the model, solve, and project the result. Structural
// infeasibility comes back as a Solution with StatusInfeasible rather
// than an error; only validation failures return an error.
func SolveInstance(ctx context.Context, inst *model.Instance, p Params) (model.Solution, error) {
	m, err := BuildModel(inst)
	if err != nil {
		return model.Solution{}, err
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	started := time.Now()
	res, err := m.Solve(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNoSolution) {
			return model.Solution{
				Status:    model.StatusInfeasible,
				Seed:      p.Seed,
				ElapsedMs: time.Since(started).Milliseconds(),
			}, nil
		}
		return model.Solution{}, err
	}
	sol := m.Summarize(res.Assignment)
	sol.Seed = p.Seed
	sol.ElapsedMs = res.Metrics.Elapsed.Milliseconds()
	sol.Metrics = model.SolveMetrics{
		Iterations:    res.Metrics.Iterations,
		Moves:         res.Metrics.Moves,
		Rejected:      res.Metrics.Rejected,
		PenaltyBumps:  res.Metrics.PenaltyBumps,
		Workers:       res.Metrics.Workers,
		Construction:  res.Metrics.Construction,
		BestObjective: res.Metrics.BestObjective,
	}
	return sol, nil
}
