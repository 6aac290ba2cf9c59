package routing

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSolution reports structural infeasibility: no assignment
// satisfies every dimension even with all optional visits skipped.
// It is a normal, reportable outcome rather than a bug.
var ErrNoSolution = errors.New("routing: no feasible assignment exists")

// Params tunes one solve invocation.
type Params struct {
	TimeLimit    time.Duration // wall-clock budget for improvement; default 30s
	Seed         int64         // 0 picks a time-based seed
	Workers      int           // independent local-search workers; default 1
	StallLimit   int           // consecutive non-improving iterations before a worker stops; 0 = run out the clock
	LambdaFactor float64       // guided-local-search penalty scale; default 0.1
}

// Metrics captures aggregate search statistics across workers.
type Metrics struct {
	Iterations    int
	Moves         int
	Rejected      int
	PenaltyBumps  int
	Workers       int
	Construction  int64
	BestObjective int64
	Elapsed       time.Duration
}

// Result is the outcome of a successful solve.
type Result struct {
	Assignment *Assignment
	Objective  int64
	Metrics    Metrics
}

// Solve runs construction followed by guided local search under the
// wall-clock budget and returns the best assignment observed. When
// Workers > 1 each worker owns an independent copy of the search state
// and a distinct seed; only the final reduction compares objectives.
// Move rejections are silent; expiry of the budget returns the best
// solution found so far. ErrNoSolution is returned only when even the
// construction phase cannot place every mandatory visit.
func (m *Model) Solve(ctx context.Context, p Params) (*Result, error) {
	if p.TimeLimit <= 0 {
		p.TimeLimit = time.Duration(m.inst.TimeLimitSeconds) * time.Second
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	if p.LambdaFactor <= 0 {
		p.LambdaFactor = 0.1
	}
	started := time.Now()
	deadline := started.Add(p.TimeLimit)

	initial, err := m.construct()
	if err != nil {
		return nil, err
	}
	constructionCost := m.cost(initial)

	type outcome struct {
		routes [][]int
		cost   int64
		w      *glsWorker
	}
	results := make([]outcome, p.Workers)
	var wg sync.WaitGroup
	for wi := 0; wi < p.Workers; wi++ {
		wg.Add(1)
		go func(wi int) {
			defer wg.Done()
			w := newGLSWorker(m, initial, p.Seed+int64(wi), p.LambdaFactor, deadline)
			routes, cost := w.run(ctx, p.StallLimit)
			results[wi] = outcome{routes: routes, cost: cost, w: w}
		}(wi)
	}
	wg.Wait()

	best := results[0]
	met := Metrics{Workers: p.Workers, Construction: constructionCost}
	for _, r := range results {
		met.Iterations += r.w.iterations
		met.Moves += r.w.moves
		met.Rejected += r.w.rejected
		met.PenaltyBumps += r.w.penaltyBumps
		if r.cost < best.cost {
			best = r
		}
	}
	met.BestObjective = best.cost
	met.Elapsed = time.Since(started)

	return &Result{
		Assignment: newAssignment(m.man, best.routes),
		Objective:  best.cost,
		Metrics:    met,
	}, nil
}
