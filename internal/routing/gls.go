package routing

import (
	"context"
	"math/rand"
	"time"
)

// Guided local search over relocate / swap / 2-opt neighborhoods plus
// drop and reinsert of optional visits. Arc penalty weights live only
// for the duration of one worker's search; repeated solves with the
// same seed are independent and deterministic.

type moveKind int

const (
	moveRelocate moveKind = iota
	moveSwap
	moveTwoOpt
	moveDrop
	moveInsert
)

type move struct {
	kind           moveKind
	idx            int // plain index for relocate/drop/insert
	fromV, fromPos int
	toV, toPos     int // toPos is an insertion position, or the 2-opt segment end
}

type glsWorker struct {
	m        *Model
	rng      *rand.Rand
	penalty  [][]int64 // node-space arc penalty weights, fresh per solve
	lambda   int64
	routes   [][]int
	skipped  []bool
	deadline time.Time

	iterations   int
	moves        int
	rejected     int
	penaltyBumps int
}

func newGLSWorker(m *Model, routes [][]int, seed int64, lambdaFactor float64, deadline time.Time) *glsWorker {
	n := len(m.inst.DistanceMatrix)
	pen := make([][]int64, n)
	for i := range pen {
		pen[i] = make([]int64, n)
	}
	w := &glsWorker{
		m:        m,
		rng:      rand.New(rand.NewSource(seed)),
		penalty:  pen,
		routes:   cloneRoutes(routes),
		skipped:  make([]bool, m.man.Size()),
		deadline: deadline,
	}
	routed := make([]bool, m.man.Size())
	for _, r := range routes {
		for _, i := range r {
			routed[i] = true
		}
	}
	for i := range w.skipped {
		w.skipped[i] = !routed[i]
	}
	w.lambda = glsLambda(m, routes, lambdaFactor)
	return w
}

// glsLambda scales penalty weights to the instance's cost magnitude:
// a fraction of the mean arc cost of the constructed solution.
func glsLambda(m *Model, routes [][]int, factor float64) int64 {
	var total int64
	arcs := 0
	for v, route := range routes {
		prev := m.man.Start(v)
		for _, idx := range route {
			total += m.arcCost(prev, idx)
			prev = idx
			arcs++
		}
		total += m.arcCost(prev, m.man.End(v))
		arcs++
	}
	if arcs == 0 || total == 0 {
		return 1
	}
	l := int64(factor * float64(total) / float64(arcs))
	if l < 1 {
		l = 1
	}
	return l
}

func cloneRoutes(routes [][]int) [][]int {
	out := make([][]int, len(routes))
	for i, r := range routes {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// augArc is the penalized arc cost used during move evaluation.
func (w *glsWorker) augArc(from, to int) int64 {
	i, j := w.m.man.IndexToNode(from), w.m.man.IndexToNode(to)
	return w.m.arcCost(from, to) + w.lambda*w.penalty[i][j]
}

// routeAug sums penalized arc costs of one candidate route.
func (w *glsWorker) routeAug(route []int, v int) int64 {
	var total int64
	prev := w.m.man.Start(v)
	for _, idx := range route {
		total += w.augArc(prev, idx)
		prev = idx
	}
	return total + w.augArc(prev, w.m.man.End(v))
}

// run improves the routes until the deadline, cancellation, or
// stallLimit consecutive iterations without true-objective improvement.
// It returns the best routes observed and their true objective.
func (w *glsWorker) run(ctx context.Context, stallLimit int) ([][]int, int64) {
	best := cloneRoutes(w.routes)
	bestCost := w.m.cost(best)
	stall := 0
	for time.Now().Before(w.deadline) && ctx.Err() == nil {
		w.iterations++
		mv, delta := w.bestMove()
		if delta < 0 {
			w.apply(mv)
			w.moves++
			if c := w.m.cost(w.routes); c < bestCost {
				best = cloneRoutes(w.routes)
				bestCost = c
				stall = 0
				continue
			}
		} else {
			// Local minimum of the augmented objective: penalize the
			// highest-utility arcs of the current solution.
			w.bumpPenalties()
			w.penaltyBumps++
		}
		stall++
		if stallLimit > 0 && stall >= stallLimit {
			break
		}
	}
	return best, bestCost
}

// bestMove scans the full neighborhood and returns the move with the
// lowest negative augmented-cost delta, breaking ties at random.
// Candidates violating any dimension are rejected silently and never
// applied.
func (w *glsWorker) bestMove() (move, int64) {
	var best move
	bestDelta := int64(0)
	ties := 0
	consider := func(mv move, delta int64) {
		if delta >= bestDelta && !(delta == bestDelta && bestDelta < 0) {
			return
		}
		if delta < bestDelta {
			best, bestDelta, ties = mv, delta, 1
			return
		}
		// delta == bestDelta < 0: reservoir-sample among ties
		ties++
		if w.rng.Intn(ties) == 0 {
			best = mv
		}
	}

	man := w.m.man
	for a := range w.routes {
		ra := w.routes[a]
		baseA := w.routeAug(ra, a)
		for p, idx := range ra {
			// relocate idx to any position of any route
			removed := removeAt(ra, p)
			removedAug := w.routeAug(removed, a)
			for b := range w.routes {
				rb := w.routes[b]
				if b == a {
					rb = removed
				}
				baseB := w.routeAug(rb, b)
				for q := 0; q <= len(rb); q++ {
					if b == a && (q == p) {
						continue
					}
					cand := insertAt(rb, q, idx)
					if !w.m.routeFeasible(cand, b) {
						w.rejected++
						continue
					}
					var delta int64
					if b == a {
						delta = w.routeAug(cand, b) - baseA
					} else {
						delta = removedAug - baseA + w.routeAug(cand, b) - baseB
					}
					consider(move{kind: moveRelocate, idx: idx, fromV: a, fromPos: p, toV: b, toPos: q}, delta)
				}
			}
			// drop an optional visit
			if w.m.optional(idx) {
				if w.m.routeFeasible(removed, a) {
					delta := removedAug - baseA + w.m.disjunctions[w.m.disjunctionOf[idx]].Penalty
					consider(move{kind: moveDrop, idx: idx, fromV: a, fromPos: p}, delta)
				} else {
					w.rejected++
				}
			}
		}
		// 2-opt segment reversal within the route
		for p := 0; p < len(ra)-1; p++ {
			for q := p + 1; q < len(ra); q++ {
				cand := reverseSegment(ra, p, q)
				if !w.m.routeFeasible(cand, a) {
					w.rejected++
					continue
				}
				consider(move{kind: moveTwoOpt, fromV: a, fromPos: p, toPos: q}, w.routeAug(cand, a)-baseA)
			}
		}
		// swap across routes
		for b := a + 1; b < len(w.routes); b++ {
			rb := w.routes[b]
			baseB := w.routeAug(rb, b)
			for p := range ra {
				for q := range rb {
					ca := append([]int(nil), ra...)
					cb := append([]int(nil), rb...)
					ca[p], cb[q] = rb[q], ra[p]
					if !w.m.routeFeasible(ca, a) || !w.m.routeFeasible(cb, b) {
						w.rejected++
						continue
					}
					delta := w.routeAug(ca, a) - baseA + w.routeAug(cb, b) - baseB
					consider(move{kind: moveSwap, fromV: a, fromPos: p, toV: b, toPos: q}, delta)
				}
			}
		}
	}
	// reinsert skipped optional visits
	for idx := 0; idx < man.Size(); idx++ {
		if !w.skipped[idx] {
			continue
		}
		gain := w.m.disjunctions[w.m.disjunctionOf[idx]].Penalty
		for b := range w.routes {
			rb := w.routes[b]
			baseB := w.routeAug(rb, b)
			for q := 0; q <= len(rb); q++ {
				cand := insertAt(rb, q, idx)
				if !w.m.routeFeasible(cand, b) {
					w.rejected++
					continue
				}
				delta := w.routeAug(cand, b) - baseB - gain
				consider(move{kind: moveInsert, idx: idx, toV: b, toPos: q}, delta)
			}
		}
	}
	return best, bestDelta
}

func (w *glsWorker) apply(mv move) {
	switch mv.kind {
	case moveRelocate:
		w.routes[mv.fromV] = removeAt(w.routes[mv.fromV], mv.fromPos)
		w.routes[mv.toV] = insertAt(w.routes[mv.toV], mv.toPos, mv.idx)
	case moveSwap:
		w.routes[mv.fromV][mv.fromPos], w.routes[mv.toV][mv.toPos] =
			w.routes[mv.toV][mv.toPos], w.routes[mv.fromV][mv.fromPos]
	case moveTwoOpt:
		w.routes[mv.fromV] = reverseSegment(w.routes[mv.fromV], mv.fromPos, mv.toPos)
	case moveDrop:
		w.routes[mv.fromV] = removeAt(w.routes[mv.fromV], mv.fromPos)
		w.skipped[mv.idx] = true
	case moveInsert:
		w.routes[mv.toV] = insertAt(w.routes[mv.toV], mv.toPos, mv.idx)
		w.skipped[mv.idx] = false
	}
}

// bumpPenalties increments the penalty weight of every maximum-utility
// arc in the current solution, where utility = cost / (1 + weight).
func (w *glsWorker) bumpPenalties() {
	man := w.m.man
	type arc struct{ i, j int }
	var maxUtil float64 = -1
	var top []arc
	for v, route := range w.routes {
		prev := man.Start(v)
		walk := func(cur int) {
			ni, nj := man.IndexToNode(prev), man.IndexToNode(cur)
			c := w.m.arcCost(prev, cur)
			u := float64(c) / float64(1+w.penalty[ni][nj])
			if u > maxUtil {
				maxUtil = u
				top = top[:0]
			}
			if u == maxUtil {
				top = append(top, arc{ni, nj})
			}
			prev = cur
		}
		for _, idx := range route {
			walk(idx)
		}
		walk(man.End(v))
	}
	for _, a := range top {
		w.penalty[a.i][a.j]++
	}
}

func removeAt(r []int, p int) []int {
	out := make([]int, 0, len(r)-1)
	out = append(out, r[:p]...)
	return append(out, r[p+1:]...)
}

func insertAt(r []int, p, idx int) []int {
	out := make([]int, 0, len(r)+1)
	out = append(out, r[:p]...)
	out = append(out, idx)
	return append(out, r[p:]...)
}

func reverseSegment(r []int, p, q int) []int {
	out := append([]int(nil), r...)
	for a, b := p, q; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}
