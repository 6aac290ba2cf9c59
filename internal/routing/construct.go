package routing

// construct builds an initial feasible set of routes with a global
// cheapest-arc policy: repeatedly append the unrouted index whose arc
// from some vehicle's current endpoint is cheapest among all feasible
// (endpoint, index) pairs. Ties break on the lower node id, then the
// lower vehicle. Optional indices that fit nowhere are left unrouted
// for penalty evaluation; a mandatory index that fits nowhere makes the
// whole instance infeasible.
func (m *Model) construct() (routes [][]int, err error) {
	man := m.man
	routes = make([][]int, man.NumVehicles())
	for v := range routes {
		routes[v] = []int{}
	}
	unrouted := make([]bool, man.Size())
	remaining := man.Size()
	for i := range unrouted {
		unrouted[i] = true
	}

	for remaining > 0 {
		bestIdx, bestVeh := -1, -1
		var bestCost int64
		for i := 0; i < man.Size(); i++ {
			if !unrouted[i] {
				continue
			}
			for v := 0; v < man.NumVehicles(); v++ {
				last := man.Start(v)
				if n := len(routes[v]); n > 0 {
					last = routes[v][n-1]
				}
				c := m.arcCost(last, i)
				if bestIdx >= 0 {
					if c > bestCost {
						continue
					}
					if c == bestCost {
						if man.IndexToNode(i) > man.IndexToNode(bestIdx) {
							continue
						}
						if man.IndexToNode(i) == man.IndexToNode(bestIdx) && v >= bestVeh {
							continue
						}
					}
				}
				cand := append(append([]int(nil), routes[v]...), i)
				if !m.routeFeasible(cand, v) {
					continue
				}
				bestIdx, bestVeh, bestCost = i, v, c
			}
		}
		if bestIdx < 0 {
			break
		}
		routes[bestVeh] = append(routes[bestVeh], bestIdx)
		unrouted[bestIdx] = false
		remaining--
	}

	for i, u := range unrouted {
		if u && !m.optional(i) {
			return nil, ErrNoSolution
		}
	}
	return routes, nil
}
