package routing

import (
	"math"

	"github.com/yourbasic/bit"
)

// ExactTour finds the minimum-cost tour visiting every node exactly
// once, starting and ending at the depot, by exhaustive depth-first
// search with branch-and-bound pruning over a bitset of visited nodes.
// It ignores capacities, risk, and optional visits; it exists to verify
// solver output on small instances (the CLI -exact flag and tests).
// Exponential: intended for instances of roughly a dozen nodes or less.
func ExactTour(dist [][]int64, depot int) ([]int, int64) {
	n := len(dist)
	if n == 0 {
		return nil, 0
	}
	if n == 1 {
		return []int{depot, depot}, 0
	}
	visited := new(bit.Set).Add(depot)
	path := make([]int, 1, n+1)
	path[0] = depot
	best := int64(math.MaxInt64)
	var bestPath []int

	var dfs func(cur int, cost int64)
	dfs = func(cur int, cost int64) {
		if cost >= best {
			return
		}
		if visited.Size() == n {
			total := cost + dist[cur][depot]
			if total < best {
				best = total
				bestPath = append(append([]int(nil), path...), depot)
			}
			return
		}
		for next := 0; next < n; next++ {
			if visited.Contains(next) {
				continue
			}
			visited.Add(next)
			path = append(path, next)
			dfs(next, cost+dist[cur][next])
			path = path[:len(path)-1]
			visited.Delete(next)
		}
	}
	dfs(depot, 0)
	return bestPath, best
}
