package routing

import "fmt"

// Disjunction marks a set of plain indices as jointly optional: at most
// one member need be visited, and the penalty is charged when none is.
// Indices outside any disjunction are mandatory visits.
type Disjunction struct {
	Indices []int
	Penalty int64
}

// AddDisjunction declares an optional visit set with a skip penalty.
// Sentinel indices are rejected: the depot must be visited by every
// vehicle as start and end.
func (m *Model) AddDisjunction(indices []int, penalty int64) error {
	if len(indices) == 0 {
		return fmt.Errorf("routing: disjunction needs at least one index")
	}
	if penalty < 0 {
		return fmt.Errorf("routing: disjunction penalty must be >= 0")
	}
	for _, i := range indices {
		if i < 0 || i >= m.man.NumIndices() {
			return fmt.Errorf("routing: disjunction index %d out of range", i)
		}
		if m.man.IsSentinel(i) {
			return fmt.Errorf("routing: index %d is a vehicle endpoint and cannot be optional", i)
		}
		if m.disjunctionOf[i] >= 0 {
			return fmt.Errorf("routing: index %d already belongs to a disjunction", i)
		}
	}
	id := len(m.disjunctions)
	m.disjunctions = append(m.disjunctions, Disjunction{Indices: append([]int(nil), indices...), Penalty: penalty})
	for _, i := range indices {
		m.disjunctionOf[i] = id
	}
	return nil
}

// optional reports whether plain index i may be left unvisited.
func (m *Model) optional(i int) bool { return m.disjunctionOf[i] >= 0 }

// unperformedPenalty sums the penalties of disjunctions with no member
// among the visited indices.
func (m *Model) unperformedPenalty(visited []bool) int64 {
	var total int64
	for _, dj := range m.disjunctions {
		hit := false
		for _, i := range dj.Indices {
			if visited[i] {
				hit = true
				break
			}
		}
		if !hit {
			total += dj.Penalty
		}
	}
	return total
}
