package routing

// unassigned marks a route index with no successor: an unperformed
// plain index, or a route end.
const unassigned = -1

// Assignment is a finalized solution: for every route index either the
// successor index on its vehicle's route, or unassigned. Every plain
// index is visited by exactly one vehicle or unperformed.
type Assignment struct {
	man       *Manager
	next      []int
	vehicleOf []int
}

// newAssignment links per-vehicle plain-index sequences into successor
// form.
func newAssignment(man *Manager, routes [][]int) *Assignment {
	a := &Assignment{
		man:       man,
		next:      make([]int, man.NumIndices()),
		vehicleOf: make([]int, man.NumIndices()),
	}
	for i := range a.next {
		a.next[i] = unassigned
		a.vehicleOf[i] = -1
	}
	for v, route := range routes {
		prev := man.Start(v)
		a.vehicleOf[prev] = v
		for _, idx := range route {
			a.next[prev] = idx
			a.vehicleOf[idx] = v
			prev = idx
		}
		a.next[prev] = man.End(v)
		a.vehicleOf[man.End(v)] = v
	}
	return a
}

// Next returns the successor of index i, or unassigned (-1).
func (a *Assignment) Next(i int) int { return a.next[i] }

// Performed reports whether plain index i is visited by some vehicle.
func (a *Assignment) Performed(i int) bool { return a.vehicleOf[i] >= 0 }

// VehicleOf returns the vehicle serving index i, -1 if unperformed.
func (a *Assignment) VehicleOf(i int) int { return a.vehicleOf[i] }

// RouteIndices returns vehicle v's plain indices in visit order.
func (a *Assignment) RouteIndices(v int) []int {
	var out []int
	for i := a.next[a.man.Start(v)]; i != a.man.End(v); i = a.next[i] {
		out = append(out, i)
	}
	return out
}

// CumulAt returns the named dimension's accumulated transit value from
// the route start up to and including arrival at index i under this
// assignment. It is a pure read with no side effects. The second result
// is false when i is unperformed or the dimension is unknown.
func (m *Model) CumulAt(a *Assignment, dim string, i int) (int64, bool) {
	d, ok := m.Dimension(dim)
	if !ok {
		return 0, false
	}
	v := a.vehicleOf[i]
	if v < 0 {
		return 0, false
	}
	var cum int64
	prev := m.man.Start(v)
	for cur := a.next[prev]; ; cur = a.next[cur] {
		cum += d.transit(prev, cur)
		if cur == i {
			return cum, true
		}
		if cur == m.man.End(v) {
			break
		}
		prev = cur
	}
	if i == m.man.Start(v) {
		return 0, true
	}
	return 0, false
}
