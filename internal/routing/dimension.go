package routing

import "fmt"

// TransitFunc returns the cumulative-resource cost of traversing the
// arc between two route indices. It must be a pure function of the
// immutable problem instance and must never return a negative value;
// the zero-start/monotone invariant does not hold otherwise.
type TransitFunc func(fromIndex, toIndex int) int64

// CapacityFunc returns the cumulative bound for a vehicle's route.
type CapacityFunc func(vehicle int) int64

// Dimension tracks one cumulative resource (load, risk) along routes.
// The cumulative value at any visited index never exceeds the bound for
// that vehicle; with non-negative transits and zero slack it is
// monotone non-decreasing from the route start.
type Dimension struct {
	name      string
	transit   TransitFunc
	capacity  CapacityFunc
	slackMax  int64
	zeroStart bool
}

func (d *Dimension) Name() string { return d.name }

// RegisterDimension adds a cumulative dimension to the model. Moves are
// accepted only if every registered dimension accepts them.
func (m *Model) RegisterDimension(name string, transit TransitFunc, capacity CapacityFunc, slackMax int64, zeroStart bool) (*Dimension, error) {
	if name == "" {
		return nil, fmt.Errorf("routing: dimension name must not be empty")
	}
	if _, dup := m.dimByName[name]; dup {
		return nil, fmt.Errorf("routing: dimension %q already registered", name)
	}
	if transit == nil || capacity == nil {
		return nil, fmt.Errorf("routing: dimension %q needs transit and capacity callbacks", name)
	}
	if slackMax < 0 {
		return nil, fmt.Errorf("routing: dimension %q slackMax must be >= 0", name)
	}
	d := &Dimension{name: name, transit: transit, capacity: capacity, slackMax: slackMax, zeroStart: zeroStart}
	m.dimByName[name] = len(m.dims)
	m.dims = append(m.dims, d)
	return d, nil
}

// Dimension returns a registered dimension by name.
func (m *Model) Dimension(name string) (*Dimension, bool) {
	i, ok := m.dimByName[name]
	if !ok {
		return nil, false
	}
	return m.dims[i], true
}

// cumulsAlong computes the running cumulative value over a candidate
// route of plain indices for vehicle v, including the closing arc to
// the end sentinel. It reports false as soon as the vehicle's bound is
// exceeded, so infeasible candidates are rejected before being applied.
func (d *Dimension) cumulsAlong(man *Manager, route []int, v int) (end int64, ok bool) {
	cap := d.capacity(v)
	// zeroStart anchors the cumul at 0; with slackMax 0 there is no
	// other admissible start value, so the anchor is unconditional.
	var cum int64
	prev := man.Start(v)
	for _, idx := range route {
		cum += d.transit(prev, idx)
		if cum > cap {
			return cum, false
		}
		prev = idx
	}
	cum += d.transit(prev, man.End(v))
	if cum > cap {
		return cum, false
	}
	return cum, true
}

// routeFeasible reports whether a candidate route satisfies every
// registered dimension. Dimensions compose conjunctively.
func (m *Model) routeFeasible(route []int, v int) bool {
	for _, d := range m.dims {
		if _, ok := d.cumulsAlong(m.man, route, v); !ok {
			return false
		}
	}
	return true
}
