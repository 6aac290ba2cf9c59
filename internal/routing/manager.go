package routing

import "fmt"

// Manager translates between logical node ids and route indices.
//
// Every non-depot node owns exactly one plain index in [0, Size).
// Each vehicle owns a start and an end sentinel index, both mapped to
// the depot, so that the depot can appear at the head and tail of every
// route without aliasing: mutating one vehicle's endpoints never
// touches another's. Lookups are array-backed and O(1) both ways.
type Manager struct {
	numNodes    int
	numVehicles int
	depot       int
	indexToNode []int
	nodeToIndex []int
}

// NewManager builds the bijection for numNodes logical nodes, a depot,
// and numVehicles start/end pairs.
func NewManager(numNodes, numVehicles, depot int) (*Manager, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("routing: numNodes must be positive")
	}
	if numVehicles <= 0 {
		return nil, fmt.Errorf("routing: numVehicles must be positive")
	}
	if depot < 0 || depot >= numNodes {
		return nil, fmt.Errorf("routing: depot %d out of range", depot)
	}
	m := &Manager{
		numNodes:    numNodes,
		numVehicles: numVehicles,
		depot:       depot,
		indexToNode: make([]int, numNodes-1+2*numVehicles),
		nodeToIndex: make([]int, numNodes),
	}
	idx := 0
	for node := 0; node < numNodes; node++ {
		if node == depot {
			m.nodeToIndex[node] = -1
			continue
		}
		m.indexToNode[idx] = node
		m.nodeToIndex[node] = idx
		idx++
	}
	for v := 0; v < numVehicles; v++ {
		m.indexToNode[m.Start(v)] = depot
		m.indexToNode[m.End(v)] = depot
	}
	return m, nil
}

// Size is the number of plain (non-sentinel) indices.
func (m *Manager) Size() int { return m.numNodes - 1 }

// NumIndices is the total index count including vehicle sentinels.
func (m *Manager) NumIndices() int { return len(m.indexToNode) }

func (m *Manager) NumVehicles() int { return m.numVehicles }

func (m *Manager) Depot() int { return m.depot }

// Start returns vehicle v's start sentinel index.
func (m *Manager) Start(v int) int { return m.numNodes - 1 + 2*v }

// End returns vehicle v's end sentinel index.
func (m *Manager) End(v int) int { return m.numNodes - 1 + 2*v + 1 }

// IndexToNode maps a route index to its logical node id.
func (m *Manager) IndexToNode(i int) int { return m.indexToNode[i] }

// NodeToIndex maps a non-depot node id to its plain index, -1 for the depot.
func (m *Manager) NodeToIndex(node int) int { return m.nodeToIndex[node] }

// IsSentinel reports whether i is a vehicle start or end index.
func (m *Manager) IsSentinel(i int) bool { return i >= m.numNodes-1 }

// VehicleOfSentinel returns the vehicle owning sentinel index i.
func (m *Manager) VehicleOfSentinel(i int) int { return (i - (m.numNodes - 1)) / 2 }
