package model

import "fmt"

// ApplyDefaults fills optional solver knobs with their documented defaults.
func (in *Instance) ApplyDefaults() {
	if in.RiskLimit == 0 {
		in.RiskLimit = DefaultRiskLimit
	}
	if in.TimeLimitSeconds == 0 {
		in.TimeLimitSeconds = DefaultTimeLimitSeconds
	}
}

// Validate rejects malformed instances before any search begins.
func (in *Instance) Validate() error {
	n := len(in.DistanceMatrix)
	if n == 0 {
		return fmt.Errorf("distanceMatrix is empty")
	}
	for i, row := range in.DistanceMatrix {
		if len(row) != n {
			return fmt.Errorf("distanceMatrix row %d has %d columns, want %d", i, len(row), n)
		}
		for j, d := range row {
			if d < 0 {
				return fmt.Errorf("distanceMatrix[%d][%d] is negative", i, j)
			}
		}
	}
	if len(in.Demands) != n {
		return fmt.Errorf("demands has %d entries, want %d", len(in.Demands), n)
	}
	for i, d := range in.Demands {
		if d < 0 {
			return fmt.Errorf("demands[%d] is negative", i)
		}
	}
	if in.NumVehicles <= 0 {
		return fmt.Errorf("numVehicles must be positive")
	}
	if len(in.VehicleCapacities) != in.NumVehicles {
		return fmt.Errorf("vehicleCapacities has %d entries, want %d", len(in.VehicleCapacities), in.NumVehicles)
	}
	for v, c := range in.VehicleCapacities {
		if c < 0 {
			return fmt.Errorf("vehicleCapacities[%d] is negative", v)
		}
	}
	if len(in.BreakdownProb) != n {
		return fmt.Errorf("breakdownProb has %d rows, want %d", len(in.BreakdownProb), n)
	}
	for i, row := range in.BreakdownProb {
		if len(row) != n {
			return fmt.Errorf("breakdownProb row %d has %d columns, want %d", i, len(row), n)
		}
		for j, p := range row {
			if p < 0 || p > 1 {
				return fmt.Errorf("breakdownProb[%d][%d] = %v outside [0,1]", i, j, p)
			}
		}
	}
	if len(in.NodeInactiveProb) != n {
		return fmt.Errorf("nodeInactiveProb has %d entries, want %d", len(in.NodeInactiveProb), n)
	}
	for i, p := range in.NodeInactiveProb {
		if p < 0 || p > 1 {
			return fmt.Errorf("nodeInactiveProb[%d] = %v outside [0,1]", i, p)
		}
	}
	if in.BreakdownCost < 0 {
		return fmt.Errorf("breakdownCost must be >= 0")
	}
	if in.InactivePenalty < 0 {
		return fmt.Errorf("inactivePenalty must be >= 0")
	}
	if in.Depot < 0 || in.Depot >= n {
		return fmt.Errorf("depot %d out of range [0,%d)", in.Depot, n)
	}
	if in.Demands[in.Depot] != 0 {
		return fmt.Errorf("depot demand must be zero")
	}
	if in.NodeInactiveProb[in.Depot] != 0 {
		return fmt.Errorf("depot inactivation probability must be zero")
	}
	if in.RiskLimit < 0 {
		return fmt.Errorf("riskLimit must be >= 0")
	}
	if in.TimeLimitSeconds < 0 {
		return fmt.Errorf("timeLimitSeconds must be >= 0")
	}
	return nil
}
