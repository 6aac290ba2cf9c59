package model

import (
	"strings"
	"testing"
)

func validInstance() Instance {
	return Instance{
		DistanceMatrix: [][]int64{
			{0, 5, 5},
			{5, 0, 5},
			{5, 5, 0},
		},
		Demands:           []int64{0, 1, 1},
		VehicleCapacities: []int64{2},
		BreakdownProb: [][]float64{
			{0, 0.1, 0},
			{0.1, 0, 0},
			{0, 0, 0},
		},
		NodeInactiveProb: []float64{0, 0.2, 0},
		BreakdownCost:    10,
		InactivePenalty:  5,
		NumVehicles:      1,
		Depot:            0,
	}
}

func TestValidateAcceptsGoodInstance(t *testing.T) {
	in := validInstance()
	in.ApplyDefaults()
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	in := validInstance()
	in.ApplyDefaults()
	if in.RiskLimit != DefaultRiskLimit {
		t.Fatalf("riskLimit: got %v", in.RiskLimit)
	}
	if in.TimeLimitSeconds != DefaultTimeLimitSeconds {
		t.Fatalf("timeLimitSeconds: got %d", in.TimeLimitSeconds)
	}
	// explicit values survive
	in2 := validInstance()
	in2.RiskLimit = 0.7
	in2.TimeLimitSeconds = 5
	in2.ApplyDefaults()
	if in2.RiskLimit != 0.7 || in2.TimeLimitSeconds != 5 {
		t.Fatalf("defaults overwrote explicit values: %v %d", in2.RiskLimit, in2.TimeLimitSeconds)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Instance)
		want   string
	}{
		{"empty matrix", func(in *Instance) { in.DistanceMatrix = nil }, "distanceMatrix is empty"},
		{"ragged matrix", func(in *Instance) { in.DistanceMatrix[1] = []int64{1} }, "columns"},
		{"negative distance", func(in *Instance) { in.DistanceMatrix[0][1] = -1 }, "negative"},
		{"demand length", func(in *Instance) { in.Demands = []int64{0} }, "demands has"},
		{"negative demand", func(in *Instance) { in.Demands[1] = -2 }, "negative"},
		{"zero vehicles", func(in *Instance) { in.NumVehicles = 0 }, "numVehicles"},
		{"capacity length", func(in *Instance) { in.VehicleCapacities = nil }, "vehicleCapacities"},
		{"negative capacity", func(in *Instance) { in.VehicleCapacities[0] = -1 }, "negative"},
		{"breakdown rows", func(in *Instance) { in.BreakdownProb = in.BreakdownProb[:1] }, "breakdownProb has"},
		{"breakdown range", func(in *Instance) { in.BreakdownProb[0][1] = 1.5 }, "outside [0,1]"},
		{"inactive length", func(in *Instance) { in.NodeInactiveProb = nil }, "nodeInactiveProb has"},
		{"inactive range", func(in *Instance) { in.NodeInactiveProb[1] = -0.1 }, "outside [0,1]"},
		{"negative breakdown cost", func(in *Instance) { in.BreakdownCost = -1 }, "breakdownCost"},
		{"negative inactive penalty", func(in *Instance) { in.InactivePenalty = -1 }, "inactivePenalty"},
		{"depot range", func(in *Instance) { in.Depot = 9 }, "depot"},
		{"depot demand", func(in *Instance) { in.Demands[0] = 1 }, "depot demand"},
		{"depot inactive", func(in *Instance) { in.NodeInactiveProb[0] = 0.5 }, "depot inactivation"},
		{"negative risk limit", func(in *Instance) { in.RiskLimit = -0.1 }, "riskLimit"},
		{"negative time limit", func(in *Instance) { in.TimeLimitSeconds = -1 }, "timeLimitSeconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInstance()
			tc.mutate(&in)
			err := in.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
