package importer

import (
	"strings"
	"testing"
)

func TestParseInstanceBuildsEuclideanMatrix(t *testing.T) {
	in := "0,0,0,0\n3,4,2,0.1\n0,8,1,0\n"
	inst, err := ParseInstance(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseInstance: %v", err)
	}
	if len(inst.DistanceMatrix) != 3 {
		t.Fatalf("nodes: got %d, want 3", len(inst.DistanceMatrix))
	}
	// (0,0)->(3,4) is 5, (3,4)->(0,8) is 5, (0,0)->(0,8) is 8
	want := [][]int64{{0, 5, 8}, {5, 0, 5}, {8, 5, 0}}
	for i := range want {
		for j := range want[i] {
			if inst.DistanceMatrix[i][j] != want[i][j] {
				t.Fatalf("dist[%d][%d]: got %d, want %d", i, j, inst.DistanceMatrix[i][j], want[i][j])
			}
		}
	}
	if inst.Demands[1] != 2 || inst.Demands[0] != 0 {
		t.Fatalf("demands: %v", inst.Demands)
	}
	if inst.NodeInactiveProb[1] != 0.1 {
		t.Fatalf("inactiveProb: %v", inst.NodeInactiveProb)
	}
	for i, row := range inst.BreakdownProb {
		for j, p := range row {
			if p != 0 {
				t.Fatalf("breakdownProb[%d][%d] = %v, want 0", i, j, p)
			}
		}
	}
}

func TestParseInstanceSkipsHeader(t *testing.T) {
	in := "x,y,demand,inactiveProb\n0,0,0,0\n1,1,1,0\n"
	inst, err := ParseInstance(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseInstance: %v", err)
	}
	if len(inst.Demands) != 2 {
		t.Fatalf("nodes: got %d, want 2", len(inst.Demands))
	}
}

func TestParseInstanceRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"short record": "0,0,0\n",
		"bad demand":   "0,0,0,0\n1,1,nope,0\n",
		"bad coord":    "0,0,0,0\nx,1,1,0\n",
	}
	for name, in := range cases {
		if _, err := ParseInstance(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
