// Package importer parses routing instances from external feeds.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aspexet1/VRP/internal/model"
)

// ParseInstance reads node records from CSV and builds an instance.
// Each record is one node: x, y, demand, inactiveProb. The first
// record is the depot; distances are Euclidean, rounded to the
// nearest meter. An optional header row is skipped. Vehicle counts
// and capacities are not part of the feed and must be set by the
// caller.
func ParseInstance(r io.Reader) (*model.Instance, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	type node struct {
		x, y         float64
		demand       int64
		inactiveProb float64
	}
	var nodes []node
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		if line == 1 && !numeric(rec[0]) {
			continue
		}
		var n node
		if n.x, err = strconv.ParseFloat(rec[0], 64); err != nil {
			return nil, fmt.Errorf("record %d: x: %w", line, err)
		}
		if n.y, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("record %d: y: %w", line, err)
		}
		if n.demand, err = strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64); err != nil {
			return nil, fmt.Errorf("record %d: demand: %w", line, err)
		}
		if n.inactiveProb, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, fmt.Errorf("record %d: inactiveProb: %w", line, err)
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no node records")
	}

	n := len(nodes)
	inst := &model.Instance{
		DistanceMatrix:   make([][]int64, n),
		Demands:          make([]int64, n),
		BreakdownProb:    make([][]float64, n),
		NodeInactiveProb: make([]float64, n),
	}
	for i := range nodes {
		inst.DistanceMatrix[i] = make([]int64, n)
		inst.BreakdownProb[i] = make([]float64, n)
		for j := range nodes {
			dx := nodes[i].x - nodes[j].x
			dy := nodes[i].y - nodes[j].y
			inst.DistanceMatrix[i][j] = int64(math.Round(math.Hypot(dx, dy)))
		}
		inst.Demands[i] = nodes[i].demand
		inst.NodeInactiveProb[i] = nodes[i].inactiveProb
	}
	return inst, nil
}

func numeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
