// Command vrpsolve solves a risk-aware CVRP instance from a JSON file
// and prints the routes. With -output it also writes the full solution
// JSON, including the machine it was computed on.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/aspexet1/VRP/internal/model"
	"github.com/aspexet1/VRP/internal/routing"
)

var (
	inputFile  = flag.String("input", "", "instance JSON file (required)")
	outputFile = flag.String("output", "", "write solution JSON here")
	timeLimit  = flag.Int("time", 0, "time budget in seconds (0 = instance default)")
	riskLimit  = flag.Float64("risk", -1, "per-route risk limit override (-1 = instance default)")
	seed       = flag.Int64("seed", 0, "random seed (0 = time-based)")
	workers    = flag.Int("workers", 1, "parallel search workers")
	exact      = flag.Bool("exact", false, "also compute the exact unconstrained single-vehicle tour")
)

func main() {
	flag.Parse()
	if *inputFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("At %s: %s", *inputFile, err.Error())
	}
	var inst model.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		log.Fatalf("At %s: %s", *inputFile, err.Error())
	}
	inst.ApplyDefaults()
	if *timeLimit > 0 {
		inst.TimeLimitSeconds = *timeLimit
	}
	if *riskLimit >= 0 {
		inst.RiskLimit = *riskLimit
	}
	if err := inst.Validate(); err != nil {
		log.Fatalf("invalid instance: %v", err)
	}

	sol, err := routing.SolveInstance(context.Background(), &inst, routing.Params{
		TimeLimit: time.Duration(inst.TimeLimitSeconds) * time.Second,
		Seed:      *seed,
		Workers:   *workers,
	})
	if err != nil {
		log.Fatalf("solve: %v", err)
	}
	if sol.Status == model.StatusInfeasible {
		fmt.Println("No solution: the instance is infeasible.")
		os.Exit(1)
	}

	printSolution(&sol)

	if *exact {
		tour, cost := routing.ExactTour(inst.DistanceMatrix, inst.Depot)
		fmt.Printf("Exact tour (single vehicle, no limits): %v\n", tour)
		fmt.Printf("Exact tour distance: %dm\n", cost)
	}

	if *outputFile != "" {
		hostStat, _ := host.Info()
		cpuStat, _ := cpu.Info()
		vmStat, _ := mem.VirtualMemory()
		sys := model.SysInfo{}
		if hostStat != nil {
			sys.Platform = hostStat.Platform
		}
		if len(cpuStat) > 0 {
			sys.CPU = cpuStat[0].ModelName
		}
		if vmStat != nil {
			sys.RAM = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
		}
		sol.System = &sys
		out, _ := json.MarshalIndent(sol, "", "  ")
		if err := os.WriteFile(*outputFile, out, 0o644); err != nil {
			log.Fatalf("At %s: %s", *outputFile, err.Error())
		}
	}
}

func printSolution(sol *model.Solution) {
	for _, r := range sol.Routes {
		fmt.Printf("Route for vehicle %d:\n", r.Vehicle)
		for i, n := range r.Nodes {
			if i < len(r.Nodes)-1 {
				fmt.Printf(" %d ->", n)
			} else {
				fmt.Printf(" %d\n", n)
			}
		}
		fmt.Printf("Distance: %dm\n", r.Distance)
		fmt.Printf("Load: %d\n", r.Load)
		fmt.Printf("Risk: %.2f\n\n", r.Risk)
	}
	if len(sol.SkippedNodes) > 0 {
		fmt.Printf("Skipped nodes: %v (penalty %d)\n", sol.SkippedNodes, sol.PenaltyCost)
	}
	fmt.Printf("Total distance: %dm\n", sol.TotalDistance)
	fmt.Printf("Total risk: %.2f\n", sol.TotalRisk)
}
