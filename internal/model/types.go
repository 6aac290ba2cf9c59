package model

// Core domain types shared by the solver, stores, API, and CLI.

// Instance is an immutable risk-aware CVRP problem description.
// Distances and demands are integers; probabilities are fractions in [0,1].
type Instance struct {
	Name              string      `json:"name,omitempty"`
	Comment           string      `json:"comment,omitempty"`
	DistanceMatrix    [][]int64   `json:"distanceMatrix"`
	Demands           []int64     `json:"demands"`
	VehicleCapacities []int64     `json:"vehicleCapacities"`
	BreakdownProb     [][]float64 `json:"breakdownProb"`
	NodeInactiveProb  []float64   `json:"nodeInactiveProb"`
	BreakdownCost     float64     `json:"breakdownCost"`
	InactivePenalty   float64     `json:"inactivePenalty"`
	NumVehicles       int         `json:"numVehicles"`
	Depot             int         `json:"depot"`
	RiskLimit         float64     `json:"riskLimit,omitempty"`
	TimeLimitSeconds  int         `json:"timeLimitSeconds,omitempty"`
}

const (
	DefaultRiskLimit        = 0.3
	DefaultTimeLimitSeconds = 30
)

// Route is one vehicle's planned tour, depot to depot.
type Route struct {
	Vehicle  int     `json:"vehicle"`
	Nodes    []int   `json:"nodes"`
	Distance int64   `json:"distance"`
	Load     int64   `json:"load"`
	Risk     float64 `json:"risk"`
}

// Solution statuses. Infeasibility is a reportable outcome, not an error.
const (
	StatusSolved     = "solved"
	StatusInfeasible = "infeasible"
)

// Solution is the result of one solve as returned to callers and persisted.
type Solution struct {
	ID            string       `json:"id,omitempty"`
	TenantID      string       `json:"tenantId,omitempty"`
	InstanceID    string       `json:"instanceId,omitempty"`
	Status        string       `json:"status"`
	Routes        []Route      `json:"routes,omitempty"`
	SkippedNodes  []int        `json:"skippedNodes,omitempty"`
	TotalDistance int64        `json:"totalDistance"`
	TotalRisk     float64      `json:"totalRisk"`
	PenaltyCost   int64        `json:"penaltyCost"`
	Objective     int64        `json:"objective"`
	Seed          int64        `json:"seed,omitempty"`
	ElapsedMs     int64        `json:"elapsedMs,omitempty"`
	Metrics       SolveMetrics `json:"metrics"`
	System        *SysInfo     `json:"system,omitempty"`
	CreatedAt     string       `json:"createdAt,omitempty"`
}

// SolveMetrics captures search statistics for one solve.
type SolveMetrics struct {
	Iterations    int   `json:"iterations"`
	Moves         int   `json:"moves"`
	Rejected      int   `json:"rejected"`
	PenaltyBumps  int   `json:"penaltyBumps"`
	Workers       int   `json:"workers"`
	Construction  int64 `json:"construction"`
	BestObjective int64 `json:"bestObjective"`
}

// SysInfo records the machine a solution was computed on.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
}

// SolveRequest is the body for POST /v1/solve. Either Instance or
// InstanceID must be set.
type SolveRequest struct {
	TenantID     string    `json:"tenantId,omitempty"`
	Instance     *Instance `json:"instance,omitempty"`
	InstanceID   string    `json:"instanceId,omitempty"`
	RiskLimit    *float64  `json:"riskLimit,omitempty"`
	TimeBudgetMs int       `json:"timeBudgetMs,omitempty"`
	Seed         int64     `json:"seed,omitempty"`
	Workers      int       `json:"workers,omitempty"`
	Async        bool      `json:"async,omitempty"`
}

// InstanceOut is the read model for stored instances.
type InstanceOut struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name,omitempty"`
	NumNodes  int    `json:"numNodes"`
	Vehicles  int    `json:"vehicles"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
