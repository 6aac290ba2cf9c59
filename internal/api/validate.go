package api

import (
	"fmt"

	"github.com/aspexet1/VRP/internal/model"
)

func validateSolveRequest(req *model.SolveRequest) error {
	if req.Instance == nil && req.InstanceID == "" {
		return fmt.Errorf("either instance or instanceId is required")
	}
	if req.Instance != nil && req.InstanceID != "" {
		return fmt.Errorf("instance and instanceId are mutually exclusive")
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.Workers < 0 || req.Workers > 16 {
		return fmt.Errorf("workers must be in [0,16]")
	}
	if req.RiskLimit != nil && *req.RiskLimit < 0 {
		return fmt.Errorf("riskLimit must be >= 0")
	}
	return nil
}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	return nil
}
