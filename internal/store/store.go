package store

import (
	"context"
	"errors"
	"time"

	"github.com/aspexet1/VRP/internal/model"
)

// Store is the persistence interface used by the API server: problem
// instances, solutions, solver metrics and config, plus the webhook
// subscription and delivery queue.
type Store interface {
	// Instances
	CreateInstance(ctx context.Context, tenantID string, inst model.Instance) (string, error)
	GetInstance(ctx context.Context, tenantID, id string) (model.Instance, error)
	ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error)

	// Solutions
	SaveSolution(ctx context.Context, sol model.Solution) (string, error)
	GetSolution(ctx context.Context, tenantID, id string) (model.Solution, error)
	ListSolutions(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.Solution, string, error)

	// Solver config per tenant
	GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
	RetryWebhookDelivery(ctx context.Context, tenantID, id string) error
}

// WebhookDelivery is one queued outbound notification.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Attempts       int
	Status         string
}

var ErrNotFound = errors.New("not found")
