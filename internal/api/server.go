// Package api implements HTTP handlers and helpers for the VRP service.
package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/aspexet1/VRP/internal/auth"
	"github.com/aspexet1/VRP/internal/config"
	"github.com/aspexet1/VRP/internal/store"
	"github.com/aspexet1/VRP/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Cfg    config.Config
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker

	limiter *rate.Limiter
}

// NewServer wires config, store, broker, and webhook publisher. With no
// DATABASE_URL the store is in-memory; with no REDIS_URL events stay
// in-process.
func NewServer() (*Server, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:   s,
		Cfg:     cfg,
		Pub:     webhooks.NewPublisher(s),
		Auth:    auth.NewVerifierFromEnv(),
		Broker:  broker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
	}, nil
}

type Principal struct {
	Tenant string
	Role   string // admin, planner, viewer
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// getPrincipal extracts tenant and role from a bearer token when
// present, falling back to dev headers.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Tenant: pr.Tenant, Role: pr.Role}
		}
	}
	tenant := r.Header.Get("X-Tenant-Id")
	role := r.Header.Get("X-Role")
	if tenant == "" {
		tenant = "t_demo"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
