package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aspexet1/VRP/internal/model"
)

// Postgres persists instances, solutions, and the webhook queue.
// Problem and solution documents are stored as JSONB; queue state is
// relational so due deliveries can be fetched with one indexed query.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS instances (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT,
    num_nodes INT NOT NULL,
    vehicles INT NOT NULL,
    doc JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS instances_tenant_idx ON instances (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS solutions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    instance_id TEXT,
    status TEXT NOT NULL,
    doc JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS solutions_tenant_idx ON solutions (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS solver_config (
    tenant_id TEXT PRIMARY KEY,
    cfg JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    url TEXT NOT NULL,
    events TEXT[] NOT NULL,
    secret TEXT
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subscription_id TEXT,
    event_type TEXT NOT NULL,
    url TEXT NOT NULL,
    secret TEXT,
    payload BYTEA NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    attempts INT NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_error TEXT,
    response_code INT,
    latency_ms INT,
    delivered_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at);
`

// Migrate creates the schema. Idempotent; intended for dev and tests.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) CreateInstance(ctx context.Context, tenantID string, inst model.Instance) (string, error) {
	id := uuid.New()
	doc, err := json.Marshal(inst)
	if err != nil {
		return "", err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO instances (id, tenant_id, name, num_nodes, vehicles, doc) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, tenantID, inst.Name, len(inst.DistanceMatrix), inst.NumVehicles, doc)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Postgres) GetInstance(ctx context.Context, tenantID, id string) (model.Instance, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM instances WHERE id=$1 AND tenant_id=$2`, id, tenantID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Instance{}, ErrNotFound
	}
	if err != nil {
		return model.Instance{}, err
	}
	var inst model.Instance
	if err := json.Unmarshal(doc, &inst); err != nil {
		return model.Instance{}, err
	}
	return inst, nil
}

func (p *Postgres) ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, name, num_nodes, vehicles, created_at FROM instances
         WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
         ORDER BY id LIMIT $3`, tenantID, cursor, limitOr(limit))
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.InstanceOut{}
	next := ""
	for rows.Next() {
		var it model.InstanceOut
		var created time.Time
		var name sql.NullString
		if err := rows.Scan(&it.ID, &name, &it.NumNodes, &it.Vehicles, &created); err != nil {
			return nil, "", err
		}
		it.TenantID = tenantID
		it.Name = name.String
		it.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, it)
		next = it.ID
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, rows.Err()
}

func (p *Postgres) SaveSolution(ctx context.Context, sol model.Solution) (string, error) {
	if sol.ID == "" {
		sol.ID = uuid.New().String()
	}
	if sol.CreatedAt == "" {
		sol.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	doc, err := json.Marshal(sol)
	if err != nil {
		return "", err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO solutions (id, tenant_id, instance_id, status, doc) VALUES ($1,$2,$3,$4,$5)`,
		sol.ID, sol.TenantID, sol.InstanceID, sol.Status, doc)
	if err != nil {
		return "", err
	}
	return sol.ID, nil
}

func (p *Postgres) GetSolution(ctx context.Context, tenantID, id string) (model.Solution, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM solutions WHERE id=$1 AND tenant_id=$2`, id, tenantID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Solution{}, ErrNotFound
	}
	if err != nil {
		return model.Solution{}, err
	}
	var sol model.Solution
	if err := json.Unmarshal(doc, &sol); err != nil {
		return model.Solution{}, err
	}
	return sol, nil
}

func (p *Postgres) ListSolutions(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.Solution, string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, doc FROM solutions
         WHERE tenant_id=$1 AND ($2 = '' OR instance_id = $2) AND ($3 = '' OR id > $3)
         ORDER BY id LIMIT $4`, tenantID, instanceID, cursor, limitOr(limit))
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Solution{}
	next := ""
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, "", err
		}
		var sol model.Solution
		if err := json.Unmarshal(doc, &sol); err != nil {
			return nil, "", err
		}
		out = append(out, sol)
		next = id
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT cfg FROM solver_config WHERE tenant_id=$1`, tenantID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO solver_config (tenant_id, cfg) VALUES ($1,$2)
         ON CONFLICT (tenant_id) DO UPDATE SET cfg = EXCLUDED.cfg`, tenantID, doc)
	return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		id, req.TenantID, req.URL, pqTextArray(req.Events), req.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id.String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, secret FROM subscriptions WHERE tenant_id=$1 AND $2 = ANY(events)`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var secret sql.NullString
		if err := rows.Scan(&s.ID, &s.URL, &secret); err != nil {
			return nil, err
		}
		s.TenantID = tenantID
		s.Secret = secret.String
		s.Events = []string{eventType}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url FROM subscriptions
         WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`,
		tenantID, cursor, limitOr(limit))
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	next := ""
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.URL); err != nil {
			return nil, "", err
		}
		s.TenantID = tenantID
		out = append(out, s)
		next = s.ID
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(subscription_id,''), event_type, url, COALESCE(secret,''), payload, attempts
         FROM webhook_deliveries
         WHERE status='pending' AND next_attempt_at <= now()
         ORDER BY next_attempt_at LIMIT $1`, limitOr(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Attempts); err != nil {
			return nil, err
		}
		d.Status = "pending"
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=$2,
             response_code=$3, latency_ms=$4, delivered_at=now() WHERE id=$1`,
			id, lastError, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, last_error=$2, response_code=$3,
         latency_ms=$4, next_attempt_at=COALESCE($5, next_attempt_at) WHERE id=$1`,
		id, lastError, responseCode, latencyMs, nextAttemptAt)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2,
         response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, event_type, url, status, attempts, COALESCE(last_error,''), COALESCE(response_code,0)
         FROM webhook_deliveries
         WHERE tenant_id=$1 AND ($2 = '' OR status = $2) AND ($3 = '' OR id::text > $3)
         ORDER BY id LIMIT $4`, tenantID, status, cursor, limitOr(limit))
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	next := ""
	for rows.Next() {
		var id, eventType, url, st, lastErr string
		var attempts, code int
		if err := rows.Scan(&id, &eventType, &url, &st, &attempts, &lastErr, &code); err != nil {
			return nil, "", err
		}
		out = append(out, map[string]any{
			"id": id, "eventType": eventType, "url": url, "status": st,
			"attempts": attempts, "lastError": lastErr, "responseCode": code,
		})
		next = id
	}
	if len(out) < limitOr(limit) {
		next = ""
	}
	return out, next, rows.Err()
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='pending', next_attempt_at=now()
         WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// pqTextArray renders a []string as a postgres array literal.
func pqTextArray(items []string) string {
	out := "{"
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += `"` + s + `"`
	}
	return out + "}"
}
