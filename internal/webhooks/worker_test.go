package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aspexet1/VRP/internal/model"
	"github.com/aspexet1/VRP/internal/store"
)

func modelSubscription(tenant, event string) model.SubscriptionRequest {
	return model.SubscriptionRequest{
		TenantID: tenant,
		URL:      "https://example.com/hook",
		Events:   []string{event},
		Secret:   "s",
	}
}

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}
type markRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type failRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventSolveCompleted, srv.URL, "secret", []byte(`{"id":"evt1"}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotType != EventSolveCompleted {
		t.Fatalf("event type header: got %q", gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature does not verify: %q", gotSig)
	}
	if len(rs.marks) == 0 || !rs.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rs.marks)
	}
	if rs.marks[0].Code != 200 {
		t.Fatalf("response code: got %d", rs.marks[0].Code)
	}
}

func TestWorkerProcessOnce_RetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 2}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventSolveFailed, srv.URL, "", []byte(`{}`))

	// first attempt schedules a retry
	w.processOnce()
	if len(rs.marks) != 1 || rs.marks[0].Success {
		t.Fatalf("expected retry mark, got marks=%+v fails=%+v", rs.marks, rs.fails)
	}

	// make it due again; the second attempt hits MaxAttempts
	_ = rs.Memory.RetryWebhookDelivery(context.Background(), "t1", rs.marks[0].ID)
	w.processOnce()
	if len(rs.fails) != 1 {
		t.Fatalf("expected terminal failure, got fails=%+v", rs.fails)
	}
}

func TestNextBackoffCapped(t *testing.T) {
	if nextBackoff(0) != time.Second {
		t.Fatalf("attempt 0: got %v", nextBackoff(0))
	}
	if nextBackoff(3) != 8*time.Second {
		t.Fatalf("attempt 3: got %v", nextBackoff(3))
	}
	if nextBackoff(30) != time.Hour {
		t.Fatalf("large attempt count should cap at 1h, got %v", nextBackoff(30))
	}
}

func TestPublisherEmitMatchesSubscriptions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.CreateSubscription(ctx, modelSubscription("t1", EventSolveCompleted))
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	p := NewPublisher(mem)

	p.Emit(ctx, "t1", EventSolveCompleted, map[string]any{"solveId": "s1"})
	p.Emit(ctx, "t1", EventSolveFailed, map[string]any{"solveId": "s2"})
	p.Emit(ctx, "t2", EventSolveCompleted, map[string]any{"solveId": "s3"})

	due, _ := mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(due))
	}
	if due[0].EventType != EventSolveCompleted || due[0].TenantID != "t1" {
		t.Fatalf("delivery: %+v", due[0])
	}
}

func TestSignVerifyHMAC(t *testing.T) {
	sig := SignHMAC("secret", []byte("payload"))
	if !VerifyHMAC("secret", []byte("payload"), sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyHMAC("other", []byte("payload"), sig) {
		t.Fatal("wrong secret accepted")
	}
	if VerifyHMAC("secret", []byte("tampered"), sig) {
		t.Fatal("tampered payload accepted")
	}
}
