package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store/memory"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func product(id string, stock int, expiresIn time.Duration) domain.Product {
	p := domain.Product{
		ID:    id,
		Name:  "Produto " + id,
		Price: decimal.RequireFromString("10.00"),
		Stock: stock,
	}
	if expiresIn != 0 {
		p.ExpirationDate = testNow.Add(expiresIn)
	}
	return p
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		p    domain.Product
		kind domain.AlertKind
		ok   bool
	}{
		{"healthy", product("p", 20, 60*24*time.Hour), "", false},
		{"low stock", product("p", 5, 60*24*time.Hour), domain.AlertLowStock, true},
		{"above threshold", product("p", 6, 60*24*time.Hour), "", false},
		{"expiring soon", product("p", 20, 3*24*time.Hour), domain.AlertExpiringSoon, true},
		{"window boundary", product("p", 20, 7*24*time.Hour), domain.AlertExpiringSoon, true},
		{"just outside window", product("p", 20, 7*24*time.Hour+time.Minute), "", false},
		{"expired", product("p", 20, -time.Hour), domain.AlertExpired, true},
		{"no expiration date", product("p", 20, 0), "", false},
		{"out of stock", product("p", 0, 60*24*time.Hour), domain.AlertOutOfStock, true},

		// Severity order: a single product yields exactly one kind.
		{"out of stock beats low stock", product("p", 0, 60*24*time.Hour), domain.AlertOutOfStock, true},
		{"out of stock beats expired", product("p", 0, -time.Hour), domain.AlertOutOfStock, true},
		{"expired beats expiring soon", product("p", 20, -time.Hour), domain.AlertExpired, true},
		{"expiring soon beats low stock", product("p", 2, 3*24*time.Hour), domain.AlertExpiringSoon, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := Classify(tc.p, testNow, DefaultExpiryWindowDays, DefaultLowStockThreshold)
			if ok != tc.ok || kind != tc.kind {
				t.Errorf("Classify = (%q, %v), want (%q, %v)", kind, ok, tc.kind, tc.ok)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	p := product("p", 2, 3*24*time.Hour)
	first, _ := Classify(p, testNow, DefaultExpiryWindowDays, DefaultLowStockThreshold)
	for i := 0; i < 10; i++ {
		kind, _ := Classify(p, testNow, DefaultExpiryWindowDays, DefaultLowStockThreshold)
		if kind != first {
			t.Fatalf("classification changed between identical calls: %s vs %s", first, kind)
		}
	}
}

func newTestEngine(t *testing.T, products ...domain.Product) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	for _, p := range products {
		if _, err := s.AddProduct(context.Background(), p); err != nil {
			t.Fatalf("seed product %s: %v", p.ID, err)
		}
	}
	e := NewEngine(s, DefaultExpiryWindowDays, DefaultLowStockThreshold, nil)
	e.now = func() time.Time { return testNow }
	return e, s
}

func TestRecomputeAppendsOnePerMatch(t *testing.T) {
	e, s := newTestEngine(t,
		product("prod-ok", 20, 60*24*time.Hour),
		product("prod-low", 2, 60*24*time.Hour),
		product("prod-out", 0, 60*24*time.Hour),
	)

	written, err := e.Recompute(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	alerts, _ := s.ListAlerts(context.Background(), 10)
	kinds := map[string]domain.AlertKind{}
	for _, a := range alerts {
		kinds[a.ProductID] = a.Kind
	}
	if kinds["prod-low"] != domain.AlertLowStock {
		t.Errorf("prod-low kind = %s", kinds["prod-low"])
	}
	if kinds["prod-out"] != domain.AlertOutOfStock {
		t.Errorf("prod-out kind = %s", kinds["prod-out"])
	}
	if _, present := kinds["prod-ok"]; present {
		t.Errorf("healthy product must not produce an alert")
	}
}

func TestRecomputeDoesNotDeduplicate(t *testing.T) {
	e, s := newTestEngine(t, product("prod-low", 2, 60*24*time.Hour))

	for i := 0; i < 3; i++ {
		if _, err := e.Recompute(context.Background()); err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
	}

	alerts, _ := s.ListAlerts(context.Background(), 10)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 appended alerts, got %d", len(alerts))
	}
}

func TestRecomputeAlertFields(t *testing.T) {
	e, s := newTestEngine(t, product("prod-out", 0, 60*24*time.Hour))

	if _, err := e.Recompute(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	alerts, _ := s.ListAlerts(context.Background(), 10)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.ID == "" {
		t.Errorf("alert id not assigned")
	}
	if a.Read {
		t.Errorf("new alerts must start unread")
	}
	if a.ProductName != "Produto prod-out" {
		t.Errorf("product name = %q", a.ProductName)
	}
	if a.Message == "" {
		t.Errorf("message must be set")
	}
	if !a.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", a.Timestamp, testNow)
	}
}

func TestRunRecomputesOnProductChange(t *testing.T) {
	e, s := newTestEngine(t, product("prod-1", 20, 60*24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx, time.Hour)

	// Dropping stock to zero mutates the product feed, which should trigger
	// a recompute without waiting for the ticker.
	p, _ := s.GetProductByID(ctx, "prod-1")
	p.Stock = 0
	if _, err := s.UpdateProduct(ctx, *p); err != nil {
		t.Fatalf("update: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		alerts, _ := s.ListAlerts(ctx, 10)
		if len(alerts) > 0 {
			if alerts[0].Kind != domain.AlertOutOfStock {
				t.Fatalf("kind = %s, want OUT_OF_STOCK", alerts[0].Kind)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no alert appeared after product change")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
