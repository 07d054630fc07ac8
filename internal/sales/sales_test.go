package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
	"vendafacil/backend/internal/store/memory"
)

func newTestStore(t *testing.T, products ...domain.Product) *memory.Store {
	t.Helper()
	s := memory.New()
	for _, p := range products {
		if _, err := s.AddProduct(context.Background(), p); err != nil {
			t.Fatalf("seed product %s: %v", p.ID, err)
		}
	}
	return s
}

func testProduct(id string, price string, stock int) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  "Produto " + id,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func validSale(productID string, quantity int, unitPrice string) domain.Sale {
	return domain.Sale{
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  decimal.RequireFromString(unitPrice),
		OperatorID: "operator",
	}
}

// countingNotifier records every outcome delivered during a test.
type countingNotifier struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
}

func (n *countingNotifier) SaleRegistered(_ context.Context, saleID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded = append(n.succeeded, saleID)
}

func (n *countingNotifier) RegistrationFailed(_ context.Context, kind string, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, kind)
}

func (n *countingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.succeeded) + len(n.failed)
}

func TestValidateSale(t *testing.T) {
	base := validSale("prod-1", 2, "10.00")
	if !ValidateSale(base) {
		t.Fatalf("expected base sale to be valid")
	}

	cases := map[string]func(domain.Sale) domain.Sale{
		"empty product id":    func(s domain.Sale) domain.Sale { s.ProductID = ""; return s },
		"zero quantity":       func(s domain.Sale) domain.Sale { s.Quantity = 0; return s },
		"negative quantity":   func(s domain.Sale) domain.Sale { s.Quantity = -3; return s },
		"zero unit price":     func(s domain.Sale) domain.Sale { s.UnitPrice = decimal.Zero; return s },
		"negative unit price": func(s domain.Sale) domain.Sale { s.UnitPrice = decimal.RequireFromString("-1"); return s },
		"missing operator":    func(s domain.Sale) domain.Sale { s.OperatorID = ""; return s },
	}
	for name, mutate := range cases {
		if ValidateSale(mutate(base)) {
			t.Errorf("%s: expected invalid", name)
		}
	}
}

func TestRegisterSaleSuccess(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 10))
	notifier := &countingNotifier{}
	registrar := NewRegistrar(s, notifier, decimal.RequireFromString("23.0"), nil)

	saleID, err := registrar.RegisterSale(context.Background(), validSale("prod-1", 2, "10.00"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if saleID == "" {
		t.Fatalf("expected a sale id")
	}

	recorded, err := s.ListSales(context.Background(), 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected 1 sale, got %d", len(recorded))
	}
	sale := recorded[0]
	if got, want := sale.TotalPrice.String(), "20"; got != want {
		t.Errorf("total price = %s, want %s", got, want)
	}
	if got, want := sale.TaxRatePercent.String(), "23"; got != want {
		t.Errorf("tax rate = %s, want %s", got, want)
	}
	if sale.Timestamp.IsZero() {
		t.Errorf("timestamp not finalized")
	}

	product, err := s.GetProductByID(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Errorf("stock = %d, want 8", product.Stock)
	}

	if notifier.total() != 1 || len(notifier.succeeded) != 1 {
		t.Errorf("expected exactly one success notification, got %+v", notifier)
	}
}

func TestRegisterSaleInvalidLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 10))
	notifier := &countingNotifier{}
	registrar := NewRegistrar(s, notifier, decimal.RequireFromString("23.0"), nil)

	_, err := registrar.RegisterSale(context.Background(), domain.Sale{ProductID: "prod-1"})
	if !errors.Is(err, ErrInvalidSaleData) {
		t.Fatalf("expected ErrInvalidSaleData, got %v", err)
	}

	recorded, _ := s.ListSales(context.Background(), 10)
	if len(recorded) != 0 {
		t.Errorf("invalid sale must not be persisted")
	}
	product, _ := s.GetProductByID(context.Background(), "prod-1")
	if product.Stock != 10 {
		t.Errorf("stock mutated on invalid sale: %d", product.Stock)
	}
	if notifier.total() != 1 || notifier.failed[0] != KindInvalidSaleData {
		t.Errorf("expected one InvalidSaleData notification, got %+v", notifier.failed)
	}
}

func TestRegisterSaleProductNotFound(t *testing.T) {
	s := newTestStore(t)
	registrar := NewRegistrar(s, nil, decimal.RequireFromString("23.0"), nil)

	_, err := registrar.RegisterSale(context.Background(), validSale("prod-missing", 1, "5.00"))
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestRegisterSaleInsufficientStock(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 3))
	notifier := &countingNotifier{}
	registrar := NewRegistrar(s, notifier, decimal.RequireFromString("23.0"), nil)

	_, err := registrar.RegisterSale(context.Background(), validSale("prod-1", 4, "10.00"))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	recorded, _ := s.ListSales(context.Background(), 10)
	if len(recorded) != 0 {
		t.Errorf("rejected sale must not be persisted")
	}
	product, _ := s.GetProductByID(context.Background(), "prod-1")
	if product.Stock != 3 {
		t.Errorf("stock mutated on rejected sale: %d", product.Stock)
	}
	if notifier.total() != 1 || notifier.failed[0] != KindInsufficientStock {
		t.Errorf("expected one InsufficientStock notification, got %+v", notifier.failed)
	}
}

func TestRegisterSaleExactStockBoundary(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 4))
	registrar := NewRegistrar(s, nil, decimal.RequireFromString("23.0"), nil)

	if _, err := registrar.RegisterSale(context.Background(), validSale("prod-1", 4, "10.00")); err != nil {
		t.Fatalf("quantity == stock must register: %v", err)
	}
	product, _ := s.GetProductByID(context.Background(), "prod-1")
	if product.Stock != 0 {
		t.Errorf("stock = %d, want 0", product.Stock)
	}
}

// failingDecrementStore persists sales normally but fails every decrement,
// forcing the partial-registration path.
type failingDecrementStore struct {
	*memory.Store
}

func (f *failingDecrementStore) DecrementStock(_ context.Context, _ string, _ int) error {
	return errors.New("decrement rejected")
}

func TestRegisterSalePartialRegistration(t *testing.T) {
	s := &failingDecrementStore{Store: newTestStore(t, testProduct("prod-1", "10.00", 10))}
	notifier := &countingNotifier{}
	registrar := NewRegistrar(s, notifier, decimal.RequireFromString("23.0"), nil)

	saleID, err := registrar.RegisterSale(context.Background(), validSale("prod-1", 2, "10.00"))

	var partial *PartialRegistrationError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialRegistrationError, got %v", err)
	}
	if saleID == "" || partial.SaleID != saleID {
		t.Errorf("partial error must carry the persisted sale id, got %q / %q", saleID, partial.SaleID)
	}

	// The sale stays persisted even though the decrement failed.
	recorded, _ := s.ListSales(context.Background(), 10)
	if len(recorded) != 1 {
		t.Fatalf("expected the sale to remain persisted, got %d", len(recorded))
	}
	if notifier.total() != 1 || notifier.failed[0] != KindPartialRegistration {
		t.Errorf("expected one PartialRegistration notification, got %+v", notifier.failed)
	}
}

// failingAddSaleStore fails the sale write itself.
type failingAddSaleStore struct {
	*memory.Store
}

func (f *failingAddSaleStore) AddSale(_ context.Context, _ domain.Sale) (string, error) {
	return "", errors.New("disk full")
}

func TestRegisterSalePersistenceFailure(t *testing.T) {
	s := &failingAddSaleStore{Store: newTestStore(t, testProduct("prod-1", "10.00", 10))}
	notifier := &countingNotifier{}
	registrar := NewRegistrar(s, notifier, decimal.RequireFromString("23.0"), nil)

	_, err := registrar.RegisterSale(context.Background(), validSale("prod-1", 2, "10.00"))

	var persistence *PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	// No decrement may happen when the sale write failed.
	product, _ := s.GetProductByID(context.Background(), "prod-1")
	if product.Stock != 10 {
		t.Errorf("stock mutated after failed persistence: %d", product.Stock)
	}
	if notifier.total() != 1 || notifier.failed[0] != KindPersistenceFailure {
		t.Errorf("expected one PersistenceFailure notification, got %+v", notifier.failed)
	}
}

func TestRegisterSaleKeepsCallerTimestamp(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 10))
	registrar := NewRegistrar(s, nil, decimal.RequireFromString("23.0"), nil)

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	sale := validSale("prod-1", 1, "10.00")
	sale.Timestamp = at

	if _, err := registrar.RegisterSale(context.Background(), sale); err != nil {
		t.Fatalf("register: %v", err)
	}
	recorded, _ := s.ListSales(context.Background(), 10)
	if !recorded[0].Timestamp.Equal(at) {
		t.Errorf("caller timestamp replaced: %v", recorded[0].Timestamp)
	}
}

func TestCheckAvailability(t *testing.T) {
	s := newTestStore(t, testProduct("prod-1", "10.00", 5))
	checker := NewStockChecker(s)

	if _, err := checker.CheckAvailability(context.Background(), "prod-1", 5); err != nil {
		t.Errorf("quantity == stock must pass: %v", err)
	}
	if _, err := checker.CheckAvailability(context.Background(), "prod-1", 6); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := checker.CheckAvailability(context.Background(), "prod-2", 1); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCalculateChange(t *testing.T) {
	cases := []struct {
		name     string
		total    string
		received string
		want     string
	}{
		{"exact payment", "10.00", "10.00", "0"},
		{"overpayment", "37.90", "50.00", "12.1"},
		{"underpayment floors at zero", "10.00", "7.50", "0"},
		{"zero total", "0", "5.00", "5"},
		{"cent precision", "0.10", "0.30", "0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateChange(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.received))
			if got.String() != tc.want {
				t.Errorf("CalculateChange(%s, %s) = %s, want %s", tc.total, tc.received, got, tc.want)
			}
		})
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidSaleData, KindInvalidSaleData},
		{ErrProductNotFound, KindProductNotFound},
		{ErrInsufficientStock, KindInsufficientStock},
		{&PersistenceError{Cause: errors.New("boom")}, KindPersistenceFailure},
		{&PartialRegistrationError{SaleID: "sale-1", Cause: store.ErrInsufficientStock}, KindPartialRegistration},
		{errors.New("unclassified"), KindPersistenceFailure},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
