// Package memory implements the inventory store with mutex-guarded maps.
// It backs the unit tests and dev mode; snapshot feeds are pushed to
// subscribers on every mutation.
package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
	"vendafacil/backend/internal/xid"
)

type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	sales      []domain.Sale
	alerts     []domain.StockAlert
	operators  map[string]domain.OperatorAccount
	productSub *feed[[]domain.Product]
	saleSub    *feed[[]domain.Sale]
	alertSub   *feed[[]domain.StockAlert]
}

func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		sales:      make([]domain.Sale, 0, 64),
		alerts:     make([]domain.StockAlert, 0, 64),
		operators:  make(map[string]domain.OperatorAccount),
		productSub: newFeed[[]domain.Product](),
		saleSub:    newFeed[[]domain.Sale](),
		alertSub:   newFeed[[]domain.StockAlert](),
	}
}

// NewSeeded returns a store preloaded with demo products and operator
// accounts for dev mode. Seed credentials come from SEED_ADMIN_PASSWORD and
// SEED_OPERATOR_PASSWORD; hardcoded dev defaults are used with a warning when
// unset. Production deployments use PostgreSQL (DATABASE_URL).
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []domain.Product{
		{ID: "prod-pao-frances", Name: "Pão Francês", Price: dec("0.85"), Stock: 120, ExpirationDate: now.Add(48 * time.Hour), Category: "padaria"},
		{ID: "prod-leite-1l", Name: "Leite Integral 1L", Price: dec("5.49"), Stock: 60, ExpirationDate: now.Add(10 * 24 * time.Hour), Category: "laticinios"},
		{ID: "prod-queijo-minas", Name: "Queijo Minas 500g", Price: dec("24.90"), Stock: 18, ExpirationDate: now.Add(5 * 24 * time.Hour), Category: "laticinios"},
		{ID: "prod-cafe-500g", Name: "Café Torrado 500g", Price: dec("18.70"), Stock: 45, ExpirationDate: now.Add(180 * 24 * time.Hour), Category: "mercearia"},
		{ID: "prod-arroz-5kg", Name: "Arroz 5kg", Price: dec("27.50"), Stock: 30, ExpirationDate: now.Add(365 * 24 * time.Hour), Category: "mercearia"},
		{ID: "prod-feijao-1kg", Name: "Feijão Carioca 1kg", Price: dec("8.99"), Stock: 40, ExpirationDate: now.Add(365 * 24 * time.Hour), Category: "mercearia"},
		{ID: "prod-refrigerante-2l", Name: "Refrigerante 2L", Price: dec("9.50"), Stock: 55, ExpirationDate: now.Add(120 * 24 * time.Hour), Category: "bebidas"},
		{ID: "prod-sabao-po", Name: "Sabão em Pó 1kg", Price: dec("14.20"), Stock: 25, ExpirationDate: now.Add(2 * 365 * 24 * time.Hour), Category: "limpeza"},
	}
	for _, p := range seed {
		s.products[p.ID] = p
	}
	s.operators = seedOperators()
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seedOperators() map[string]domain.OperatorAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	accounts := map[string]domain.OperatorAccount{}
	for _, a := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"operator", operatorPwd, "operator"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", a.username, err)
		}
		accounts[a.username] = domain.OperatorAccount{
			Username:  a.username,
			Password:  string(hash),
			Role:      a.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productSnapshotLocked(), nil
}

func (s *Store) AddProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		s.mu.Unlock()
		return nil, store.ErrInvalidInput
	}
	s.products[product.ID] = product
	snapshot := s.productSnapshotLocked()
	s.mu.Unlock()

	s.productSub.publish(snapshot)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	if _, exists := s.products[product.ID]; !exists {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	snapshot := s.productSnapshotLocked()
	s.mu.Unlock()

	s.productSub.publish(snapshot)
	updated := product
	return &updated, nil
}

func (s *Store) DecrementStock(_ context.Context, productID string, quantity int) error {
	if productID == "" || quantity < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	product, exists := s.products[productID]
	if !exists {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if product.Stock < quantity {
		s.mu.Unlock()
		return store.ErrInsufficientStock
	}
	product.Stock -= quantity
	s.products[productID] = product
	snapshot := s.productSnapshotLocked()
	s.mu.Unlock()

	s.productSub.publish(snapshot)
	return nil
}

func (s *Store) AddSale(_ context.Context, sale domain.Sale) (string, error) {
	if sale.ProductID == "" || sale.Quantity < 1 {
		return "", store.ErrInvalidInput
	}

	s.mu.Lock()
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}
	s.sales = append(s.sales, sale)
	snapshot := s.saleSnapshotLocked(0)
	s.mu.Unlock()

	s.saleSub.publish(snapshot)
	return sale.ID, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saleSnapshotLocked(limit), nil
}

func (s *Store) AddAlert(_ context.Context, alert domain.StockAlert) (string, error) {
	if alert.ProductID == "" || alert.Kind == "" {
		return "", store.ErrInvalidInput
	}

	s.mu.Lock()
	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	s.alerts = append(s.alerts, alert)
	snapshot := s.alertSnapshotLocked(0)
	s.mu.Unlock()

	s.alertSub.publish(snapshot)
	return alert.ID, nil
}

func (s *Store) ListAlerts(_ context.Context, limit int) ([]domain.StockAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alertSnapshotLocked(limit), nil
}

func (s *Store) MarkAlertRead(_ context.Context, alertID string) error {
	s.mu.Lock()
	found := false
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].Read = true
			found = true
			break
		}
	}
	var snapshot []domain.StockAlert
	if found {
		snapshot = s.alertSnapshotLocked(0)
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.alertSub.publish(snapshot)
	return nil
}

func (s *Store) DeleteAlert(_ context.Context, alertID string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.alerts = append(s.alerts[:idx], s.alerts[idx+1:]...)
	snapshot := s.alertSnapshotLocked(0)
	s.mu.Unlock()

	s.alertSub.publish(snapshot)
	return nil
}

func (s *Store) StreamProducts(ctx context.Context) (<-chan []domain.Product, func()) {
	s.mu.RLock()
	snapshot := s.productSnapshotLocked()
	s.mu.RUnlock()
	return s.productSub.subscribe(ctx, snapshot)
}

func (s *Store) StreamSales(ctx context.Context) (<-chan []domain.Sale, func()) {
	s.mu.RLock()
	snapshot := s.saleSnapshotLocked(0)
	s.mu.RUnlock()
	return s.saleSub.subscribe(ctx, snapshot)
}

func (s *Store) StreamAlerts(ctx context.Context) (<-chan []domain.StockAlert, func()) {
	s.mu.RLock()
	snapshot := s.alertSnapshotLocked(0)
	s.mu.RUnlock()
	return s.alertSub.subscribe(ctx, snapshot)
}

func (s *Store) GetOperator(_ context.Context, username string) (*domain.OperatorAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.operators[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := account
	return &copied, nil
}

func (s *Store) CreateOperator(_ context.Context, account domain.OperatorAccount) error {
	if account.Username == "" || account.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.operators[account.Username]; exists {
		return store.ErrInvalidInput
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.operators[account.Username] = account
	return nil
}

func (s *Store) productSnapshotLocked() []domain.Product {
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products
}

func (s *Store) saleSnapshotLocked(limit int) []domain.Sale {
	sales := make([]domain.Sale, len(s.sales))
	copy(sales, s.sales)
	slices.SortFunc(sales, byRecency)
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales
}

func (s *Store) alertSnapshotLocked(limit int) []domain.StockAlert {
	alerts := make([]domain.StockAlert, len(s.alerts))
	copy(alerts, s.alerts)
	slices.SortFunc(alerts, func(a, b domain.StockAlert) int {
		if a.Timestamp.Equal(b.Timestamp) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Timestamp.After(b.Timestamp) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}

func byRecency(a, b domain.Sale) int {
	if a.Timestamp.Equal(b.Timestamp) {
		return strings.Compare(b.ID, a.ID)
	}
	if a.Timestamp.After(b.Timestamp) {
		return -1
	}
	return 1
}
