// Package postgres implements the inventory store on PostgreSQL. Stock
// decrements rely on the database's native atomic update with a stock guard,
// so the counter itself never goes negative even under concurrent
// registrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store"
	"vendafacil/backend/internal/xid"
)

type Store struct {
	db           *sql.DB
	pollInterval time.Duration
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, pollInterval: 2 * time.Second}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the tables this store needs when they do not exist.
// Statements run one at a time; the pgx driver does not accept batched DDL
// over the extended protocol.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			price            NUMERIC(12,2) NOT NULL,
			stock            INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			expiration_date  TIMESTAMPTZ,
			category         TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id               TEXT PRIMARY KEY,
			product_id       TEXT NOT NULL,
			quantity         INTEGER NOT NULL CHECK (quantity > 0),
			unit_price       NUMERIC(12,2) NOT NULL,
			total_price      NUMERIC(14,2) NOT NULL,
			tax_rate_percent NUMERIC(6,3) NOT NULL,
			discount         NUMERIC(12,2) NOT NULL DEFAULT 0,
			operator_id      TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS stock_alerts (
			id           TEXT PRIMARY KEY,
			product_id   TEXT NOT NULL,
			product_name TEXT NOT NULL,
			kind         TEXT NOT NULL,
			message      TEXT NOT NULL DEFAULT '',
			read         BOOLEAN NOT NULL DEFAULT false,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS stock_alerts_created_at_idx ON stock_alerts (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS operators (
			username   TEXT PRIMARY KEY,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'operator',
			active     BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var expiration sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, expiration_date, category, description
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &expiration, &p.Category, &p.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if expiration.Valid {
		p.ExpirationDate = expiration.Time
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, stock, expiration_date, category, description
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		var expiration sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &expiration, &p.Category, &p.Description); err != nil {
			return nil, err
		}
		if expiration.Valid {
			p.ExpirationDate = expiration.Time
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) AddProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, expiration_date, category, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, product.ID, product.Name, product.Price, product.Stock, nullTime(product.ExpirationDate), product.Category, product.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" || product.Price.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, stock = $4, expiration_date = $5, category = $6, description = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.Stock, nullTime(product.ExpirationDate), product.Category, product.Description)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

// DecrementStock applies the database's native guarded decrement. The guard
// distinguishes a missing product from one without enough stock.
func (s *Store) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if productID == "" || quantity < 1 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrInsufficientStock
}

func (s *Store) AddSale(ctx context.Context, sale domain.Sale) (string, error) {
	if sale.ProductID == "" || sale.Quantity < 1 {
		return "", store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, quantity, unit_price, total_price, tax_rate_percent, discount, operator_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.ProductID, sale.Quantity, sale.UnitPrice, sale.TotalPrice, sale.TaxRatePercent, sale.Discount, sale.OperatorID, sale.Timestamp)
	if err != nil {
		return "", err
	}
	return sale.ID, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price, total_price, tax_rate_percent, discount, operator_id, created_at
		FROM sales
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.Quantity, &sale.UnitPrice, &sale.TotalPrice, &sale.TaxRatePercent, &sale.Discount, &sale.OperatorID, &sale.Timestamp); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) AddAlert(ctx context.Context, alert domain.StockAlert) (string, error) {
	if alert.ProductID == "" || alert.Kind == "" {
		return "", store.ErrInvalidInput
	}
	if alert.ID == "" {
		alert.ID = xid.New("alert")
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_alerts (id, product_id, product_name, kind, message, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, alert.ID, alert.ProductID, alert.ProductName, string(alert.Kind), alert.Message, alert.Read, alert.Timestamp)
	if err != nil {
		return "", err
	}
	return alert.ID, nil
}

func (s *Store) ListAlerts(ctx context.Context, limit int) ([]domain.StockAlert, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, kind, message, read, created_at
		FROM stock_alerts
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.StockAlert, 0, limit)
	for rows.Next() {
		var alert domain.StockAlert
		var kind string
		if err := rows.Scan(&alert.ID, &alert.ProductID, &alert.ProductName, &kind, &alert.Message, &alert.Read, &alert.Timestamp); err != nil {
			return nil, err
		}
		alert.Kind = domain.AlertKind(kind)
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *Store) MarkAlertRead(ctx context.Context, alertID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_alerts SET read = true WHERE id = $1
	`, alertID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAlert(ctx context.Context, alertID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM stock_alerts WHERE id = $1
	`, alertID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetOperator(ctx context.Context, username string) (*domain.OperatorAccount, error) {
	var account domain.OperatorAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM operators
		WHERE username = $1
	`, username).Scan(&account.Username, &account.Password, &account.Role, &account.Active, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *Store) CreateOperator(ctx context.Context, account domain.OperatorAccount) error {
	if account.Username == "" || account.Password == "" {
		return store.ErrInvalidInput
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, account.Username, account.Password, account.Role, account.Active, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
