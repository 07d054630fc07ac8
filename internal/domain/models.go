package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item tracked by the inventory store. Stock is the
// authoritative unit count and must never go negative; the registration
// transaction is the only sanctioned in-core mutator.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
}

// IsExpiringSoon reports whether the product expires within daysAhead days.
// Already-expired products also count as expiring soon.
func (p Product) IsExpiringSoon(now time.Time, daysAhead int) bool {
	if p.ExpirationDate.IsZero() {
		return false
	}
	warning := now.Add(time.Duration(daysAhead) * 24 * time.Hour)
	return !p.ExpirationDate.After(warning)
}

// IsExpired reports whether the product's expiration date has passed.
func (p Product) IsExpired(now time.Time) bool {
	if p.ExpirationDate.IsZero() {
		return false
	}
	return !p.ExpirationDate.After(now)
}

func (p Product) IsInStock() bool {
	return p.Stock > 0
}

// Sale is a single sales transaction. ID is assigned by the store on persist
// and is empty before. TotalPrice is authoritative only after the
// registration transaction finalizes it (quantity × unit price); a value set
// by the caller beforehand is advisory.
type Sale struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	Discount       decimal.Decimal `json:"discount"`
	Timestamp      time.Time       `json:"timestamp"`
	OperatorID     string          `json:"operator_id"`
}

// IsValid reports whether the sale is well-formed enough to register.
// Fails closed: missing product reference, non-positive quantity or unit
// price, or a missing operator all make the sale invalid.
func (s Sale) IsValid() bool {
	return s.ProductID != "" &&
		s.Quantity > 0 &&
		s.UnitPrice.IsPositive() &&
		s.OperatorID != ""
}

// TotalWithTax returns the total price with the fixed tax rate applied.
func (s Sale) TotalWithTax() decimal.Decimal {
	tax := s.TotalPrice.Mul(s.TaxRatePercent).Div(decimal.NewFromInt(100))
	return s.TotalPrice.Add(tax)
}

// AlertKind classifies an inventory condition requiring attention.
type AlertKind string

const (
	AlertLowStock     AlertKind = "LOW_STOCK"
	AlertExpiringSoon AlertKind = "EXPIRING_SOON"
	AlertExpired      AlertKind = "EXPIRED"
	AlertOutOfStock   AlertKind = "OUT_OF_STOCK"
)

// StockAlert is a derived alert record. Alerts are append-only from the
// engine's perspective; only the Read flag mutates afterwards, unread→read,
// exactly once and idempotently.
type StockAlert struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Kind        AlertKind `json:"kind"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
}

type ProductCreateRequest struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	InitialStock   int             `json:"initial_stock"`
	ExpirationDate string          `json:"expiration_date,omitempty"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
}

type ProductUpdateRequest struct {
	Name           *string          `json:"name,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Stock          *int             `json:"stock,omitempty"`
	ExpirationDate *string          `json:"expiration_date,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Description    *string          `json:"description,omitempty"`
}

type RegisterSaleRequest struct {
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Discount   decimal.Decimal `json:"discount"`
	OperatorID string          `json:"operator_id"`
}

type RegisterSaleResponse struct {
	SaleID         string          `json:"sale_id"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	TotalWithTax   decimal.Decimal `json:"total_with_tax"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

type ChangeRequest struct {
	Total    decimal.Decimal `json:"total"`
	Received decimal.Decimal `json:"received"`
}

type ChangeResponse struct {
	Change decimal.Decimal `json:"change"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// OperatorAccount is an internal persistence model for auth credentials.
type OperatorAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// RegistrationOutcome is the one-shot message emitted on the notification
// channel after each registration attempt. ErrorKind is empty on success.
type RegistrationOutcome struct {
	SaleID    string    `json:"sale_id,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

func (o RegistrationOutcome) Succeeded() bool {
	return o.ErrorKind == ""
}
