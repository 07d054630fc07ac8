package domain

import "time"

// expirationDateLayout is the wire format for product expiration dates.
const expirationDateLayout = "2006-01-02"

// ToProduct converts the create request into a product. An unparseable
// expiration date is treated as absent rather than rejected; the store
// validates the rest.
func (r ProductCreateRequest) ToProduct() Product {
	p := Product{
		Name:        r.Name,
		Price:       r.Price,
		Stock:       r.InitialStock,
		Category:    r.Category,
		Description: r.Description,
	}
	if r.ExpirationDate != "" {
		if parsed, err := time.Parse(expirationDateLayout, r.ExpirationDate); err == nil {
			p.ExpirationDate = parsed
		}
	}
	return p
}

// Apply overlays the set fields of the update request onto an existing
// product. An explicit empty expiration date clears it.
func (r ProductUpdateRequest) Apply(current Product) Product {
	if r.Name != nil {
		current.Name = *r.Name
	}
	if r.Price != nil {
		current.Price = *r.Price
	}
	if r.Stock != nil {
		current.Stock = *r.Stock
	}
	if r.ExpirationDate != nil {
		if *r.ExpirationDate == "" {
			current.ExpirationDate = time.Time{}
		} else if parsed, err := time.Parse(expirationDateLayout, *r.ExpirationDate); err == nil {
			current.ExpirationDate = parsed
		}
	}
	if r.Category != nil {
		current.Category = *r.Category
	}
	if r.Description != nil {
		current.Description = *r.Description
	}
	return current
}

// ToSale builds the sale candidate handed to the registration transaction.
// Totals and the timestamp are left for the registrar to finalize.
func (r RegisterSaleRequest) ToSale() Sale {
	return Sale{
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		UnitPrice:  r.UnitPrice,
		Discount:   r.Discount,
		OperatorID: r.OperatorID,
	}
}
