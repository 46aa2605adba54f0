// Package product holds the catalog entities managed by the back office.
package product

import (
	"encoding/json"
	"time"
)

// Category groups products. Deletion is soft and refused while products
// still reference the category.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Order       int       `json:"order" db:"sort_order"`
	IsDeleted   bool      `json:"-" db:"is_deleted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// ProductCount is filled on list reads for display.
	ProductCount int `json:"product_count" db:"product_count"`
}

// Product is one catalog item. Prices are stored as numeric(10,2).
type Product struct {
	ID             int64           `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	CategoryID     int64           `json:"category_id" db:"category_id"`
	Image          string          `json:"image" db:"image"`
	CostPrice      float64         `json:"cost_price" db:"cost_price"`
	SalePrice      float64         `json:"sale_price" db:"sale_price"`
	Specifications json.RawMessage `json:"specifications,omitempty" db:"specifications"`
	Description    string          `json:"description" db:"description"`
	Status         bool            `json:"status" db:"status"`
	IsDeleted      bool            `json:"-" db:"is_deleted"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`

	// CategoryName is joined in on reads for display.
	CategoryName string `json:"category_name" db:"category_name"`
}
