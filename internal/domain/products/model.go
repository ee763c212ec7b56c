package products

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	BrandID   *int64          `json:"brand"`
	BrandName string          `json:"brand_name"` // for display
	Stock     int64           `json:"stock"`
	Price     decimal.Decimal `json:"price"`
}

func (p Product) Missing() []string {
	var out []string
	if strings.TrimSpace(p.SKU) == "" {
		out = append(out, "sku")
	}
	if strings.TrimSpace(p.Name) == "" {
		out = append(out, "name")
	}
	return out
}

type Filter struct {
	BrandID int64
	Search  string
	// LowStock keeps products at or below this level when > 0.
	LowStock int64
}
