package catalog

import "time"

// Product is a bottled spirit offered by the storefront.
type Product struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Distillery    string    `json:"distillery"`
	Region        string    `json:"region"`
	CategoryID    int64     `json:"category_id"`
	ABV           float64   `json:"abv"`
	VolumeML      int       `json:"volume_ml"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Category groups products for the shop filter experience.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// snapshot flattens a product into the field map used for audit diffs.
// Keys match the persisted changeSet contract.
func snapshot(p Product) map[string]any {
	return map[string]any{
		"sku":           p.SKU,
		"name":          p.Name,
		"distillery":    p.Distillery,
		"region":        p.Region,
		"categoryId":    p.CategoryID,
		"abv":           p.ABV,
		"volumeMl":      p.VolumeML,
		"price":         p.Price,
		"stockQuantity": p.StockQuantity,
		"isActive":      p.IsActive,
	}
}

func categorySnapshot(c Category) map[string]any {
	return map[string]any{
		"name":        c.Name,
		"description": c.Description,
	}
}
