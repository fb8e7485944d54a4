package model

import "time"

type StockStatus string

const (
	OutOfStock StockStatus = "out_of_stock"
	LowStock   StockStatus = "low_stock"
	InStock    StockStatus = "in_stock"
)

type InventoryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Quantity     int       `json:"quantity"`
	Unit         string    `json:"unit"`
	ReorderPoint int       `json:"reorder_point"`
	Warehouse    string    `json:"warehouse"`
	Category     string    `json:"category"`
	LastUpdated  time.Time `json:"last_updated"`
}

func (i InventoryItem) IsLowStock() bool { return i.Quantity <= i.ReorderPoint }

func (i InventoryItem) StockStatus() StockStatus {
	switch {
	case i.Quantity == 0:
		return OutOfStock
	case i.IsLowStock():
		return LowStock
	default:
		return InStock
	}
}

type Warehouse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Location           Location `json:"location"`
	Capacity           float64  `json:"capacity"`
	CurrentUtilization float64  `json:"current_utilization"`
}

func (w Warehouse) UtilizationPercentage() float64 {
	if w.Capacity <= 0 {
		return 0
	}
	return w.CurrentUtilization / w.Capacity * 100
}
