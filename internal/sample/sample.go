// Package sample provides the demo catalog the service boots with: depots
// and customers around Bangalore, a small fleet, stock items and warehouses.
package sample

import (
	"fmt"

	"fleetopt/internal/model"
)

func Locations() []model.Location {
	return []model.Location{
		{Name: "Depot A", Latitude: 12.9716, Longitude: 77.5946, Address: "Main Warehouse, Bangalore"},
		{Name: "Depot B", Latitude: 13.0358, Longitude: 77.5970, Address: "North Warehouse, Bangalore"},
		{Name: "Customer 1", Latitude: 12.9352, Longitude: 77.6245, Address: "Electronics Store, Indiranagar"},
		{Name: "Customer 2", Latitude: 12.9698, Longitude: 77.6480, Address: "Retail Shop, Whitefield"},
		{Name: "Customer 3", Latitude: 12.9141, Longitude: 77.6411, Address: "Supermarket, HSR Layout"},
		{Name: "Customer 4", Latitude: 13.0189, Longitude: 77.6410, Address: "Mall, Hebbal"},
		{Name: "Customer 5", Latitude: 12.9279, Longitude: 77.6271, Address: "Office Complex, Koramangala"},
		{Name: "Customer 6", Latitude: 12.9833, Longitude: 77.6412, Address: "Shopping Center, Banaswadi"},
		{Name: "Customer 7", Latitude: 12.9539, Longitude: 77.6619, Address: "Restaurant, Marathahalli"},
		{Name: "Customer 8", Latitude: 12.8996, Longitude: 77.6354, Address: "Warehouse, Bommanahalli"},
	}
}

func Vehicles() []model.Vehicle {
	return []model.Vehicle{
		{ID: "V001", Name: "Truck Alpha", Capacity: 1000, Status: model.VehicleAvailable},
		{ID: "V002", Name: "Truck Beta", Capacity: 1500, Status: model.VehicleAvailable},
		{ID: "V003", Name: "Van Gamma", Capacity: 500, Status: model.VehicleAvailable},
		{ID: "V004", Name: "Truck Delta", Capacity: 1200, Status: model.VehicleAvailable},
		{ID: "V005", Name: "Van Epsilon", Capacity: 600, Status: model.VehicleMaintenance},
	}
}

// Inventory returns twelve items with ids INV-001..INV-012.
func Inventory() []model.InventoryItem {
	rows := []struct {
		name, sku string
		qty       int
		unit      string
		reorder   int
		warehouse string
		category  string
	}{
		{"Laptop Computer", "ELEC-001", 45, "units", 20, "Depot A", "Electronics"},
		{"Smartphone", "ELEC-002", 120, "units", 50, "Depot A", "Electronics"},
		{"Headphones", "ELEC-003", 15, "units", 30, "Depot B", "Electronics"},
		{"Coffee Beans", "FOOD-001", 200, "kg", 100, "Depot A", "Food & Beverage"},
		{"Bottled Water", "FOOD-002", 500, "units", 200, "Depot B", "Food & Beverage"},
		{"T-Shirts", "CLTH-001", 300, "units", 100, "Depot A", "Clothing"},
		{"Jeans", "CLTH-002", 150, "units", 50, "Depot B", "Clothing"},
		{"Power Tools", "HARD-001", 80, "units", 30, "Depot A", "Hardware"},
		{"Screwdriver Set", "HARD-002", 25, "units", 40, "Depot B", "Hardware"},
		{"First Aid Kit", "MED-001", 60, "units", 50, "Depot A", "Medical"},
		{"Face Masks", "MED-002", 1000, "units", 500, "Depot B", "Medical"},
		{"Hand Sanitizer", "MED-003", 8, "liters", 50, "Depot A", "Medical"},
	}
	items := make([]model.InventoryItem, len(rows))
	for i, r := range rows {
		items[i] = model.InventoryItem{
			ID:           fmt.Sprintf("INV-%03d", i+1),
			Name:         r.name,
			SKU:          r.sku,
			Quantity:     r.qty,
			Unit:         r.unit,
			ReorderPoint: r.reorder,
			Warehouse:    r.warehouse,
			Category:     r.category,
		}
	}
	return items
}

func Warehouses() []model.Warehouse {
	locs := Locations()
	return []model.Warehouse{
		{ID: "WH-001", Name: "Depot A", Location: locs[0], Capacity: 10000, CurrentUtilization: 6500},
		{ID: "WH-002", Name: "Depot B", Location: locs[1], Capacity: 8000, CurrentUtilization: 5200},
	}
}

// LocationByName looks a location up in the catalog.
func LocationByName(name string) (model.Location, bool) {
	for _, l := range Locations() {
		if l.Name == name {
			return l, true
		}
	}
	return model.Location{}, false
}
