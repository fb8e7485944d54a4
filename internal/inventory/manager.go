// Package inventory tracks stock levels, consumption history and warehouse
// usage, and derives alerts, moving-average forecasts and turnover from them.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"fleetopt/internal/model"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// DemandRecord is one consumption event.
type DemandRecord struct {
	At       time.Time `json:"at"`
	Quantity int       `json:"quantity"`
}

// Manager is safe for concurrent use. Items and warehouses are listed in
// insertion order.
type Manager struct {
	mu         sync.RWMutex
	items      map[string]model.InventoryItem
	itemOrder  []string
	warehouses map[string]model.Warehouse
	whOrder    []string
	history    map[string][]DemandRecord
	now        func() time.Time
	rng        *rand.Rand
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithRand sets the source used for demand simulation and price estimates.
func WithRand(r *rand.Rand) Option { return func(m *Manager) { m.rng = r } }

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		items:      map[string]model.InventoryItem{},
		warehouses: map[string]model.Warehouse{},
		history:    map[string][]DemandRecord{},
		now:        time.Now,
	}
	for _, fn := range opts {
		fn(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(m.now().UnixNano()))
	}
	return m
}

// AddItem adds or replaces an item. Existing demand history is kept.
func (m *Manager) AddItem(it model.InventoryItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.LastUpdated.IsZero() {
		it.LastUpdated = m.now()
	}
	if _, ok := m.items[it.ID]; !ok {
		m.itemOrder = append(m.itemOrder, it.ID)
	}
	m.items[it.ID] = it
}

func (m *Manager) Item(id string) (model.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return model.InventoryItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return it, nil
}

func (m *Manager) Items() []model.InventoryItem {
	return m.filter(func(model.InventoryItem) bool { return true })
}

func (m *Manager) filter(keep func(model.InventoryItem) bool) []model.InventoryItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.InventoryItem{}
	for _, id := range m.itemOrder {
		if it := m.items[id]; keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// UpdateQuantity applies delta to the item's stock. Negative deltas are
// recorded as demand. The stock never goes below zero.
func (m *Manager) UpdateQuantity(id string, delta int) (model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return model.InventoryItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if it.Quantity+delta < 0 {
		return it, fmt.Errorf("%w: %s has %d, change %d", ErrInsufficientStock, id, it.Quantity, delta)
	}
	now := m.now()
	it.Quantity += delta
	it.LastUpdated = now
	m.items[id] = it
	if delta < 0 {
		m.history[id] = append(m.history[id], DemandRecord{At: now, Quantity: -delta})
	}
	return it, nil
}

// History returns a copy of the item's demand records, oldest first.
func (m *Manager) History(id string) []DemandRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DemandRecord(nil), m.history[id]...)
}

func (m *Manager) LowStock() []model.InventoryItem {
	return m.filter(model.InventoryItem.IsLowStock)
}

func (m *Manager) OutOfStock() []model.InventoryItem {
	return m.filter(func(it model.InventoryItem) bool { return it.Quantity == 0 })
}

func (m *Manager) ByWarehouse(name string) []model.InventoryItem {
	return m.filter(func(it model.InventoryItem) bool { return it.Warehouse == name })
}

func (m *Manager) ByCategory(category string) []model.InventoryItem {
	return m.filter(func(it model.InventoryItem) bool { return it.Category == category })
}

// Value sums quantity times unit price. Items missing from prices count as
// zero. With no price map at all, demo prices between 10 and 500 are drawn.
func (m *Manager) Value(prices map[string]float64) float64 {
	items := m.Items()
	if len(prices) == 0 {
		m.mu.Lock()
		prices = make(map[string]float64, len(items))
		for _, it := range items {
			prices[it.ID] = 10 + m.rng.Float64()*490
		}
		m.mu.Unlock()
	}
	total := 0.0
	for _, it := range items {
		total += prices[it.ID] * float64(it.Quantity)
	}
	return total
}

type Forecast struct {
	ItemID                   string  `json:"item_id"`
	ItemName                 string  `json:"item_name"`
	CurrentQuantity          int     `json:"current_quantity"`
	ForecastDays             int     `json:"forecast_days"`
	AvgDailyDemand           float64 `json:"avg_daily_demand"`
	PredictedDemand          int     `json:"predicted_demand"`
	EstimatedStockAfter      int     `json:"estimated_stock_after"`
	ReorderRecommended       bool    `json:"reorder_recommended"`
	RecommendedOrderQuantity int     `json:"recommended_order_quantity"`
	Confidence               string  `json:"confidence"`
	Method                   string  `json:"method"`
	DataPoints               int     `json:"data_points"`
}

// Forecast predicts demand over days using a moving average of the last 30
// consumption records. With fewer than 3 records it falls back to an
// estimate of reorder_point/7 units per day.
func (m *Manager) Forecast(id string, days int) (Forecast, error) {
	it, err := m.Item(id)
	if err != nil {
		return Forecast{}, err
	}
	hist := m.History(id)
	f := Forecast{
		ItemID:          it.ID,
		ItemName:        it.Name,
		CurrentQuantity: it.Quantity,
		ForecastDays:    days,
		DataPoints:      len(hist),
	}

	if len(hist) < 3 {
		daily := max(1, it.ReorderPoint/7)
		f.AvgDailyDemand = float64(daily)
		f.PredictedDemand = daily * days
		f.EstimatedStockAfter = max(0, it.Quantity-f.PredictedDemand)
		f.ReorderRecommended = it.Quantity < f.PredictedDemand+it.ReorderPoint
		f.Confidence = "low"
		f.Method = "estimation"
		return f, nil
	}

	recent := hist
	if len(recent) > 30 {
		recent = recent[len(recent)-30:]
	}
	total := 0
	for _, r := range recent {
		total += r.Quantity
	}
	span := int(recent[len(recent)-1].At.Sub(recent[0].At).Hours() / 24)
	if span < 1 {
		span = 1
	}
	avg := float64(total) / float64(span)
	f.AvgDailyDemand = math.Round(avg*100) / 100
	f.PredictedDemand = int(avg * float64(days))
	stockAfter := it.Quantity - f.PredictedDemand
	f.EstimatedStockAfter = max(0, stockAfter)
	f.ReorderRecommended = stockAfter < it.ReorderPoint
	if f.ReorderRecommended {
		f.RecommendedOrderQuantity = max(it.ReorderPoint*2, int(avg*14))
	}
	f.Method = "moving_average"
	if len(hist) > 10 {
		f.Confidence = "high"
	} else {
		f.Confidence = "medium"
	}
	return f, nil
}

type Alert struct {
	Severity        string    `json:"severity"`
	Type            string    `json:"type"`
	ItemID          string    `json:"item_id"`
	ItemName        string    `json:"item_name"`
	Message         string    `json:"message"`
	Warehouse       string    `json:"warehouse"`
	CurrentQuantity int       `json:"current_quantity"`
	ReorderPoint    int       `json:"reorder_point"`
	Timestamp       time.Time `json:"timestamp"`
}

// Alerts lists out-of-stock items (critical) followed by low-stock items
// that still have some stock (warning).
func (m *Manager) Alerts() []Alert {
	now := m.now()
	alerts := []Alert{}
	for _, it := range m.OutOfStock() {
		alerts = append(alerts, Alert{
			Severity:     "critical",
			Type:         string(model.OutOfStock),
			ItemID:       it.ID,
			ItemName:     it.Name,
			Message:      it.Name + " is out of stock",
			Warehouse:    it.Warehouse,
			ReorderPoint: it.ReorderPoint,
			Timestamp:    now,
		})
	}
	for _, it := range m.LowStock() {
		if it.Quantity == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			Severity:        "warning",
			Type:            string(model.LowStock),
			ItemID:          it.ID,
			ItemName:        it.Name,
			Message:         fmt.Sprintf("%s is below reorder point (%d/%d)", it.Name, it.Quantity, it.ReorderPoint),
			Warehouse:       it.Warehouse,
			CurrentQuantity: it.Quantity,
			ReorderPoint:    it.ReorderPoint,
			Timestamp:       now,
		})
	}
	return alerts
}

type Turnover struct {
	ItemID           string  `json:"item_id"`
	ItemName         string  `json:"item_name"`
	PeriodDays       int     `json:"period_days"`
	TotalSold        int     `json:"total_sold"`
	AverageInventory int     `json:"average_inventory"`
	TurnoverRate     float64 `json:"turnover_rate"`
	Category         string  `json:"turnover_category"`
}

// Turnover divides units consumed in the last days by the current stock,
// which stands in for average inventory.
func (m *Manager) Turnover(id string, days int) (Turnover, error) {
	it, err := m.Item(id)
	if err != nil {
		return Turnover{}, err
	}
	cutoff := m.now().AddDate(0, 0, -days)
	sold := 0
	for _, r := range m.History(id) {
		if !r.At.Before(cutoff) {
			sold += r.Quantity
		}
	}
	rate := 0.0
	if it.Quantity > 0 {
		rate = float64(sold) / float64(it.Quantity)
	}
	return Turnover{
		ItemID:           it.ID,
		ItemName:         it.Name,
		PeriodDays:       days,
		TotalSold:        sold,
		AverageInventory: it.Quantity,
		TurnoverRate:     math.Round(rate*100) / 100,
		Category:         turnoverCategory(rate),
	}, nil
}

func turnoverCategory(rate float64) string {
	switch {
	case rate > 4:
		return "fast_moving"
	case rate > 1:
		return "moderate"
	default:
		return "slow_moving"
	}
}

func (m *Manager) AddWarehouse(w model.Warehouse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.warehouses[w.ID]; !ok {
		m.whOrder = append(m.whOrder, w.ID)
	}
	m.warehouses[w.ID] = w
}

func (m *Manager) Warehouses() []model.Warehouse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Warehouse, 0, len(m.whOrder))
	for _, id := range m.whOrder {
		out = append(out, m.warehouses[id])
	}
	return out
}

type Utilization struct {
	WarehouseID           string  `json:"warehouse_id"`
	WarehouseName         string  `json:"warehouse_name"`
	Capacity              float64 `json:"capacity"`
	CurrentUtilization    float64 `json:"current_utilization"`
	UtilizationPercentage float64 `json:"utilization_percentage"`
	TotalItems            int     `json:"total_items"`
	LowStockItems         int     `json:"low_stock_items"`
	OutOfStockItems       int     `json:"out_of_stock_items"`
}

// WarehouseUtilization reports capacity use and stock health. Items are
// matched to the warehouse by name.
func (m *Manager) WarehouseUtilization(id string) (Utilization, error) {
	m.mu.RLock()
	w, ok := m.warehouses[id]
	m.mu.RUnlock()
	if !ok {
		return Utilization{}, fmt.Errorf("%w: %s", ErrWarehouseNotFound, id)
	}
	u := Utilization{
		WarehouseID:           w.ID,
		WarehouseName:         w.Name,
		Capacity:              w.Capacity,
		CurrentUtilization:    w.CurrentUtilization,
		UtilizationPercentage: math.Round(w.UtilizationPercentage()*100) / 100,
	}
	for _, it := range m.ByWarehouse(w.Name) {
		u.TotalItems++
		if it.IsLowStock() {
			u.LowStockItems++
		}
		if it.Quantity == 0 {
			u.OutOfStockItems++
		}
	}
	return u, nil
}

// SimulateDemand backfills days of random daily consumption for every item,
// between 0 and reorder_point/5 units per day. Zero-demand days are skipped.
// Stock levels are not changed.
func (m *Manager) SimulateDemand(days int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, id := range m.itemOrder {
		it := m.items[id]
		hi := max(1, it.ReorderPoint/5)
		for d := 0; d < days; d++ {
			qty := m.rng.Intn(hi + 1)
			if qty > 0 {
				m.history[id] = append(m.history[id], DemandRecord{At: now.AddDate(0, 0, -(days - d)), Quantity: qty})
			}
		}
	}
}

// Health summarizes stock state for analytics.
type Health struct {
	TotalItems       int     `json:"total_items"`
	LowStockItems    int     `json:"low_stock_items"`
	OutOfStockItems  int     `json:"out_of_stock_items"`
	HealthPercentage float64 `json:"health_percentage"`
}

// Health counts low-stock items including out-of-stock ones. Out-of-stock
// items weigh twice in the health percentage, which is floored at zero.
func (m *Manager) Health() Health {
	items := m.Items()
	h := Health{TotalItems: len(items)}
	for _, it := range items {
		if it.IsLowStock() {
			h.LowStockItems++
		}
		if it.Quantity == 0 {
			h.OutOfStockItems++
		}
	}
	if h.TotalItems > 0 {
		healthy := max(0, h.TotalItems-h.LowStockItems-h.OutOfStockItems)
		h.HealthPercentage = math.Round(float64(healthy)/float64(h.TotalItems)*10000) / 100
	}
	return h
}
