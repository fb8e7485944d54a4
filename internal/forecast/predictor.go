// Package forecast predicts item demand with a standardized linear
// regression fitted on a synthetic daily history.
package forecast

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultHistoryDays = 60
	// DefaultRidge keeps the normal equations solvable when calendar
	// features are collinear over a short history.
	DefaultRidge = 1e-4
	// NoStockout is reported when predicted demand is zero.
	NoStockout = 999

	dateLayout = "2006-01-02"
	nFeatures  = 8
)

var ErrNotEnoughHistory = errors.New("not enough history to fit")

// DayDemand is one day of observed demand.
type DayDemand struct {
	Date       string  `json:"date"`
	Demand     float64 `json:"demand"`
	DayOfWeek  int     `json:"day_of_week"`
	Month      int     `json:"month"`
	DayOfMonth int     `json:"day_of_month"`
}

type Prediction struct {
	Date            string  `json:"date"`
	PredictedDemand float64 `json:"predicted_demand"`
	DayName         string  `json:"day_name"`
}

type Insights struct {
	AverageDailyDemand       float64 `json:"average_daily_demand"`
	Predicted7DayDemand      float64 `json:"predicted_7day_demand"`
	Predicted30DayDemand     float64 `json:"predicted_30day_demand"`
	DaysUntilStockout        int     `json:"days_until_stockout"`
	ShouldReorder            bool    `json:"should_reorder"`
	RecommendedOrderQuantity float64 `json:"recommended_order_quantity"`
	Trend                    string  `json:"trend"`
	Confidence               string  `json:"confidence"`
}

// Result is the full prediction for one item.
type Result struct {
	ItemID          string       `json:"item_id"`
	CurrentQuantity int          `json:"current_quantity"`
	ModelAccuracy   float64      `json:"model_accuracy"`
	HistoricalData  []DayDemand  `json:"historical_data"`
	Predictions7    []Prediction `json:"predictions_7day"`
	Predictions30   []Prediction `json:"predictions_30day"`
	Insights        Insights     `json:"insights"`
}

// Predictor runs the history, fit, predict and insight pipeline. The zero
// value is not usable; call NewPredictor.
type Predictor struct {
	now         func() time.Time
	historyDays int
	ridge       float64
}

type Option func(*Predictor)

func WithClock(now func() time.Time) Option { return func(p *Predictor) { p.now = now } }

func WithHistoryDays(n int) Option { return func(p *Predictor) { p.historyDays = n } }

func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{now: time.Now, historyDays: DefaultHistoryDays, ridge: DefaultRidge}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

// seedFor derives a stable seed from the item id so the same item always
// gets the same synthetic history.
func seedFor(itemID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(itemID))
	return int64(h.Sum64() >> 1)
}

// mondayFirst maps Go's Sunday-first weekday to 0=Monday .. 6=Sunday.
func mondayFirst(d time.Weekday) int { return (int(d) + 6) % 7 }

// GenerateHistory synthesizes days of demand around 10% of the current
// stock, with a weekday bump, a monthly sine season, a per-item linear trend
// and gaussian noise. Demand is never negative.
func (p *Predictor) GenerateHistory(itemID string, quantity, days int) []DayDemand {
	rng := rand.New(rand.NewSource(seedFor(itemID)))
	base := float64(quantity) * 0.1
	trend := rng.Float64() - 0.5
	today := p.now()

	out := make([]DayDemand, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -(days - i))
		dow := mondayFirst(date.Weekday())
		weekday := 0.8
		if dow < 5 {
			weekday = 1.2
		}
		season := 1 + 0.2*math.Sin(2*math.Pi*float64(date.Month())/12)
		noise := rng.NormFloat64() * base * 0.2
		demand := math.Max(0, base*weekday*season+trend*float64(i)+noise)
		out = append(out, DayDemand{
			Date:       date.Format(dateLayout),
			Demand:     round2(demand),
			DayOfWeek:  dow,
			Month:      int(date.Month()),
			DayOfMonth: date.Day(),
		})
	}
	return out
}

func features(index int, dow, month, dom int) []float64 {
	w := 2 * math.Pi * float64(dow) / 7
	m := 2 * math.Pi * float64(month) / 12
	return []float64{
		float64(index),
		float64(dow),
		float64(month),
		float64(dom),
		math.Sin(w), math.Cos(w),
		math.Sin(m), math.Cos(m),
	}
}

// Model is a fitted linear regression over standardized features.
type Model struct {
	mean, scale []float64
	coef        *mat.VecDense
	intercept   float64
}

// Fit standardizes the features of history and solves the ridge-regularized
// normal equations. It returns the model and its R² on the training data.
func Fit(history []DayDemand, ridge float64) (*Model, float64, error) {
	n := len(history)
	if n < 2 {
		return nil, 0, fmt.Errorf("%w: %d days", ErrNotEnoughHistory, n)
	}
	raw := mat.NewDense(n, nFeatures, nil)
	ys := make([]float64, n)
	for i, d := range history {
		raw.SetRow(i, features(i, d.DayOfWeek, d.Month, d.DayOfMonth))
		ys[i] = d.Demand
	}

	m := &Model{mean: make([]float64, nFeatures), scale: make([]float64, nFeatures)}
	for j := 0; j < nFeatures; j++ {
		mu, sd := stat.PopMeanStdDev(mat.Col(nil, j, raw), nil)
		if sd == 0 {
			sd = 1
		}
		m.mean[j], m.scale[j] = mu, sd
	}
	x := mat.NewDense(n, nFeatures, nil)
	x.Apply(func(i, j int, v float64) float64 { return (v - m.mean[j]) / m.scale[j] }, raw)

	m.intercept = stat.Mean(ys, nil)
	centered := make([]float64, n)
	for i, y := range ys {
		centered[i] = y - m.intercept
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for j := 0; j < nFeatures; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+ridge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(n, centered))

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, 0, errors.New("normal equations are not positive definite")
	}
	m.coef = mat.NewVecDense(nFeatures, nil)
	if err := chol.SolveVecTo(m.coef, &xty); err != nil {
		return nil, 0, fmt.Errorf("solve normal equations: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, m.coef)
	ssRes, ssTot := 0.0, 0.0
	for i, y := range ys {
		r := y - (fitted.AtVec(i) + m.intercept)
		ssRes += r * r
		t := y - m.intercept
		ssTot += t * t
	}
	r2 := 0.0
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}
	return m, r2, nil
}

// Predict evaluates the model on unscaled features.
func (m *Model) Predict(raw []float64) float64 {
	y := m.intercept
	for j, v := range raw {
		y += (v - m.mean[j]) / m.scale[j] * m.coef.AtVec(j)
	}
	return y
}

// PredictFuture forecasts the days following the last history entry.
// Negative predictions are clamped to zero.
func (m *Model) PredictFuture(history []DayDemand, daysAhead int) ([]Prediction, error) {
	if len(history) == 0 {
		return nil, ErrNotEnoughHistory
	}
	last, err := time.Parse(dateLayout, history[len(history)-1].Date)
	if err != nil {
		return nil, fmt.Errorf("parse history date: %w", err)
	}
	lastIndex := len(history) - 1
	out := make([]Prediction, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		d := last.AddDate(0, 0, i)
		y := m.Predict(features(lastIndex+i, mondayFirst(d.Weekday()), int(d.Month()), d.Day()))
		out = append(out, Prediction{
			Date:            d.Format(dateLayout),
			PredictedDemand: round2(math.Max(0, y)),
			DayName:         d.Weekday().String(),
		})
	}
	return out, nil
}

// Summarize derives stock insights from the first week of predictions and
// the last week of history.
func Summarize(history []DayDemand, preds []Prediction, quantity int) Insights {
	week := preds
	if len(week) > 7 {
		week = week[:7]
	}
	total7, total30 := 0.0, 0.0
	for _, p := range week {
		total7 += p.PredictedDemand
	}
	for _, p := range preds {
		total30 += p.PredictedDemand
	}
	avg := 0.0
	if len(week) > 0 {
		avg = total7 / float64(len(week))
	}

	recent := history
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	recentAvg := 0.0
	for _, h := range recent {
		recentAvg += h.Demand
	}
	if len(recent) > 0 {
		recentAvg /= float64(len(recent))
	}

	in := Insights{
		AverageDailyDemand:       round2(avg),
		Predicted7DayDemand:      round2(total7),
		Predicted30DayDemand:     round2(total30),
		DaysUntilStockout:        NoStockout,
		ShouldReorder:            float64(quantity) < avg*7,
		RecommendedOrderQuantity: round2(math.Max(0, total30-float64(quantity))),
		Trend:                    "stable",
		Confidence:               "medium",
	}
	if avg > 0 {
		in.DaysUntilStockout = int(float64(quantity) / avg)
	}
	switch {
	case avg > recentAvg:
		in.Trend = "increasing"
	case avg < recentAvg:
		in.Trend = "decreasing"
	}
	if len(history) >= 30 {
		in.Confidence = "high"
	}
	return in
}

// PredictItem runs the whole pipeline for one item. The output depends only
// on the item id, the quantity and the clock.
func (p *Predictor) PredictItem(itemID string, quantity int) (Result, error) {
	history := p.GenerateHistory(itemID, quantity, p.historyDays)
	model, r2, err := Fit(history, p.ridge)
	if err != nil {
		return Result{}, fmt.Errorf("fit %s: %w", itemID, err)
	}
	p7, err := model.PredictFuture(history, 7)
	if err != nil {
		return Result{}, err
	}
	p30, err := model.PredictFuture(history, 30)
	if err != nil {
		return Result{}, err
	}
	recent := history
	if len(recent) > 14 {
		recent = recent[len(recent)-14:]
	}
	return Result{
		ItemID:          itemID,
		CurrentQuantity: quantity,
		ModelAccuracy:   round2(r2 * 100),
		HistoricalData:  recent,
		Predictions7:    p7,
		Predictions30:   p30,
		Insights:        Summarize(history, p30, quantity),
	}, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
