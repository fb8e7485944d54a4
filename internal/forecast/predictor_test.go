package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedPredictor() *Predictor {
	at := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	return NewPredictor(WithClock(func() time.Time { return at }))
}

func TestGenerateHistoryDeterministicPerItem(t *testing.T) {
	p := fixedPredictor()
	a := p.GenerateHistory("INV-001", 45, 60)
	b := p.GenerateHistory("INV-001", 45, 60)
	c := p.GenerateHistory("INV-002", 45, 60)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 60)
	require.Equal(t, "2024-04-16", a[0].Date)
	require.Equal(t, "2024-06-14", a[59].Date)
	for _, d := range a {
		require.GreaterOrEqual(t, d.Demand, 0.0)
		require.True(t, d.DayOfWeek >= 0 && d.DayOfWeek <= 6)
	}
	// 2024-06-14 was a Friday
	require.Equal(t, 4, a[59].DayOfWeek)
}

func TestFitRecoversLinearTrend(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var hist []DayDemand
	for i := 0; i < 40; i++ {
		d := start.AddDate(0, 0, i)
		hist = append(hist, DayDemand{
			Date:       d.Format(dateLayout),
			Demand:     5 + 2*float64(i),
			DayOfWeek:  mondayFirst(d.Weekday()),
			Month:      int(d.Month()),
			DayOfMonth: d.Day(),
		})
	}
	m, r2, err := Fit(hist, DefaultRidge)
	require.NoError(t, err)
	require.InDelta(t, 1.0, r2, 1e-3)

	preds, err := m.PredictFuture(hist, 3)
	require.NoError(t, err)
	require.Len(t, preds, 3)
	require.Equal(t, "2024-02-10", preds[0].Date)
	require.Equal(t, "Saturday", preds[0].DayName)
	require.InDelta(t, 5+2*40.0, preds[0].PredictedDemand, 1.0)
}

func TestFitNeedsHistory(t *testing.T) {
	_, _, err := Fit([]DayDemand{{Date: "2024-01-01", Demand: 1}}, DefaultRidge)
	require.ErrorIs(t, err, ErrNotEnoughHistory)
}

func TestSummarize(t *testing.T) {
	hist := make([]DayDemand, 30)
	for i := range hist {
		hist[i].Demand = 4
	}
	preds := make([]Prediction, 30)
	for i := range preds {
		preds[i].PredictedDemand = 5
	}
	in := Summarize(hist, preds, 20)
	require.Equal(t, 5.0, in.AverageDailyDemand)
	require.Equal(t, 35.0, in.Predicted7DayDemand)
	require.Equal(t, 150.0, in.Predicted30DayDemand)
	require.Equal(t, 4, in.DaysUntilStockout)
	require.True(t, in.ShouldReorder)
	require.Equal(t, 130.0, in.RecommendedOrderQuantity)
	require.Equal(t, "increasing", in.Trend)
	require.Equal(t, "high", in.Confidence)

	for i := range preds {
		preds[i].PredictedDemand = 0
	}
	in = Summarize(hist[:10], preds, 20)
	require.Equal(t, NoStockout, in.DaysUntilStockout)
	require.Equal(t, "decreasing", in.Trend)
	require.Equal(t, "medium", in.Confidence)
}

func TestPredictItem(t *testing.T) {
	p := fixedPredictor()
	res, err := p.PredictItem("INV-003", 15)
	require.NoError(t, err)
	require.Len(t, res.HistoricalData, 14)
	require.Len(t, res.Predictions7, 7)
	require.Len(t, res.Predictions30, 30)
	require.Equal(t, res.Predictions7, res.Predictions30[:7])
	for _, pr := range res.Predictions30 {
		require.GreaterOrEqual(t, pr.PredictedDemand, 0.0)
	}
	require.False(t, math.IsNaN(res.ModelAccuracy))
	require.LessOrEqual(t, res.ModelAccuracy, 100.0)

	again, err := p.PredictItem("INV-003", 15)
	require.NoError(t, err)
	require.Equal(t, res, again)
}
