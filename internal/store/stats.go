package store

import (
    "math"
    "sort"

    "fleetopt/internal/model"
)

// Aggregate computes route analytics in memory. Daily rows are keyed by UTC
// date and sorted.
func Aggregate(routes []model.Route) model.RouteStats {
    st := model.RouteStats{ByAlgorithm: map[string]int{}, Daily: []model.DailyStats{}}
    days := map[string]*model.DailyStats{}
    for _, r := range routes {
        st.Total++
        st.TotalDistanceKm += r.TotalDistance
        st.TotalEstimatedHours += r.EstimatedTime
        st.ByAlgorithm[r.Algorithm]++
        date := r.CreatedAt.UTC().Format("2006-01-02")
        d, ok := days[date]
        if !ok {
            d = &model.DailyStats{Date: date}
            days[date] = d
        }
        d.Routes++
        d.TotalDistanceKm += r.TotalDistance
    }
    for _, d := range days {
        d.AverageDistance = round2(d.TotalDistanceKm / float64(d.Routes))
        d.TotalDistanceKm = round2(d.TotalDistanceKm)
        st.Daily = append(st.Daily, *d)
    }
    sort.Slice(st.Daily, func(i, j int) bool { return st.Daily[i].Date < st.Daily[j].Date })
    if st.Total > 0 {
        st.AverageDistanceKm = round2(st.TotalDistanceKm / float64(st.Total))
    }
    st.TotalDistanceKm = round2(st.TotalDistanceKm)
    st.TotalEstimatedHours = round2(st.TotalEstimatedHours)
    return st
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
