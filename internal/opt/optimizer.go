package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
)

const (
	DefaultAverageSpeedKph = 40.0
	DefaultDwellHours      = 0.25
)

// Config holds the optimizer defaults. Seed 0 draws a fresh seed per call.
// TwoOptPasses > 0 polishes every tour with 2-opt; the default leaves the
// strategy output untouched.
type Config struct {
	AverageSpeedKph float64       `yaml:"averageSpeedKph" json:"averageSpeedKph"`
	DwellHours      float64       `yaml:"dwellHours" json:"dwellHours"`
	Seed            int64         `yaml:"seed" json:"seed"`
	TwoOptPasses    int           `yaml:"twoOptPasses" json:"twoOptPasses"`
	Genetic         GeneticParams `yaml:"genetic" json:"genetic"`
}

func DefaultConfig() Config {
	return Config{
		AverageSpeedKph: DefaultAverageSpeedKph,
		DwellHours:      DefaultDwellHours,
		Genetic:         DefaultGeneticParams(),
	}
}

// Optimizer sequences destinations with one of the registered strategies and
// turns the resulting tour into a planned Route.
type Optimizer struct {
	cfg  Config
	dist *DistanceModel
	runs *RunLog
	log  logrus.FieldLogger
	now  func() time.Time
}

type Option func(*Optimizer)

// WithClock overrides the clock used for route IDs and timestamps.
func WithClock(now func() time.Time) Option { return func(o *Optimizer) { o.now = now } }

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option { return func(o *Optimizer) { o.log = l } }

// WithDistanceModel shares a distance cache between optimizers.
func WithDistanceModel(m *DistanceModel) Option { return func(o *Optimizer) { o.dist = m } }

func NewOptimizer(cfg Config, opts ...Option) *Optimizer {
	if cfg.AverageSpeedKph <= 0 {
		cfg.AverageSpeedKph = DefaultAverageSpeedKph
	}
	if cfg.DwellHours < 0 {
		cfg.DwellHours = DefaultDwellHours
	}
	if cfg.Genetic == (GeneticParams{}) {
		cfg.Genetic = DefaultGeneticParams()
	}
	cfg.Genetic = cfg.Genetic.normalized()
	o := &Optimizer{
		cfg:  cfg,
		dist: NewDistanceModel(),
		runs: NewRunLog(),
		log:  logrus.StandardLogger(),
		now:  time.Now,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

func (o *Optimizer) seed() int64 {
	if o.cfg.Seed != 0 {
		return o.cfg.Seed
	}
	return time.Now().UnixNano()
}

func (o *Optimizer) Config() Config            { return o.cfg }
func (o *Optimizer) Distances() *DistanceModel { return o.dist }
func (o *Optimizer) Runs() *RunLog             { return o.runs }

// strategyFor resolves an algorithm label to a fresh strategy. The genetic
// search gets its own random source so concurrent calls never share one.
func (o *Optimizer) strategyFor(algo Algorithm) Strategy {
	switch algo {
	case AlgorithmNearestNeighbor:
		return NearestNeighbor{}
	case AlgorithmWeightedGreedy:
		return WeightedGreedy{}
	default:
		return &GeneticSearch{
			Params: o.cfg.Genetic,
			Rand:   rand.New(rand.NewSource(o.seed())),
		}
	}
}

// OptimizeRoute sequences destinations starting at origin. A nil vehicle
// attaches the unassigned placeholder. Unknown algorithm labels fall back to
// the genetic search; the label actually used is stored on the route.
func (o *Optimizer) OptimizeRoute(ctx context.Context, origin model.Location, destinations []model.Location, vehicle *model.Vehicle, algorithm string) (model.Route, error) {
	algo := ParseAlgorithm(algorithm)
	if err := ValidateInput(origin, destinations, vehicle); err != nil {
		metrics.Optimizations.WithLabelValues(string(algo), "invalid").Inc()
		return model.Route{}, err
	}
	strategy := o.strategyFor(algo)

	start := time.Now()
	points := make([]model.Location, 0, len(destinations)+1)
	points = append(points, origin)
	points = append(points, destinations...)
	mx := o.dist.BuildMatrix(points)
	metrics.DistanceCacheEntries.Set(float64(o.dist.Len()))

	tour, err := strategy.Sequence(ctx, mx)
	elapsed := time.Since(start)
	metrics.OptimizeDuration.WithLabelValues(string(algo)).Observe(elapsed.Seconds())
	if err != nil {
		metrics.Optimizations.WithLabelValues(string(algo), "error").Inc()
		return model.Route{}, fmt.Errorf("sequence %d destinations with %s: %w", len(destinations), algo, err)
	}
	if o.cfg.TwoOptPasses > 0 && len(tour.Order) > 3 {
		tour.Order = ImproveTwoOpt(mx, tour.Order, o.cfg.TwoOptPasses)
		tour.Distance = mx.PathLength(tour.Order)
	}

	stops := make([]model.Location, len(tour.Order))
	for i, idx := range tour.Order {
		stops[i] = points[idx]
	}
	v := model.UnassignedVehicle()
	if vehicle != nil {
		v = *vehicle
	}
	now := o.now()
	route := model.Route{
		ID:            NewRouteID(now),
		Vehicle:       v,
		Stops:         stops,
		TotalDistance: round2(tour.Distance),
		EstimatedTime: round2(o.EstimateHours(tour.Distance, len(destinations))),
		Status:        model.RoutePlanned,
		Algorithm:     string(algo),
		CreatedAt:     now,
	}

	o.runs.Record(now.Format("2006-01-02"), algo, tour.Stats)
	metrics.Optimizations.WithLabelValues(string(algo), "ok").Inc()
	metrics.RouteDistance.Observe(route.TotalDistance)
	o.log.WithFields(logrus.Fields{
		"route":     route.ID,
		"algorithm": algo,
		"stops":     len(stops),
		"distance":  route.TotalDistance,
		"duration":  elapsed,
	}).Info("route optimized")
	return route, nil
}

// EstimateHours converts a distance and a destination count into travel
// hours at the configured speed plus a fixed dwell per destination.
func (o *Optimizer) EstimateHours(distanceKm float64, destinations int) float64 {
	return distanceKm/o.cfg.AverageSpeedKph + float64(destinations)*o.cfg.DwellHours
}

// NewRouteID derives an identifier from t with a random suffix so that
// routes planned within the same second stay distinct.
func NewRouteID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ROUTE-" + t.Format("20060102150405") + "-" + suffix
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
