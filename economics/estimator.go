package economics

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// Estimator 基于机场表与策略计算航线经济指标。随机经停模式下由种子决定结果序列。
type Estimator struct {
	policy Policy
	table  *airport.Table

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEstimator 创建计算器。
func NewEstimator(policy Policy, table *airport.Table) (*Estimator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, xerrors.Errorf(xerrors.ErrInsufficientData, "airport table is nil")
	}
	return &Estimator{
		policy: policy,
		table:  table,
		rng:    rand.New(rand.NewPCG(policy.Seed, policy.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Policy 返回当前策略。
func (e *Estimator) Policy() Policy {
	return e.policy
}

// Table 返回机场表。
func (e *Estimator) Table() *airport.Table {
	return e.table
}

// Estimate 沿航点序列计算完整经济指标。
func (e *Estimator) Estimate(path []string, passengers int) (route.Economics, error) {
	if len(path) < 2 {
		return route.Economics{}, xerrors.Errorf(xerrors.ErrInvalidRoute, "path needs at least 2 airports, got %d", len(path))
	}
	distance, err := e.table.PathLength(path)
	if err != nil {
		return route.Economics{}, err
	}
	return e.EstimateDistance(distance, len(path)-2, passengers), nil
}

// EstimateDistance 不依赖机场表的核心计算。
// 维护成本 = 维护费率 × 经停时长 + 运营成本；净利润 = 收入 − (运营成本 + 维护成本)。
func (e *Estimator) EstimateDistance(distanceNM float64, stops, passengers int) route.Economics {
	hours := distanceNM / e.policy.CruiseSpeedKnots
	operating := money.New(e.policy.OperatingCostPerHour).Mul(hours).Round()
	layover := e.layoverHours(stops)
	maintenance := money.New(e.policy.MaintenanceCostPerHour).Mul(layover).Add(operating).Round()
	revenue := money.New(e.policy.TicketPrice).MulInt(int64(passengers)).Round()

	return route.Economics{
		DistanceNM:      distanceNM,
		FlightTimeHours: hours,
		OperatingCost:   operating,
		LayoverHours:    layover,
		MaintenanceCost: maintenance,
		Revenue:         revenue,
		NetProfit:       revenue.Sub(operating.Add(maintenance)),
		PassengerMiles:  float64(passengers) * distanceNM,
	}
}

// Apply 从零重算航线的经济指标。
func (e *Estimator) Apply(r *route.Route) error {
	eco, err := e.Estimate(r.Path(), r.Passengers)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInsufficient, "estimate flight").WithContext("flight", r.Flight)
	}
	r.Economics = eco
	return nil
}

func (e *Estimator) layoverHours(stops int) float64 {
	if stops <= 0 {
		return 0
	}
	if e.policy.LayoverMode == LayoverFixed {
		return float64(stops) * e.policy.LayoverHoursPerStop
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0.0
	span := e.policy.LayoverMaxHours - e.policy.LayoverMinHours
	for range stops {
		total += e.policy.LayoverMinHours + e.rng.Float64()*span
	}
	// 保留两位小数，便于文本记录往返
	return math.Round(total*100) / 100
}
