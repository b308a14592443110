package algorithm

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/geo"
	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/utils"
	"github.com/wyfcoding/flightroute/xerrors"
)

const (
	// DefaultCandidates 每轮保留的最近候选航线数。
	DefaultCandidates = 10
	// DefaultMaxPasses 合并最多执行的轮数。
	DefaultMaxPasses = 100
	// DefaultMaxWaypoints 合并后航线允许的最多航点数。
	DefaultMaxWaypoints = 8

	proximityEpsilon = 1e-6
)

// RejectReason 候选航线被拒绝的原因。
type RejectReason string

const (
	RejectCapacity      RejectReason = "capacity"
	RejectMaxWaypoints  RejectReason = "max_waypoints"
	RejectRule          RejectReason = "rule"
	RejectNotImproving  RejectReason = "not_improving"
	RejectInsufficient  RejectReason = "insufficient_data"
	RejectRuleEvalError RejectReason = "rule_error"
)

// Eligibility 合并候选的附加过滤条件。
type Eligibility interface {
	Eligible(ctx context.Context, candidate route.Route) (bool, error)
}

// MergeOptions 合并参数。
type MergeOptions struct {
	Capacity     int
	Candidates   int
	MaxPasses    int
	MaxWaypoints int
	Rule         Eligibility // 可为空
}

// DefaultMergeOptions 返回默认参数。
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		Capacity:     route.DefaultCapacity,
		Candidates:   DefaultCandidates,
		MaxPasses:    DefaultMaxPasses,
		MaxWaypoints: DefaultMaxWaypoints,
	}
}

// Merge 一次已提交的合并。
type Merge struct {
	Pass         int
	Base         int // 被移除的航班号
	Candidate    int // 保留的航班号
	Path         []string
	Passengers   int
	Proximity    float64
	BaseProfit   money.Money
	MergedProfit money.Money
}

// Rejection 一次被拒绝的合并尝试。
type Rejection struct {
	Pass      int
	Base      int
	Candidate int
	Reason    RejectReason
	Detail    string
}

// Tie 候选中距离相同的一组航班，按航班号决出先后。
type Tie struct {
	Pass      int
	Base      int
	Flights   []int
	Proximity float64
}

// MergeReport 合并结果与过程记录。平局与不可行的合并只记录，不作为错误返回。
type MergeReport struct {
	Routes     []route.Route
	Passes     int
	Converged  bool // 没有可改进的合并，而非轮数耗尽
	Merges     []Merge
	Rejections []Rejection
	Ties       []Tie
}

// RejectionsByReason 按原因汇总拒绝次数。
func (r MergeReport) RejectionsByReason() map[RejectReason]int {
	counts := make(map[RejectReason]int)
	for _, rej := range r.Rejections {
		counts[rej.Reason]++
	}
	return counts
}

// Candidate 按接近度排序后的候选航线。
type Candidate struct {
	Index     int
	Flight    int
	Proximity float64 // 平均最近航点距离，越小越近
}

// Score 接近度得分，越大越近。
func (c Candidate) Score() float64 {
	return 1 / (c.Proximity + proximityEpsilon)
}

// RouteMerger 贪心局部搜索：把利润最低的航线并入附近的航线。
type RouteMerger struct {
	estimator *economics.Estimator
	opts      MergeOptions
}

// NewRouteMerger 创建合并器。
func NewRouteMerger(estimator *economics.Estimator, opts MergeOptions) (*RouteMerger, error) {
	switch {
	case opts.Capacity <= 0:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "capacity must be positive, got %d", opts.Capacity)
	case opts.Candidates <= 0:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "candidates must be positive, got %d", opts.Candidates)
	case opts.MaxPasses <= 0:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "max passes must be positive, got %d", opts.MaxPasses)
	case opts.MaxWaypoints < 2:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "max waypoints must be at least 2, got %d", opts.MaxWaypoints)
	}
	return &RouteMerger{estimator: estimator, opts: opts}, nil
}

// Proximity 对 base 的每个航点取到 other 最近航点的距离，返回平均值。
func (m *RouteMerger) Proximity(base, other route.Route) (float64, error) {
	table := m.estimator.Table()
	bp, err := table.Points(base.Path())
	if err != nil {
		return 0, err
	}
	op, err := table.Points(other.Path())
	if err != nil {
		return 0, err
	}
	return meanNearest(bp, op), nil
}

func meanNearest(from, to []geo.Point) float64 {
	total := 0.0
	for _, p := range from {
		nearest := math.MaxFloat64
		for _, q := range to {
			nearest = min(nearest, geo.Distance(p, q))
		}
		total += nearest
	}
	return total / float64(len(from))
}

// MergePath 候选航点在前、基准航点在后，去重并保持顺序。
func MergePath(candidate, base route.Route) []string {
	return utils.Unique(append(candidate.Path(), base.Path()...))
}

type entry struct {
	id    int
	route route.Route
}

// Optimize 反复选取利润最低且未穷尽的航线作为基准，尝试与最近的候选合并。
// 合并仅在合并后净利润严格大于基准航线合并前利润、且总乘客数不超过容量时提交。
func (m *RouteMerger) Optimize(ctx context.Context, routes []route.Route) (MergeReport, error) {
	active := make([]entry, len(routes))
	for i, r := range routes {
		active[i] = entry{id: i, route: r.Clone()}
	}
	nextID := len(routes)
	exhausted := make(map[int]bool)
	report := MergeReport{}

	for pass := 1; pass <= m.opts.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		baseIdx := m.pickBase(active, exhausted)
		if baseIdx < 0 {
			report.Converged = true
			break
		}
		report.Passes = pass
		base := active[baseIdx]

		merged, candIdx, proximity, ok := m.tryBase(ctx, pass, active, baseIdx, &report)
		if !ok {
			exhausted[base.id] = true
			continue
		}

		cand := active[candIdx]
		report.Merges = append(report.Merges, Merge{
			Pass:         pass,
			Base:         base.route.Flight,
			Candidate:    cand.route.Flight,
			Path:         merged.Path(),
			Passengers:   merged.Passengers,
			Proximity:    proximity,
			BaseProfit:   base.route.NetProfit,
			MergedProfit: merged.NetProfit,
		})

		active[candIdx] = entry{id: nextID, route: merged}
		nextID++
		active = slices.Delete(active, baseIdx, baseIdx+1)
		clear(exhausted)
	}

	if !report.Converged && m.pickBase(active, exhausted) < 0 {
		report.Converged = true
	}
	report.Routes = make([]route.Route, len(active))
	for i, e := range active {
		report.Routes[i] = e.route
	}
	return report, nil
}

// pickBase 按净利润升序（航班号次之）返回第一个未穷尽的航线下标。
func (m *RouteMerger) pickBase(active []entry, exhausted map[int]bool) int {
	if len(active) < 2 {
		return -1
	}
	order := make([]int, len(active))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := active[a].route.NetProfit.Cmp(active[b].route.NetProfit); c != 0 {
			return c
		}
		return cmp.Compare(active[a].route.Flight, active[b].route.Flight)
	})
	for _, idx := range order {
		if !exhausted[active[idx].id] {
			return idx
		}
	}
	return -1
}

// RankCandidates 返回 base 之外最近的若干候选，以及其中距离相同的平局组。
func (m *RouteMerger) RankCandidates(base route.Route, others []route.Route) ([]Candidate, [][]Candidate, []Rejection) {
	var (
		cands   []Candidate
		skipped []Rejection
	)
	for i, other := range others {
		p, err := m.Proximity(base, other)
		if err != nil {
			skipped = append(skipped, Rejection{Base: base.Flight, Candidate: other.Flight, Reason: RejectInsufficient, Detail: err.Error()})
			continue
		}
		cands = append(cands, Candidate{Index: i, Flight: other.Flight, Proximity: p})
	}
	slices.SortFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(a.Proximity, b.Proximity); c != 0 {
			return c
		}
		return cmp.Compare(a.Flight, b.Flight)
	})
	if len(cands) > m.opts.Candidates {
		cands = cands[:m.opts.Candidates]
	}

	var ties [][]Candidate
	for start := 0; start < len(cands); {
		end := start + 1
		for end < len(cands) && cands[end].Proximity == cands[start].Proximity {
			end++
		}
		if end-start > 1 {
			ties = append(ties, slices.Clone(cands[start:end]))
		}
		start = end
	}
	return cands, ties, skipped
}

// tryBase 依次尝试候选，返回第一个可提交的合并结果及候选在 active 中的下标。
func (m *RouteMerger) tryBase(ctx context.Context, pass int, active []entry, baseIdx int, report *MergeReport) (route.Route, int, float64, bool) {
	base := active[baseIdx].route
	others := make([]route.Route, 0, len(active)-1)
	index := make([]int, 0, len(active)-1)
	for i, e := range active {
		if i != baseIdx {
			others = append(others, e.route)
			index = append(index, i)
		}
	}

	cands, ties, skipped := m.RankCandidates(base, others)
	for _, rej := range skipped {
		rej.Pass = pass
		report.Rejections = append(report.Rejections, rej)
	}
	for _, group := range ties {
		tie := Tie{Pass: pass, Base: base.Flight, Proximity: group[0].Proximity}
		for _, c := range group {
			tie.Flights = append(tie.Flights, c.Flight)
		}
		report.Ties = append(report.Ties, tie)
	}

	reject := func(cand route.Route, reason RejectReason, detail string) {
		report.Rejections = append(report.Rejections, Rejection{
			Pass: pass, Base: base.Flight, Candidate: cand.Flight, Reason: reason, Detail: detail,
		})
	}

	for _, c := range cands {
		cand := others[c.Index]

		passengers := base.Passengers + cand.Passengers
		if passengers > m.opts.Capacity {
			reject(cand, RejectCapacity, fmt.Sprintf("%d passengers exceeds capacity %d", passengers, m.opts.Capacity))
			continue
		}

		path := MergePath(cand, base)
		if len(path) > m.opts.MaxWaypoints {
			reject(cand, RejectMaxWaypoints, fmt.Sprintf("%d waypoints exceeds %d", len(path), m.opts.MaxWaypoints))
			continue
		}

		if m.opts.Rule != nil {
			ok, err := m.opts.Rule.Eligible(ctx, cand)
			if err != nil {
				reject(cand, RejectRuleEvalError, err.Error())
				continue
			}
			if !ok {
				reject(cand, RejectRule, "eligibility rule returned false")
				continue
			}
		}

		merged, err := route.FromPath(cand.Flight, path, passengers)
		if err == nil {
			err = m.estimator.Apply(&merged)
		}
		if err != nil {
			reject(cand, RejectInsufficient, err.Error())
			continue
		}
		merged.Revised = true

		if !merged.NetProfit.GreaterThan(base.NetProfit) {
			reject(cand, RejectNotImproving, fmt.Sprintf("merged profit %s does not exceed base profit %s", merged.NetProfit, base.NetProfit))
			continue
		}
		return merged, index[c.Index], c.Proximity, true
	}
	return route.Route{}, -1, 0, false
}
