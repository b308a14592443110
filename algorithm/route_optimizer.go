// Package algorithm 提供航线经停排序与航线合并算法。
package algorithm

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/geo"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// Strategy 经停排序策略。
type Strategy string

const (
	// StrategyExhaustive 穷举全部排列，结果最优，作为基准实现。
	StrategyExhaustive Strategy = "exhaustive"
	// StrategyNearestNeighbor 贪心最近邻，近似解。
	StrategyNearestNeighbor Strategy = "nearest-neighbor"
	// StrategyOriginDistance 按与起点的距离排序，近似解。
	StrategyOriginDistance Strategy = "origin-distance"
)

const (
	// DefaultExhaustiveLimit 穷举排序默认允许的航点数（不含起点）。
	DefaultExhaustiveLimit = 4
	// MaxExhaustiveLimit 8! = 40320 种排列，再大不允许配置。
	MaxExhaustiveLimit = 8

	distanceEpsilon = 1e-9
)

// ParseStrategy 解析策略名。
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyExhaustive, StrategyNearestNeighbor, StrategyOriginDistance:
		return st, nil
	default:
		return "", xerrors.Errorf(xerrors.ErrUnknownStrategy, "%q", s)
	}
}

// Approximate 报告策略是否只给出近似解。
func (s Strategy) Approximate() bool {
	return s != StrategyExhaustive
}

// Ordering 排序结果，Path 以起点开头。
type Ordering struct {
	Path     []string
	Distance float64
	Strategy Strategy
}

// RouteOptimizer 在起点固定的前提下重排其余航点。
type RouteOptimizer struct {
	estimator       *economics.Estimator
	table           *airport.Table
	strategy        Strategy
	exhaustiveLimit int
}

// NewRouteOptimizer 创建排序器。strategy 为 ReorderRoute 使用的默认策略。
func NewRouteOptimizer(estimator *economics.Estimator, strategy Strategy, exhaustiveLimit int) (*RouteOptimizer, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if exhaustiveLimit < 1 || exhaustiveLimit > MaxExhaustiveLimit {
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "exhaustive limit must be in [1, %d], got %d", MaxExhaustiveLimit, exhaustiveLimit)
	}
	return &RouteOptimizer{
		estimator:       estimator,
		table:           estimator.Table(),
		strategy:        strategy,
		exhaustiveLimit: exhaustiveLimit,
	}, nil
}

// Strategy 返回默认策略。
func (ro *RouteOptimizer) Strategy() Strategy {
	return ro.strategy
}

// Reorder 返回以 origin 开头、rest 的一个排列组成的路径。rest 的多重集合保持不变。
func (ro *RouteOptimizer) Reorder(ctx context.Context, origin string, rest []string, strategy Strategy) (Ordering, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return Ordering{}, err
	}
	if len(rest) == 0 {
		return Ordering{Path: []string{origin}, Strategy: strategy}, nil
	}
	if strategy == StrategyExhaustive && len(rest) > ro.exhaustiveLimit {
		return Ordering{}, xerrors.Errorf(xerrors.ErrTooManyWaypoints, "%d waypoints after origin, exhaustive limit is %d", len(rest), ro.exhaustiveLimit)
	}

	start, err := ro.table.Point(origin)
	if err != nil {
		return Ordering{}, err
	}
	points, err := ro.table.Points(rest)
	if err != nil {
		return Ordering{}, err
	}
	nodes := make([]node, len(rest))
	for i := range rest {
		nodes[i] = node{code: rest[i], point: points[i]}
	}
	// 按代码排序，保证平局时结果与输入顺序无关
	slices.SortFunc(nodes, func(a, b node) int { return cmp.Compare(a.code, b.code) })

	var order []node
	switch strategy {
	case StrategyExhaustive:
		order, err = exhaustive(ctx, start, nodes)
		if err != nil {
			return Ordering{}, err
		}
	case StrategyNearestNeighbor:
		order = nearestNeighbor(start, nodes)
	case StrategyOriginDistance:
		order = byOriginDistance(start, nodes)
	}

	path := make([]string, 0, len(order)+1)
	path = append(path, origin)
	for _, n := range order {
		path = append(path, n.code)
	}
	return Ordering{Path: path, Distance: tourLength(start, order), Strategy: strategy}, nil
}

// ReorderRoute 按默认策略重排航线并从零重算经济指标。
// 航点超出穷举上限时返回 ErrTooManyWaypoints 与原航线；
// 重排结果不满足航线不变量（如重复访问的机场变为相邻）时返回 ErrInvalidRoute 与原航线。
func (ro *RouteOptimizer) ReorderRoute(ctx context.Context, r route.Route) (route.Route, error) {
	path := r.Path()
	ordering, err := ro.Reorder(ctx, path[0], path[1:], ro.strategy)
	if err != nil {
		return r, xerrors.Wrap(err, xerrors.ErrInvalidArg, "reorder flight").WithContext("flight", r.Flight)
	}

	next, err := route.FromPath(r.Flight, ordering.Path, r.Passengers)
	if err != nil {
		return r, err
	}
	next.Revised = r.Revised
	if err := ro.estimator.Apply(&next); err != nil {
		return r, err
	}
	if err := next.Validate(ro.estimator.Policy().Capacity); err != nil {
		return r, xerrors.Wrap(err, xerrors.ErrInvalidArg, "reorder flight").WithContext("path", ordering.Path)
	}
	return next, nil
}

type node struct {
	code  string
	point geo.Point
}

func tourLength(start geo.Point, order []node) float64 {
	total := 0.0
	current := start
	for _, n := range order {
		total += geo.Distance(current, n.point)
		current = n.point
	}
	return total
}

// exhaustive 按字典序枚举排列，取第一个最短路径。
func exhaustive(ctx context.Context, start geo.Point, sorted []node) ([]node, error) {
	perm := slices.Clone(sorted)
	best := slices.Clone(perm)
	bestDist := tourLength(start, perm)

	for count := 1; nextPermutation(perm); count++ {
		if count%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if d := tourLength(start, perm); d < bestDist-distanceEpsilon {
			bestDist = d
			copy(best, perm)
		}
	}
	return best, nil
}

// nextPermutation 原地生成下一个字典序排列，已是最后一个时返回 false。重复元素只枚举一次。
func nextPermutation(p []node) bool {
	i := len(p) - 2
	for i >= 0 && p[i].code >= p[i+1].code {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j].code <= p[i].code {
		j--
	}
	p[i], p[j] = p[j], p[i]
	slices.Reverse(p[i+1:])
	return true
}

func nearestNeighbor(start geo.Point, sorted []node) []node {
	visited := make([]bool, len(sorted))
	order := make([]node, 0, len(sorted))
	current := start

	for len(order) < len(sorted) {
		nearestIdx, _ := findNearest(current, sorted, visited)
		visited[nearestIdx] = true
		order = append(order, sorted[nearestIdx])
		current = sorted[nearestIdx].point
	}
	return order
}

func findNearest(current geo.Point, nodes []node, visited []bool) (int, float64) {
	minDist := math.MaxFloat64
	bestIdx := -1

	for idx, n := range nodes {
		if visited[idx] {
			continue
		}
		if dist := geo.Distance(current, n.point); dist < minDist-distanceEpsilon {
			minDist = dist
			bestIdx = idx
		}
	}
	return bestIdx, minDist
}

func byOriginDistance(start geo.Point, sorted []node) []node {
	order := slices.Clone(sorted)
	slices.SortStableFunc(order, func(a, b node) int {
		return cmp.Compare(geo.Distance(start, a.point), geo.Distance(start, b.point))
	})
	return order
}
