package algorithm

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

func newTestEstimator(t *testing.T) *economics.Estimator {
	t.Helper()
	e, err := economics.NewEstimator(economics.DefaultPolicy(), airport.DefaultTable())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	return e
}

func newTestOptimizer(t *testing.T, strategy Strategy) *RouteOptimizer {
	t.Helper()
	ro, err := NewRouteOptimizer(newTestEstimator(t), strategy, DefaultExhaustiveLimit)
	if err != nil {
		t.Fatalf("NewRouteOptimizer: %v", err)
	}
	return ro
}

// bruteForce 独立枚举全部排列，返回最短路径长度。
func bruteForce(t *testing.T, origin string, rest []string) float64 {
	t.Helper()
	table := airport.DefaultTable()
	best := math.MaxFloat64
	var permute func(k int)
	permute = func(k int) {
		if k == len(rest) {
			d, err := table.PathLength(append([]string{origin}, rest...))
			if err != nil {
				t.Fatalf("PathLength: %v", err)
			}
			best = min(best, d)
			return
		}
		for i := k; i < len(rest); i++ {
			rest[k], rest[i] = rest[i], rest[k]
			permute(k + 1)
			rest[k], rest[i] = rest[i], rest[k]
		}
	}
	permute(0)
	return best
}

func sortedCopy(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

func TestReorderPreservesStopsAndOrigin(t *testing.T) {
	ro := newTestOptimizer(t, StrategyExhaustive)
	inputs := [][]string{
		{"JFK"},
		{"JFK", "PHX", "DEN"},
		{"MIA", "SEA", "ORD", "ABQ"},
		{"PHX", "PHX", "JFK"},
	}
	for _, strategy := range []Strategy{StrategyExhaustive, StrategyNearestNeighbor, StrategyOriginDistance} {
		for _, rest := range inputs {
			got, err := ro.Reorder(context.Background(), "LAX", rest, strategy)
			if err != nil {
				t.Fatalf("%s %v: %v", strategy, rest, err)
			}
			if got.Path[0] != "LAX" {
				t.Errorf("%s %v: origin moved: %v", strategy, rest, got.Path)
			}
			if !slices.Equal(sortedCopy(got.Path[1:]), sortedCopy(rest)) {
				t.Errorf("%s %v: stops changed: %v", strategy, rest, got.Path)
			}
		}
	}
}

func TestExhaustiveIsOptimal(t *testing.T) {
	ro := newTestOptimizer(t, StrategyExhaustive)
	cases := [][]string{
		{"JFK", "PHX", "DEN"},
		{"MIA", "SEA", "ORD", "ABQ"},
		{"DFW", "MCI", "JFK", "SEA"},
	}
	for _, rest := range cases {
		exact, err := ro.Reorder(context.Background(), "LAX", rest, StrategyExhaustive)
		if err != nil {
			t.Fatalf("Reorder: %v", err)
		}
		want := bruteForce(t, "LAX", slices.Clone(rest))
		if math.Abs(exact.Distance-want) > 1e-6 {
			t.Errorf("%v: exhaustive %.4f, brute force %.4f", rest, exact.Distance, want)
		}
		for _, approx := range []Strategy{StrategyNearestNeighbor, StrategyOriginDistance} {
			got, _ := ro.Reorder(context.Background(), "LAX", rest, approx)
			if got.Distance < exact.Distance-1e-6 {
				t.Errorf("%v: %s beat exhaustive (%.4f < %.4f)", rest, approx, got.Distance, exact.Distance)
			}
		}
	}

	got, _ := ro.Reorder(context.Background(), "LAX", []string{"JFK", "DEN", "PHX"}, StrategyExhaustive)
	if !slices.Equal(got.Path, []string{"LAX", "PHX", "DEN", "JFK"}) {
		t.Errorf("unexpected exhaustive path %v", got.Path)
	}
}

func TestReorderIsDeterministic(t *testing.T) {
	ro := newTestOptimizer(t, StrategyExhaustive)
	a, _ := ro.Reorder(context.Background(), "DEN", []string{"SEA", "MIA", "JFK", "ORD"}, StrategyExhaustive)
	b, _ := ro.Reorder(context.Background(), "DEN", []string{"ORD", "JFK", "MIA", "SEA"}, StrategyExhaustive)
	if !slices.Equal(a.Path, b.Path) {
		t.Errorf("input order changed result: %v vs %v", a.Path, b.Path)
	}
}

func TestReorderLimits(t *testing.T) {
	ro := newTestOptimizer(t, StrategyExhaustive)
	five := []string{"JFK", "PHX", "DEN", "MIA", "SEA"}

	if _, err := ro.Reorder(context.Background(), "LAX", five, StrategyExhaustive); !errors.Is(err, xerrors.ErrTooManyWaypoints) {
		t.Errorf("expected ErrTooManyWaypoints, got %v", err)
	}
	if _, err := ro.Reorder(context.Background(), "LAX", five, StrategyNearestNeighbor); err != nil {
		t.Errorf("nearest neighbor should accept any size: %v", err)
	}
	if _, err := ro.Reorder(context.Background(), "LAX", []string{"JFK"}, Strategy("random")); !errors.Is(err, xerrors.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := ro.Reorder(context.Background(), "LAX", []string{"XXX"}, StrategyExhaustive); !errors.Is(err, xerrors.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := NewRouteOptimizer(newTestEstimator(t), StrategyExhaustive, MaxExhaustiveLimit+1); !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestReorderRoute(t *testing.T) {
	ro := newTestOptimizer(t, StrategyExhaustive)
	est := newTestEstimator(t)

	r, _ := route.FromPath(4, []string{"LAX", "JFK", "PHX", "DEN"}, 120)
	if err := est.Apply(&r); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := ro.ReorderRoute(context.Background(), r)
	if err != nil {
		t.Fatalf("ReorderRoute: %v", err)
	}
	if !slices.Equal(got.Path(), []string{"LAX", "PHX", "DEN", "JFK"}) {
		t.Errorf("unexpected path %v", got.Path())
	}
	if got.DistanceNM >= r.DistanceNM {
		t.Errorf("reordered distance %.2f should be shorter than %.2f", got.DistanceNM, r.DistanceNM)
	}
	want, _ := est.Estimate(got.Path(), got.Passengers)
	if !got.Economics.Equal(want) {
		t.Errorf("economics not recomputed: %+v vs %+v", got.Economics, want)
	}

	long, _ := route.FromPath(5, []string{"LAX", "JFK", "PHX", "DEN", "MIA", "SEA"}, 10)
	same, err := ro.ReorderRoute(context.Background(), long)
	if !errors.Is(err, xerrors.ErrTooManyWaypoints) {
		t.Errorf("expected ErrTooManyWaypoints, got %v", err)
	}
	if !same.Equal(long) {
		t.Errorf("route over the limit must be left untouched")
	}
}

func TestReorderRouteKeepsInvariants(t *testing.T) {
	est := newTestEstimator(t)
	capacity := est.Policy().Capacity
	paths := [][]string{
		{"LAX", "JFK", "PHX", "DEN"},
		{"LAX", "PHX", "JFK", "PHX"},
		{"LAX", "PHX", "LAX", "JFK"},
		{"SEA", "MIA", "ORD", "DEN", "MCI"},
	}
	for _, strategy := range []Strategy{StrategyExhaustive, StrategyNearestNeighbor, StrategyOriginDistance} {
		ro := newTestOptimizer(t, strategy)
		for i, path := range paths {
			r, _ := route.FromPath(i+1, path, 50)
			if err := est.Apply(&r); err != nil {
				t.Fatalf("Apply %v: %v", path, err)
			}
			if err := r.Validate(capacity); err != nil {
				t.Fatalf("input %v invalid: %v", path, err)
			}

			got, err := ro.ReorderRoute(context.Background(), r)
			if err != nil && !got.Equal(r) {
				t.Errorf("%s %v: failed reorder must return the input route, got %v", strategy, path, got.Path())
			}
			if err := got.Validate(capacity); err != nil {
				t.Errorf("%s %v: reordered route %v invalid: %v", strategy, path, got.Path(), err)
			}
		}
	}

	ro := newTestOptimizer(t, StrategyExhaustive)
	revisit, _ := route.FromPath(9, []string{"LAX", "PHX", "JFK", "PHX"}, 50)
	if err := est.Apply(&revisit); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := ro.ReorderRoute(context.Background(), revisit); !errors.Is(err, xerrors.ErrInvalidRoute) {
		t.Errorf("expected ErrInvalidRoute for adjacent revisit, got %v", err)
	}
}
