package route

import (
	"errors"
	"slices"
	"testing"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/xerrors"
)

func TestFromPath(t *testing.T) {
	r, err := FromPath(7, []string{"LAX", "PHX", "DEN", "JFK"}, 120)
	if err != nil {
		t.Fatalf("FromPath: %v", err)
	}
	if r.Origin != "LAX" || r.Destination != "JFK" || r.StopCount() != 2 {
		t.Errorf("unexpected route %+v", r)
	}
	if s, ok := r.Stop(2); !ok || s != "DEN" {
		t.Errorf("Stop(2) = %q, %v", s, ok)
	}
	if _, ok := r.Stop(3); ok {
		t.Errorf("Stop(3) should be absent")
	}
	if !slices.Equal(r.Path(), []string{"LAX", "PHX", "DEN", "JFK"}) {
		t.Errorf("Path() = %v", r.Path())
	}

	direct, _ := FromPath(1, []string{"LAX", "JFK"}, 10)
	if direct.Stops != nil {
		t.Errorf("direct route should have nil stops")
	}
	if _, err := FromPath(2, []string{"LAX"}, 10); !errors.Is(err, xerrors.ErrInvalidRoute) {
		t.Errorf("expected ErrInvalidRoute, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		want  error
	}{
		{"ok", Route{Flight: 1, Origin: "LAX", Destination: "JFK", Passengers: 204}, nil},
		{"over capacity", Route{Flight: 2, Origin: "LAX", Destination: "JFK", Passengers: 205}, xerrors.ErrCapacityExceeded},
		{"negative passengers", Route{Flight: 3, Origin: "LAX", Destination: "JFK", Passengers: -1}, xerrors.ErrCapacityExceeded},
		{"same endpoints", Route{Flight: 4, Origin: "LAX", Destination: "LAX"}, xerrors.ErrInvalidRoute},
		{"repeated stop", Route{Flight: 5, Origin: "LAX", Stops: []string{"LAX"}, Destination: "JFK"}, xerrors.ErrInvalidRoute},
		{"empty stop", Route{Flight: 6, Origin: "LAX", Stops: []string{""}, Destination: "JFK"}, xerrors.ErrInvalidRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.route.Validate(DefaultCapacity)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEqualAndClone(t *testing.T) {
	a := Route{
		Flight: 3, Origin: "SEA", Stops: []string{"DEN"}, Destination: "MIA", Passengers: 50,
		Economics: Economics{DistanceNM: 100, NetProfit: money.New(12.5)},
	}
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatalf("clone should be equal")
	}
	b.Stops[0] = "ORD"
	if a.Stops[0] != "DEN" {
		t.Errorf("clone shares stops with original")
	}
	if a.Equal(b) {
		t.Errorf("routes with different stops compare equal")
	}
	c := a.Clone()
	c.NetProfit = money.NewFromCents(1250)
	if !a.Equal(c) {
		t.Errorf("money should compare by value")
	}
}
