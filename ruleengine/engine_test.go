package ruleengine

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

func TestEligible(t *testing.T) {
	candidate := route.Route{
		Flight: 12, Origin: "LAX", Stops: []string{"PHX"}, Destination: "JFK", Passengers: 80,
		Economics: route.Economics{DistanceNM: 2179.8, NetProfit: money.New(-1500)},
	}
	tests := []struct {
		expression string
		want       bool
	}{
		{"", true},
		{"Passengers >= 50", true},
		{"Passengers >= 100", false},
		{"Stops < 2 && DistanceNM > 2000", true},
		{"NetProfit > 0", false},
		{`Origin == "LAX" && Flight != 7`, true},
	}
	for _, tt := range tests {
		e, err := NewEngine(tt.expression)
		if err != nil {
			t.Fatalf("NewEngine(%q): %v", tt.expression, err)
		}
		got, err := e.Eligible(context.Background(), candidate)
		if err != nil {
			t.Fatalf("Eligible(%q): %v", tt.expression, err)
		}
		if got != tt.want {
			t.Errorf("%q = %v, want %v", tt.expression, got, tt.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, bad := range []string{"Passengers +", "Seats > 3", "Passengers + 1"} {
		if _, err := NewEngine(bad); !errors.Is(err, xerrors.ErrInvalidConfig) {
			t.Errorf("%q: expected ErrInvalidConfig, got %v", bad, err)
		}
	}

	e, _ := NewEngine("Passengers > 1")
	if err := e.SetExpression("("); err == nil {
		t.Fatalf("expected compile error")
	}
	if e.Expression() != "Passengers > 1" {
		t.Errorf("failed update must keep the previous rule, got %q", e.Expression())
	}
}
