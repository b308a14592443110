package database

import (
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/algorithm"
	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

func TestRouteRecordRoundTrip(t *testing.T) {
	est, err := economics.NewEstimator(economics.DefaultPolicy(), airport.DefaultTable())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	r, _ := route.FromPath(12, []string{"SEA", "DEN", "ORD", "MIA"}, 140)
	if err := est.Apply(&r); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	r.Revised = true

	rec := RouteRecordOf("run-1", r)
	if rec.Path != "SEA-DEN-ORD-MIA" || rec.RunID != "run-1" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.NetProfitCents != r.NetProfit.Cents() {
		t.Errorf("net profit cents %d, want %d", rec.NetProfitCents, r.NetProfit.Cents())
	}
	back, err := rec.Route()
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !back.Equal(r) {
		t.Errorf("round trip changed route:\n got %+v\nwant %+v", back, r)
	}
}

func TestRouteRecordBadPath(t *testing.T) {
	if _, err := (RouteRecord{Flight: 1, Path: "LAX"}).Route(); !errors.Is(err, xerrors.ErrInvalidRoute) {
		t.Errorf("expected invalid route, got %v", err)
	}
}

func TestRunRecordOf(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &pipeline.Result{
		RunID:      "run-7",
		Input:      "in.txt",
		Parsed:         5,
		SkippedLines:   2,
		SkippedRecords: 1,
		Before:         pipeline.Totals{Routes: 4, Passengers: 120, PassengerMiles: 3000, NetProfit: money.NewFromCents(-900)},
		After:          pipeline.Totals{Routes: 2, Passengers: 120, PassengerMiles: 2500.5, NetProfit: money.NewFromCents(-250)},
		Report:         algorithm.MergeReport{Passes: 3, Converged: true, Merges: make([]algorithm.Merge, 2)},
		StartedAt:      start,
		FinishedAt:     start.Add(time.Second),
	}
	rec := RunRecordOf(res)
	if rec.ID != "run-7" || rec.Merges != 2 || rec.Passes != 3 || !rec.Converged {
		t.Errorf("unexpected run record %+v", rec)
	}
	if rec.SkippedLines != 2 || rec.SkippedRecords != 1 {
		t.Errorf("skipped lines=%d records=%d", rec.SkippedLines, rec.SkippedRecords)
	}
	if rec.InputRoutes != 4 || rec.InputPassengers != 120 || rec.InputPassengerMiles != 3000 || rec.InputNetProfit != "-9.00" {
		t.Errorf("unexpected input totals %+v", rec)
	}
	if rec.Routes != 2 || rec.Passengers != 120 || rec.PassengerMiles != 2500.5 || rec.NetProfit != "-2.50" {
		t.Errorf("unexpected output totals %+v", rec)
	}
	if (RunRecord{}).TableName() != "flight_runs" || (RouteRecord{}).TableName() != "flight_routes" {
		t.Errorf("table names changed")
	}
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", ""} {
		d, err := Dialector(config.DatabaseConfig{Driver: driver, DSN: "dsn"})
		if err != nil || d == nil {
			t.Errorf("driver %q: %v", driver, err)
		}
	}
	if _, err := NewDB(config.DatabaseConfig{Driver: "sqlite"}, nil); !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}
