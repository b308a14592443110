package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLifecycleStopsInReverse(t *testing.T) {
	l := NewLifecycle(nil)
	var order []string
	boom := errors.New("boom")
	l.Append(Hook{Name: "a", OnStop: func(context.Context) error { order = append(order, "a"); return nil }})
	l.Append(Hook{Name: "b", OnStop: func(context.Context) error { order = append(order, "b"); return boom }})
	l.Append(Hook{Name: "noop"})
	l.Append(Hook{Name: "c", OnStop: func(context.Context) error { order = append(order, "c"); return nil }})

	if err := l.Stop(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if !slices.Equal(order, []string{"c", "b", "a"}) {
		t.Errorf("stop order %v", order)
	}
	if err := l.Stop(context.Background()); err != nil || len(order) != 3 {
		t.Errorf("second stop must be a no-op: %v %v", err, order)
	}
}

func TestNewWithDefaults(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, Options{Module: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	if a.Table.Len() != 10 {
		t.Errorf("expected the built-in airport table, got %d airports", a.Table.Len())
	}
	if len(a.Sinks) != 0 {
		t.Errorf("no sinks expected by default")
	}
	if a.Config().Policy.Capacity != 204 {
		t.Errorf("unexpected capacity %d", a.Config().Policy.Capacity)
	}
	if _, err := a.Pipeline(""); err != nil {
		t.Errorf("Pipeline: %v", err)
	}
	if _, err := a.Optimizer("nearest-neighbor"); err != nil {
		t.Errorf("Optimizer: %v", err)
	}
	if _, err := a.Optimizer("sideways"); err == nil {
		t.Errorf("expected unknown strategy error")
	}
}

func TestNewWithAirportsFileAndTextfile(t *testing.T) {
	dir := t.TempDir()
	airports := filepath.Join(dir, "airports.csv")
	if err := os.WriteFile(airports, []byte("LAX, Los Angeles, 3898747, -118.2437, 34.0522\nJFK, New York, 8804190, -73.7781, 40.6413\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	textfile := filepath.Join(dir, "flightroute.prom")
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[metrics]\ntextfile = \""+filepath.ToSlash(textfile)+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	a, err := New(ctx, Options{ConfigPath: cfgPath, AirportsPath: airports})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Table.Len() != 2 {
		t.Errorf("expected 2 airports, got %d", a.Table.Len())
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(textfile); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}
}

func TestNewFailsOnBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[optimizer]\neligibility = \"Passengers <\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := New(context.Background(), Options{ConfigPath: cfgPath})
	if err == nil {
		t.Errorf("expected invalid eligibility expression to fail")
	}
	if a != nil {
		t.Errorf("no app expected on failure")
	}
}

func TestNewReleasesOnMissingAirports(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "flightroute.prom")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[metrics]\ntextfile = \""+filepath.ToSlash(textfile)+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.csv")
	a, err := New(context.Background(), Options{ConfigPath: cfgPath, AirportsPath: missing})
	if err == nil || a != nil {
		t.Fatalf("expected failure for missing airports file, got %v", err)
	}
	// 已注册的关闭钩子在失败时仍然执行
	if _, err := os.Stat(textfile); err != nil {
		t.Errorf("metrics textfile not flushed on failure: %v", err)
	}
}
