package idgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/xerrors"
)

func TestSnowflakeUnique(t *testing.T) {
	g, err := NewGenerator(config.SnowflakeConfig{Type: "snowflake", MachineID: 3})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	seen := make(map[int64]bool)
	for range 1000 {
		id := g.Generate()
		if id <= 0 || seen[id] {
			t.Fatalf("bad or duplicate id %d", id)
		}
		seen[id] = true
	}
	if !strings.HasPrefix(RunID(g), "run-") {
		t.Errorf("RunID should carry run- prefix")
	}
}

func TestGeneratorConfigErrors(t *testing.T) {
	cases := []config.SnowflakeConfig{
		{Type: "uuid"},
		{Type: "snowflake", MachineID: 5000},
		{Type: "snowflake", StartTime: "yesterday"},
		{Type: "sonyflake", MachineID: -1},
	}
	for _, cfg := range cases {
		if _, err := NewGenerator(cfg); !errors.Is(err, xerrors.ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}
