package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if conf.Policy.CruiseSpeedKnots != 485 || conf.Policy.Capacity != 204 || conf.Policy.TicketPrice != 384.85 {
		t.Errorf("unexpected policy defaults %+v", conf.Policy)
	}
	if conf.Optimizer.Strategy != "exhaustive" || conf.Optimizer.ExhaustiveLimit != 4 || conf.Optimizer.Candidates != 10 {
		t.Errorf("unexpected optimizer defaults %+v", conf.Optimizer)
	}
	if conf.Data.Database.SlowThreshold != 200*time.Millisecond {
		t.Errorf("duration default not decoded: %v", conf.Data.Database.SlowThreshold)
	}
	if conf.Data.Database.Enabled || conf.Minio.Enabled || conf.MessageQueue.Kafka.Enabled {
		t.Errorf("sinks must be disabled by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
version = "1.2.3"

[policy]
layover_mode = "random"
seed = 42

[optimizer]
strategy = "nearest-neighbor"
eligibility = "Passengers < 150"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_POLICY_CAPACITY", "180")

	conf := &Config{}
	if err := Load(path, conf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conf.Version != "1.2.3" || conf.Policy.LayoverMode != "random" || conf.Policy.Seed != 42 {
		t.Errorf("file values not applied: %+v", conf.Policy)
	}
	if conf.Optimizer.Strategy != "nearest-neighbor" || conf.Optimizer.Eligibility != "Passengers < 150" {
		t.Errorf("optimizer values not applied: %+v", conf.Optimizer)
	}
	if conf.Policy.Capacity != 180 {
		t.Errorf("env override not applied: capacity %d", conf.Policy.Capacity)
	}
	if conf.Policy.CruiseSpeedKnots != 485 {
		t.Errorf("defaults lost when file is present")
	}
	if snap := Snapshot(conf); snap.Version != "1.2.3" {
		t.Errorf("snapshot %+v", snap)
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"strategy": "[optimizer]\nstrategy = \"random\"\n",
		"limit":    "[optimizer]\nexhaustive_limit = 9\n",
		"layover":  "[policy]\nlayover_min_hours = 3.0\nlayover_max_hours = 2.0\n",
		"kafka":    "[messagequeue.kafka]\nenabled = true\ntopic = \"\"\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := Load(path, &Config{}); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := Load(filepath.Join(dir, "missing.toml"), &Config{}); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"data":  map[string]any{"database": map[string]any{"dsn": "postgres://u:p@h/db", "driver": "postgres"}},
		"minio": map[string]any{"SecretAccessKey": "s3cr3t", "Endpoint": "localhost:9000"},
	}
	mask(m)
	db := m["data"].(map[string]any)["database"].(map[string]any)
	if db["dsn"] != "******" || db["driver"] != "postgres" {
		t.Errorf("database not masked correctly: %v", db)
	}
	minio := m["minio"].(map[string]any)
	if minio["SecretAccessKey"] != "******" || minio["Endpoint"] != "localhost:9000" {
		t.Errorf("minio not masked correctly: %v", minio)
	}
}
