package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/pipeline"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, name string, r io.Reader, size int64, contentType string) error {
	if name == m.failOn {
		return errors.New("upload refused")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	m.types[name] = contentType
	return nil
}

func (m *memStorage) Download(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[name]
	return ok, nil
}

func (m *memStorage) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func TestArchiverUploadsOutputAndSummary(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "routes.txt")
	if err := os.WriteFile(out, []byte("Flight: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := &pipeline.Result{
		RunID:        "run-42",
		Input:        "in.txt",
		Output:       out,
		Parsed:       3,
		SkippedLines: 1,
		Before:       pipeline.Totals{Routes: 3, Passengers: 90, PassengerMiles: 1500, NetProfit: money.NewFromCents(-500)},
		After:        pipeline.Totals{Routes: 2, Passengers: 90, PassengerMiles: 1200, NetProfit: money.NewFromCents(12345)},
	}

	store := newMemStorage()
	a := NewArchiver(store, "")
	if err := a.Publish(context.Background(), res); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ok, _ := store.Exists(context.Background(), "runs/run-42/routes.txt")
	if !ok {
		t.Fatalf("output not archived: %v", store.objects)
	}
	if got := string(store.objects["runs/run-42/routes.txt"]); got != "Flight: 1\n" {
		t.Errorf("archived content %q", got)
	}
	rc, err := store.Download(context.Background(), "runs/run-42/summary.json")
	if err != nil {
		t.Fatalf("summary missing: %v", err)
	}
	defer rc.Close()
	var s Summary
	if err := json.NewDecoder(rc).Decode(&s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if s.RunID != "run-42" || s.Parsed != 3 || s.SkippedLines != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.InputTotals != (Totals{Routes: 3, Passengers: 90, PassengerMiles: 1500, NetProfit: "-5.00"}) {
		t.Errorf("input totals %+v", s.InputTotals)
	}
	if s.OutputTotals != (Totals{Routes: 2, Passengers: 90, PassengerMiles: 1200, NetProfit: "123.45"}) {
		t.Errorf("output totals %+v", s.OutputTotals)
	}
	if store.types["runs/run-42/summary.json"] != summaryContentType {
		t.Errorf("summary content type %q", store.types["runs/run-42/summary.json"])
	}
}

func TestArchiverWithoutOutput(t *testing.T) {
	store := newMemStorage()
	a := NewArchiver(store, "archive")
	if err := a.Publish(context.Background(), &pipeline.Result{RunID: "run-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(store.objects) != 1 || store.objects["archive/run-1/summary.json"] == nil {
		t.Errorf("expected only the summary, got %v", store.objects)
	}
}

func TestArchiverUploadFailure(t *testing.T) {
	store := newMemStorage()
	store.failOn = "runs/run-9/summary.json"
	if err := NewArchiver(store, "").Publish(context.Background(), &pipeline.Result{RunID: "run-9"}); err == nil {
		t.Fatalf("expected upload error")
	}
}
