package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/wyfcoding/flightroute/algorithm"
	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/route"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:  "run-5",
		Input:  "routes.txt",
		Routes: []route.Route{{Flight: 2}},
		After:  pipeline.Totals{Routes: 1, Passengers: 40, NetProfit: money.NewFromCents(1000)},
		Report: algorithm.MergeReport{
			Converged: true,
			Merges: []algorithm.Merge{{
				Pass:         1,
				Base:         1,
				Candidate:    2,
				Path:         []string{"LAX", "PHX", "JFK"},
				Passengers:   110,
				BaseProfit:   money.NewFromCents(-500),
				MergedProfit: money.NewFromCents(1000),
			}},
		},
	}
}

func TestMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	msgs, err := Messages(context.Background(), sampleResult(), now)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if string(msgs[0].Key) != "2" {
		t.Errorf("merge key %q", msgs[0].Key)
	}
	var merge MergeEvent
	if err := json.Unmarshal(msgs[0].Value, &merge); err != nil {
		t.Fatalf("unmarshal merge: %v", err)
	}
	if merge.Type != EventMerge || merge.Base != 1 || merge.Flight != 2 || merge.MergedProfit != "10.00" || !merge.At.Equal(now) {
		t.Errorf("unexpected merge event %+v", merge)
	}

	var run RunEvent
	if err := json.Unmarshal(msgs[1].Value, &run); err != nil {
		t.Fatalf("unmarshal run: %v", err)
	}
	if run.Type != EventRunFinished || run.RunID != "run-5" || run.Routes != 1 || run.Merges != 1 {
		t.Errorf("unexpected run event %+v", run)
	}
	if run.Passengers != 40 || run.NetProfit != "10.00" || run.InputProfit != "0.00" {
		t.Errorf("unexpected run totals %+v", run)
	}
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "flight-events", nil)
	if p.Name() != "kafka" {
		t.Errorf("name %q", p.Name())
	}
	if err := p.Publish(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Errorf("wrote %d messages", len(w.msgs))
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), sampleResult()); !errors.Is(err, w.err) {
		t.Errorf("expected broker error, got %v", err)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("close: %v", err)
	}
}
