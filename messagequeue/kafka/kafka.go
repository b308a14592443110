// Package kafka 把合并事件与运行完成事件发布到 Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/tracing"
	"github.com/wyfcoding/flightroute/xerrors"
)

const (
	EventMerge       = "route.merged"
	EventRunFinished = "run.finished"
)

// Writer 是 kafka-go Writer 的最小子集.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// MergeEvent 一次已提交的合并.
type MergeEvent struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	Pass         int       `json:"pass"`
	Base         int       `json:"base_flight"`
	Flight       int       `json:"flight"`
	Path         []string  `json:"path"`
	Passengers   int       `json:"passengers"`
	Proximity    float64   `json:"proximity_nm"`
	BaseProfit   string    `json:"base_profit"`
	MergedProfit string    `json:"merged_profit"`
	At           time.Time `json:"at"`
}

// RunEvent 一次运行结束.
type RunEvent struct {
	Type           string    `json:"type"`
	RunID          string    `json:"run_id"`
	Input          string    `json:"input"`
	Routes         int       `json:"routes"`
	Merges         int       `json:"merges"`
	Converged      bool      `json:"converged"`
	Passengers     int       `json:"passengers"`
	PassengerMiles float64   `json:"passenger_miles"`
	NetProfit      string    `json:"net_profit"`
	InputProfit    string    `json:"input_net_profit"`
	At             time.Time `json:"at"`
}

// Producer 实现 pipeline.Sink.
type Producer struct {
	writer Writer
	topic  string
	logger *logging.Logger
}

// NewProducer 按配置创建写入器.
func NewProducer(cfg config.KafkaConfig, logger *logging.Logger) *Producer {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		MaxAttempts:  maxAttempts,
		RequiredAcks: kafkago.RequireAll,
		Async:        cfg.Async,
	}
	return NewProducerWithWriter(w, cfg.Topic, logger)
}

// NewProducerWithWriter 使用给定写入器创建 Producer.
func NewProducerWithWriter(w Writer, topic string, logger *logging.Logger) *Producer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Producer{writer: w, topic: topic, logger: logger}
}

func (p *Producer) Name() string { return "kafka" }

// Messages 构造一次运行对应的全部消息：每个合并一条，最后一条运行结束事件。
// 合并消息以航班号为 key，保证同一航班的事件进入同一分区。
func Messages(ctx context.Context, res *pipeline.Result, now time.Time) ([]kafkago.Message, error) {
	headers := traceHeaders(ctx)
	msgs := make([]kafkago.Message, 0, len(res.Report.Merges)+1)
	for _, m := range res.Report.Merges {
		value, err := json.Marshal(MergeEvent{
			Type:         EventMerge,
			RunID:        res.RunID,
			Pass:         m.Pass,
			Base:         m.Base,
			Flight:       m.Candidate,
			Path:         m.Path,
			Passengers:   m.Passengers,
			Proximity:    m.Proximity,
			BaseProfit:   m.BaseProfit.String(),
			MergedProfit: m.MergedProfit.String(),
			At:           now,
		})
		if err != nil {
			return nil, xerrors.WrapInternal(err, "marshal merge event")
		}
		msgs = append(msgs, kafkago.Message{
			Key:     []byte(strconv.Itoa(m.Candidate)),
			Value:   value,
			Headers: headers,
			Time:    now,
		})
	}

	value, err := json.Marshal(RunEvent{
		Type:           EventRunFinished,
		RunID:          res.RunID,
		Input:          res.Input,
		Routes:         len(res.Routes),
		Merges:         len(res.Report.Merges),
		Converged:      res.Report.Converged,
		Passengers:     res.After.Passengers,
		PassengerMiles: res.After.PassengerMiles,
		NetProfit:      res.After.NetProfit.String(),
		InputProfit:    res.Before.NetProfit.String(),
		At:             now,
	})
	if err != nil {
		return nil, xerrors.WrapInternal(err, "marshal run event")
	}
	msgs = append(msgs, kafkago.Message{
		Key:     []byte(res.RunID),
		Value:   value,
		Headers: headers,
		Time:    now,
	})
	return msgs, nil
}

func traceHeaders(ctx context.Context) []kafkago.Header {
	carrier := tracing.InjectContext(ctx)
	headers := make([]kafkago.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// Publish 发送一次运行的事件.
func (p *Producer) Publish(ctx context.Context, res *pipeline.Result) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	msgs, err := Messages(ctx, res, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		tracing.SetError(ctx, err)
		p.logger.ErrorContext(ctx, "failed to publish messages", "topic", p.topic, "count", len(msgs), "error", err)
		return xerrors.WrapInternal(err, "publish run events").WithContext("topic", p.topic)
	}
	p.logger.DebugContext(ctx, "events published", "topic", p.topic, "count", len(msgs), "run_id", res.RunID)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close writer", "error", err)
		return err
	}
	return nil
}
