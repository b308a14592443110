// Package pipeline 串起一次批处理：读取记录、重算经济指标、重排经停、合并航线、写出并分发结果。
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/algorithm"
	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/idgen"
	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/metrics"
	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/record"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/tracing"
	"github.com/wyfcoding/flightroute/xerrors"
)

// Job 一次处理任务。
type Job struct {
	Input   string
	Output  string // 为空则不写文件
	Reorder bool
	Merge   bool
}

// Result 一次运行的结果，也是分发给 Sink 的内容。
type Result struct {
	RunID          string
	Input          string
	Output         string
	Parsed         int
	SkippedLines   int // 被跳过的单行，所在记录仍可能保留
	SkippedRecords int // 解码或重算阶段被丢弃的整条记录
	Reordered      int // 路径发生变化的航线
	ReorderSkipped int // 超出穷举上限或重排结果无效而保持原样的航线
	Issues         []xerrors.Issue
	Routes         []route.Route
	Report         algorithm.MergeReport
	Before         Totals // 重算之后、重排与合并之前
	After          Totals // 最终输出
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Totals 一组航线的汇总，用于比较处理前后的效果。
type Totals struct {
	Routes         int
	Passengers     int
	PassengerMiles float64
	NetProfit      money.Money
}

// TotalsOf 汇总航线的乘客数、乘客里程与净利润。
func TotalsOf(routes []route.Route) Totals {
	t := Totals{Routes: len(routes), NetProfit: money.Zero}
	for _, r := range routes {
		t.Passengers += r.Passengers
		t.PassengerMiles += r.PassengerMiles
		t.NetProfit = t.NetProfit.Add(r.NetProfit)
	}
	return t
}

// Sink 运行结果的下游，例如数据库、对象存储或消息队列。
type Sink interface {
	Name() string
	Publish(ctx context.Context, res *Result) error
}

// Pipeline 持有一次运行所需的配置与依赖，可被多个 Job 并发复用。
type Pipeline struct {
	table     *airport.Table
	policy    economics.Policy
	optimizer config.OptimizerConfig
	rule      algorithm.Eligibility
	metrics   *metrics.Metrics
	ids       idgen.Generator
	sinks     []Sink
	logger    *logging.Logger
}

// Option 配置 Pipeline。
type Option func(*Pipeline)

// WithMetrics 设置指标采集器。
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSinks 追加结果下游。
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithIDGenerator 设置运行 ID 生成器。
func WithIDGenerator(g idgen.Generator) Option {
	return func(p *Pipeline) { p.ids = g }
}

// WithRule 设置合并资格规则。
func WithRule(rule algorithm.Eligibility) Option {
	return func(p *Pipeline) { p.rule = rule }
}

// WithLogger 设置日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New 创建流水线。
func New(table *airport.Table, policy economics.Policy, optimizer config.OptimizerConfig, opts ...Option) (*Pipeline, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if _, err := algorithm.ParseStrategy(optimizer.Strategy); err != nil {
		return nil, err
	}
	p := &Pipeline{table: table, policy: policy, optimizer: optimizer}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Default()
	}
	if p.ids == nil {
		g, err := idgen.NewGenerator(config.SnowflakeConfig{MachineID: 1})
		if err != nil {
			return nil, err
		}
		p.ids = g
	}
	return p, nil
}

// Run 执行一次完整处理。Sink 失败不影响结果文件，错误合并后返回。
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.run")
	defer span.End()

	res := &Result{
		RunID:     idgen.RunID(p.ids),
		Input:     job.Input,
		Output:    job.Output,
		StartedAt: time.Now(),
	}
	tracing.AddTag(ctx, "run_id", res.RunID)
	tracing.AddTag(ctx, "input", job.Input)
	label := filepath.Base(job.Input)

	err := p.process(ctx, job, res, label)
	res.FinishedAt = time.Now()
	if err != nil {
		tracing.SetError(ctx, err)
		p.countRun("failed")
		p.logger.ErrorContext(ctx, "pipeline run failed", "run_id", res.RunID, "input", job.Input, "error", err)
		return res, err
	}

	var sinkErrs []error
	for _, sink := range p.sinks {
		if err := p.stage(ctx, "sink."+sink.Name(), func(ctx context.Context) error {
			return sink.Publish(ctx, res)
		}); err != nil {
			p.logger.ErrorContext(ctx, "sink publish failed", "sink", sink.Name(), "run_id", res.RunID, "error", err)
			sinkErrs = append(sinkErrs, err)
		}
	}
	if err := errors.Join(sinkErrs...); err != nil {
		p.countRun("sink_failed")
		return res, err
	}

	p.countRun("ok")
	p.logger.InfoContext(ctx, "pipeline run finished",
		"run_id", res.RunID,
		"input", job.Input,
		"parsed", res.Parsed,
		"skipped_lines", res.SkippedLines,
		"skipped_records", res.SkippedRecords,
		"reordered", res.Reordered,
		"merges", len(res.Report.Merges),
		"routes", res.After.Routes,
		"passengers", res.After.Passengers,
		"passenger_miles", res.After.PassengerMiles,
		"net_profit_before", res.Before.NetProfit.String(),
		"net_profit", res.After.NetProfit.String(),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, job Job, res *Result, label string) error {
	estimator, err := economics.NewEstimator(p.policy, p.table)
	if err != nil {
		return err
	}

	var routes []route.Route
	if err := p.stage(ctx, "decode", func(ctx context.Context) error {
		decoded, issues, err := record.ReadFile(ctx, job.Input)
		if err != nil {
			return err
		}
		routes = decoded
		res.Parsed = len(decoded)
		res.Issues = append(res.Issues, issues...)
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, "estimate", func(ctx context.Context) error {
		routes = p.recompute(ctx, estimator, routes, res)
		return nil
	}); err != nil {
		return err
	}
	for _, issue := range res.Issues {
		if issue.Record {
			res.SkippedRecords++
		} else {
			res.SkippedLines++
		}
	}
	res.Before = TotalsOf(routes)
	if p.metrics != nil {
		p.metrics.RecordsParsed.WithLabelValues(label).Add(float64(res.Parsed))
		p.metrics.RecordsSkipped.WithLabelValues(label).Add(float64(res.SkippedRecords))
		p.metrics.LinesSkipped.WithLabelValues(label).Add(float64(res.SkippedLines))
	}

	if job.Reorder {
		if err := p.stage(ctx, "reorder", func(ctx context.Context) error {
			var err error
			routes, err = p.reorder(ctx, estimator, routes, res)
			return err
		}); err != nil {
			return err
		}
	}

	res.Report = algorithm.MergeReport{Routes: routes, Converged: true}
	if job.Merge {
		if err := p.stage(ctx, "merge", func(ctx context.Context) error {
			merger, err := algorithm.NewRouteMerger(estimator, p.mergeOptions())
			if err != nil {
				return err
			}
			report, err := merger.Optimize(ctx, routes)
			if err != nil {
				return err
			}
			res.Report = report
			p.observeMerge(ctx, report)
			return nil
		}); err != nil {
			return err
		}
	}
	res.Routes = res.Report.Routes
	res.After = TotalsOf(res.Routes)
	if p.metrics != nil {
		p.metrics.ActiveRoutes.WithLabelValues(label).Set(float64(res.After.Routes))
		p.metrics.NetProfitDollars.WithLabelValues(label).Set(res.After.NetProfit.ToFloat())
	}

	if job.Output == "" {
		return nil
	}
	return p.stage(ctx, "encode", func(context.Context) error {
		return record.WriteFile(job.Output, res.Routes)
	})
}

// recompute 从零重算每条航线；缺少坐标或违反不变量的航线记为 Issue 并丢弃。
func (p *Pipeline) recompute(ctx context.Context, estimator *economics.Estimator, routes []route.Route, res *Result) []route.Route {
	kept := routes[:0]
	for _, r := range routes {
		err := estimator.Apply(&r)
		if err == nil {
			err = r.Validate(p.policy.Capacity)
		}
		if err != nil {
			p.logger.WarnContext(ctx, "dropping route", "flight", r.Flight, "error", err)
			res.Issues = append(res.Issues, xerrors.Issue{Text: "Flight " + strconv.Itoa(r.Flight), Err: err, Record: true})
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (p *Pipeline) reorder(ctx context.Context, estimator *economics.Estimator, routes []route.Route, res *Result) ([]route.Route, error) {
	strategy, _ := algorithm.ParseStrategy(p.optimizer.Strategy)
	optimizer, err := algorithm.NewRouteOptimizer(estimator, strategy, p.optimizer.ExhaustiveLimit)
	if err != nil {
		return nil, err
	}

	out := make([]route.Route, len(routes))
	for i, r := range routes {
		next, err := optimizer.ReorderRoute(ctx, r)
		switch {
		case errors.Is(err, xerrors.ErrTooManyWaypoints):
			res.ReorderSkipped++
			p.logger.WarnContext(ctx, "route left unordered", "flight", r.Flight, "waypoints", len(r.Path()), "error", err)
		case errors.Is(err, xerrors.ErrInvalidRoute):
			res.ReorderSkipped++
			p.logger.WarnContext(ctx, "reordered path rejected", "flight", r.Flight, "error", err)
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WarnContext(ctx, "reorder failed", "flight", r.Flight, "error", err)
		case !slices.Equal(next.Path(), r.Path()):
			res.Reordered++
		}
		out[i] = next
	}
	if p.metrics != nil {
		p.metrics.RoutesReordered.WithLabelValues(string(strategy)).Add(float64(res.Reordered))
	}
	return out, nil
}

func (p *Pipeline) mergeOptions() algorithm.MergeOptions {
	return algorithm.MergeOptions{
		Capacity:     p.policy.Capacity,
		Candidates:   p.optimizer.Candidates,
		MaxPasses:    p.optimizer.MaxPasses,
		MaxWaypoints: p.optimizer.MaxWaypoints,
		Rule:         p.rule,
	}
}

func (p *Pipeline) observeMerge(ctx context.Context, report algorithm.MergeReport) {
	for _, m := range report.Merges {
		p.logger.InfoContext(ctx, "merge committed",
			"pass", m.Pass, "base", m.Base, "into", m.Candidate,
			"passengers", m.Passengers, "base_profit", m.BaseProfit.String(), "merged_profit", m.MergedProfit.String())
	}
	for _, tie := range report.Ties {
		p.logger.DebugContext(ctx, "candidate tie", "pass", tie.Pass, "base", tie.Base, "flights", tie.Flights, "proximity", tie.Proximity)
	}
	for _, rej := range report.Rejections {
		p.logger.DebugContext(ctx, "merge rejected", "pass", rej.Pass, "base", rej.Base, "candidate", rej.Candidate, "reason", rej.Reason, "detail", rej.Detail)
	}
	tracing.AddTag(ctx, "merges", len(report.Merges))
	tracing.AddTag(ctx, "passes", report.Passes)

	if p.metrics == nil {
		return
	}
	p.metrics.MergesCommitted.Add(float64(len(report.Merges)))
	p.metrics.MergeTies.Add(float64(len(report.Ties)))
	for reason, n := range report.RejectionsByReason() {
		p.metrics.MergeRejections.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// stage 在独立 span 内执行一个阶段并记录耗时。
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+name)
	defer span.End()
	defer p.metrics.ObserveStage(name)()

	if err := fn(ctx); err != nil {
		tracing.SetError(ctx, err)
		return err
	}
	return nil
}

func (p *Pipeline) countRun(status string) {
	if p.metrics != nil {
		p.metrics.RunsTotal.WithLabelValues(status).Inc()
	}
}
