// Package metrics 封装了基于 Prometheus 的私有指标注册表与航线处理的领域指标。
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flightroute"

// Metrics 封装了 Prometheus 注册表及预定义的领域指标。
type Metrics struct {
	registry *prometheus.Registry // 内部独立的 Prometheus 注册中心

	RecordsParsed    *prometheus.CounterVec   // 成功解析的航线记录 (维度: file)
	RecordsSkipped   *prometheus.CounterVec   // 被丢弃的整条记录 (维度: file)
	LinesSkipped     *prometheus.CounterVec   // 被跳过的单行 (维度: file)
	RoutesReordered  *prometheus.CounterVec   // 重排经停的航线 (维度: strategy)
	MergesCommitted  prometheus.Counter       // 已提交的合并
	MergeRejections  *prometheus.CounterVec   // 被拒绝的合并尝试 (维度: reason)
	MergeTies        prometheus.Counter       // 候选平局次数
	ActiveRoutes     *prometheus.GaugeVec     // 处理后剩余的航线 (维度: file)
	NetProfitDollars *prometheus.GaugeVec     // 处理后总净利润 (维度: file)
	StageDuration    *prometheus.HistogramVec // 各阶段耗时 (维度: stage)
	RunsTotal        *prometheus.CounterVec   // 流水线运行次数 (维度: status)
	BuildInfo        *prometheus.GaugeVec
}

// NewMetrics 初始化并返回一个新的指标采集器。
// 它会自动注册 Go 运行时指标和进程指标。
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.RecordsParsed = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_parsed_total",
		Help:      "Route records decoded successfully",
	}, []string{"file"})

	m.RecordsSkipped = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_skipped_total",
		Help:      "Route records dropped as malformed or invalid",
	}, []string{"file"})

	m.LinesSkipped = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_skipped_total",
		Help:      "Malformed lines reported and skipped inside otherwise usable records",
	}, []string{"file"})

	m.RoutesReordered = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routes_reordered_total",
		Help:      "Routes whose stops were reordered",
	}, []string{"strategy"})

	m.MergesCommitted = m.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merges_committed_total",
		Help:      "Route merges committed",
	})

	m.MergeRejections = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merge_rejections_total",
		Help:      "Merge candidates rejected",
	}, []string{"reason"})

	m.MergeTies = m.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merge_ties_total",
		Help:      "Candidate groups with equal proximity",
	})

	m.ActiveRoutes = m.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_routes",
		Help:      "Routes remaining after processing",
	}, []string{"file"})

	m.NetProfitDollars = m.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "net_profit_dollars",
		Help:      "Total net profit of the processed routes",
	}, []string{"file"})

	m.StageDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"stage"})

	m.RunsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Pipeline runs by outcome",
	}, []string{"status"})

	slog.Debug("metrics registry initialized", "service", serviceName)
	return m
}

// Registry 返回内部注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewCounter 创建并注册一个无维度计数器。
func (m *Metrics) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	m.registry.MustRegister(c)
	return c
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveStage 返回一个在阶段结束时调用的计时函数。
func (m *Metrics) ObserveStage(stage string) func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.StageDuration.WithLabelValues(stage))
	return func() { timer.ObserveDuration() }
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile 写出 node-exporter textfile 格式，供批处理任务结束后采集。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// ExposeHttp 在指定端口启动一个独立的 HTTP 服务器用于暴露指标数据。
// 返回一个清理函数用于优雅关闭该服务器。
func (m *Metrics) ExposeHttp(port, path string) func() {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
