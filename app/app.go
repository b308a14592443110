// Package app 负责组装命令行运行所需的全部组件，并在退出时统一释放。
package app

import (
	"context"

	"github.com/wyfcoding/flightroute/airport"
	"github.com/wyfcoding/flightroute/algorithm"
	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/economics"
	"github.com/wyfcoding/flightroute/idgen"
	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/metrics"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/ruleengine"
	"github.com/wyfcoding/flightroute/tracing"
)

const serviceName = "flightroute"

// Options 启动参数，通常来自命令行.
type Options struct {
	ConfigPath   string
	AirportsPath string // 覆盖配置中的 airports
	Module       string // 日志 module 字段，一般为子命令名
	Sinks        bool   // 是否按配置创建数据库、对象存储、消息队列下游
}

// App 持有一次命令执行期间共享的组件.
type App struct {
	conf      *config.Config
	Logger    *logging.Logger
	Table     *airport.Table
	Metrics   *metrics.Metrics
	IDs       idgen.Generator
	Rule      *ruleengine.Engine
	Sinks     []pipeline.Sink
	lifecycle *Lifecycle
}

// New 加载配置并初始化日志、追踪、指标、机场表与下游。
// 出错时已初始化的组件会被释放.
func New(ctx context.Context, opts Options) (a *App, err error) {
	conf := &config.Config{}
	if err := config.Load(opts.ConfigPath, conf); err != nil {
		return nil, err
	}
	if opts.AirportsPath != "" {
		conf.Airports = opts.AirportsPath
	}
	if opts.Module == "" {
		opts.Module = "cli"
	}

	logger := logging.NewFromConfig(logging.Config{
		Service:      serviceName,
		Module:       opts.Module,
		Level:        conf.Log.Level,
		Format:       conf.Log.Format,
		File:         conf.Log.File,
		Stdout:       conf.Log.Stdout,
		ConsoleLevel: conf.Log.ConsoleLevel,
		MaxSize:      conf.Log.MaxSize,
		MaxBackups:   conf.Log.MaxBackups,
		MaxAge:       conf.Log.MaxAge,
		Compress:     conf.Log.Compress,
	})
	logging.SetDefault(logger)

	lc := NewLifecycle(logger.Logger)
	a = &App{conf: conf, Logger: logger, lifecycle: lc}
	// 失败路径上 a 已被置为 nil，只能通过 lc 释放
	defer func() {
		if err != nil {
			_ = lc.Stop(ctx)
		}
	}()
	lc.Append(Hook{Name: "logger", OnStop: func(context.Context) error { return logger.Close() }})
	config.PrintWithMask(conf)

	shutdown, err := tracing.InitTracer(conf.Tracing)
	if err != nil {
		return nil, err
	}
	a.lifecycle.Append(Hook{Name: "tracer", OnStop: shutdown})

	a.Metrics = metrics.NewMetrics(serviceName)
	a.Metrics.RegisterBuildInfo(serviceName, conf.Version)
	if conf.Metrics.Textfile != "" {
		a.lifecycle.Append(Hook{Name: "metrics-textfile", OnStop: func(context.Context) error {
			return a.Metrics.WriteTextfile(conf.Metrics.Textfile)
		}})
	}

	if conf.Airports == "" {
		a.Table = airport.DefaultTable()
	} else if a.Table, err = airport.LoadFile(ctx, conf.Airports); err != nil {
		return nil, err
	}

	if a.IDs, err = idgen.NewGenerator(conf.Snowflake); err != nil {
		return nil, err
	}
	if a.Rule, err = ruleengine.NewEngine(conf.Optimizer.Eligibility); err != nil {
		return nil, err
	}

	if opts.Sinks {
		if a.Sinks, err = a.buildSinks(ctx, conf); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Config 返回当前配置的副本，热更新后调用可拿到新值.
func (a *App) Config() config.Config {
	return config.Snapshot(a.conf)
}

// Watch 开启配置热更新：日志级别与合并规则立即生效，经济参数在下一次 Pipeline() 时生效.
func (a *App) Watch() {
	config.RegisterReloadHook(func(next *config.Config) {
		if err := a.Rule.SetExpression(next.Optimizer.Eligibility); err != nil {
			a.Logger.Error("eligibility rule not reloaded", "error", err)
		}
	})
	config.Watch(a.conf)
}

// Estimator 按当前策略创建经济模型.
func (a *App) Estimator() (*economics.Estimator, error) {
	return economics.NewEstimator(economics.PolicyFromConfig(a.Config().Policy), a.Table)
}

// Optimizer 创建经停排序器，strategy 为空时使用配置值.
func (a *App) Optimizer(strategy string) (*algorithm.RouteOptimizer, error) {
	conf := a.Config()
	if strategy == "" {
		strategy = conf.Optimizer.Strategy
	}
	st, err := algorithm.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	est, err := a.Estimator()
	if err != nil {
		return nil, err
	}
	return algorithm.NewRouteOptimizer(est, st, conf.Optimizer.ExhaustiveLimit)
}

// Pipeline 按当前配置创建流水线，strategy 非空时覆盖配置中的排序策略.
func (a *App) Pipeline(strategy string) (*pipeline.Pipeline, error) {
	conf := a.Config()
	if strategy != "" {
		conf.Optimizer.Strategy = strategy
	}
	return pipeline.New(a.Table, economics.PolicyFromConfig(conf.Policy), conf.Optimizer,
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithSinks(a.Sinks...),
		pipeline.WithIDGenerator(a.IDs),
		pipeline.WithRule(a.Rule),
		pipeline.WithLogger(a.Logger),
	)
}

// Close 释放全部组件.
func (a *App) Close(ctx context.Context) error {
	return a.lifecycle.Stop(ctx)
}
