// Package config 提供了统一的配置加载与管理能力.
// 配置来源优先级：环境变量 (APP_ 前缀) > TOML 文件 > 内置默认值.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/flightroute/logging"
)

// Config 全局顶级配置结构.
type Config struct {
	Version      string             `mapstructure:"version"      toml:"version"`
	Airports     string             `mapstructure:"airports"     toml:"airports"` // 机场文件路径，为空使用内置表
	Log          LogConfig          `mapstructure:"log"          toml:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"      toml:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"      toml:"tracing"`
	Policy       PolicyConfig       `mapstructure:"policy"       toml:"policy"`
	Optimizer    OptimizerConfig    `mapstructure:"optimizer"    toml:"optimizer"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"     toml:"pipeline"`
	Snowflake    SnowflakeConfig    `mapstructure:"snowflake"    toml:"snowflake"`
	Data         DataConfig         `mapstructure:"data"         toml:"data"`
	Minio        MinioConfig        `mapstructure:"minio"        toml:"minio"`
	MessageQueue MessageQueueConfig `mapstructure:"messagequeue" toml:"messagequeue"`
}

// PolicyConfig 航班经济模型参数。均为策略常量而非推导值.
type PolicyConfig struct {
	CruiseSpeedKnots       float64 `mapstructure:"cruise_speed_knots"        toml:"cruise_speed_knots"        validate:"gt=0"`
	OperatingCostPerHour   float64 `mapstructure:"operating_cost_per_hour"   toml:"operating_cost_per_hour"   validate:"gte=0"`
	TicketPrice            float64 `mapstructure:"ticket_price"              toml:"ticket_price"              validate:"gte=0"`
	Capacity               int     `mapstructure:"capacity"                  toml:"capacity"                  validate:"gt=0"`
	LayoverMode            string  `mapstructure:"layover_mode"              toml:"layover_mode"              validate:"oneof=fixed random"`
	LayoverHoursPerStop    float64 `mapstructure:"layover_hours_per_stop"    toml:"layover_hours_per_stop"    validate:"gte=0"`
	LayoverMinHours        float64 `mapstructure:"layover_min_hours"         toml:"layover_min_hours"         validate:"gte=0"`
	LayoverMaxHours        float64 `mapstructure:"layover_max_hours"         toml:"layover_max_hours"         validate:"gtefield=LayoverMinHours"`
	MaintenanceCostPerHour float64 `mapstructure:"maintenance_cost_per_hour" toml:"maintenance_cost_per_hour" validate:"gte=0"`
	Seed                   uint64  `mapstructure:"seed"                      toml:"seed"`
}

// OptimizerConfig 经停排序与航线合并参数.
type OptimizerConfig struct {
	Strategy        string `mapstructure:"strategy"         toml:"strategy"         validate:"oneof=exhaustive nearest-neighbor origin-distance"`
	ExhaustiveLimit int    `mapstructure:"exhaustive_limit" toml:"exhaustive_limit" validate:"gte=1,lte=8"`
	Candidates      int    `mapstructure:"candidates"       toml:"candidates"       validate:"gte=1"`
	MaxPasses       int    `mapstructure:"max_passes"       toml:"max_passes"       validate:"gte=1"`
	MaxWaypoints    int    `mapstructure:"max_waypoints"    toml:"max_waypoints"    validate:"gte=2"`
	Eligibility     string `mapstructure:"eligibility"      toml:"eligibility"` // expr 表达式，空表示不过滤
}

// PipelineConfig 批处理流水线参数.
type PipelineConfig struct {
	Reorder     bool   `mapstructure:"reorder"     toml:"reorder"`
	Merge       bool   `mapstructure:"merge"       toml:"merge"`
	Concurrency int    `mapstructure:"concurrency" toml:"concurrency" validate:"gte=1"`
	OutputDir   string `mapstructure:"output_dir"  toml:"output_dir"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"`       // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"       validate:"oneof=json text"`
	File       string `mapstructure:"file"        toml:"file"`        // 日志文件路径。
	Stdout     bool   `mapstructure:"stdout"      toml:"stdout"`      // 写文件时是否同时输出到终端。
	// ConsoleLevel 终端镜像的最低级别，为空时与 Level 相同。文件记录 debug 时终端可只看 warn。
	ConsoleLevel string `mapstructure:"console_level" toml:"console_level"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`    // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标配置.
type MetricsConfig struct {
	Port     string `mapstructure:"port"     toml:"port"`
	Path     string `mapstructure:"path"     toml:"path"`
	Textfile string `mapstructure:"textfile" toml:"textfile"` // 批处理结束后写出的 node-exporter textfile
	Enabled  bool   `mapstructure:"enabled"  toml:"enabled"`
}

// TracingConfig 链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// SnowflakeConfig 运行 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// DataConfig 持久化存储配置.
type DataConfig struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
}

// DatabaseConfig 定义单数据库实例连接与连接池参数.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"           toml:"enabled"`
	Driver          string        `mapstructure:"driver"            toml:"driver"            validate:"omitempty,oneof=postgres mysql"`
	DSN             string        `mapstructure:"dsn"               toml:"dsn"               validate:"required_if=Enabled true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" toml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"    toml:"slow_threshold"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    toml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    toml:"max_open_conns"`
}

// MinioConfig 定义 S3 兼容对象存储 MinIO 的连接参数.
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"           toml:"enabled"`
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"    validate:"required_if=Enabled true"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name" validate:"required_if=Enabled true"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
}

// MessageQueueConfig 聚合消息中间件配置.
type MessageQueueConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka" toml:"kafka"`
}

// KafkaConfig 定义 Kafka 生产者参数.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"       toml:"enabled"`
	Topic        string        `mapstructure:"topic"         toml:"topic"   validate:"required_if=Enabled true"`
	Brokers      []string      `mapstructure:"brokers"       toml:"brokers" validate:"required_if=Enabled true"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  toml:"read_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"  toml:"max_attempts"`
	Async        bool          `mapstructure:"async"         toml:"async"`
}

// defaults 内置默认值.
var defaults = map[string]any{
	"version":                          "dev",
	"log.level":                        "info",
	"log.format":                       "json",
	"log.max_size":                     100,
	"log.max_backups":                  3,
	"log.max_age":                      7,
	"metrics.port":                     "9102",
	"metrics.path":                     "/metrics",
	"tracing.service_name":             "flightroute",
	"tracing.sampler_ratio":            1.0,
	"policy.cruise_speed_knots":        485.0,
	"policy.operating_cost_per_hour":   5757.0,
	"policy.ticket_price":              384.85,
	"policy.capacity":                  204,
	"policy.layover_mode":              "fixed",
	"policy.layover_hours_per_stop":    1.5,
	"policy.layover_min_hours":         1.0,
	"policy.layover_max_hours":         2.0,
	"policy.maintenance_cost_per_hour": 150.0,
	"policy.seed":                      1,
	"optimizer.strategy":               "exhaustive",
	"optimizer.exhaustive_limit":       4,
	"optimizer.candidates":             10,
	"optimizer.max_passes":             100,
	"optimizer.max_waypoints":          8,
	"pipeline.reorder":                 true,
	"pipeline.merge":                   true,
	"pipeline.concurrency":             4,
	"snowflake.type":                   "snowflake",
	"snowflake.machine_id":             1,
	"data.database.driver":             "postgres",
	"data.database.slow_threshold":     "200ms",
	"data.database.max_idle_conns":     2,
	"data.database.max_open_conns":     4,
	"data.database.conn_max_lifetime":  "30m",
	"messagequeue.kafka.topic":         "flightroute.merges",
	"messagequeue.kafka.write_timeout": "10s",
	"messagequeue.kafka.read_timeout":  "10s",
	"messagequeue.kafka.max_attempts":  5,
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	validate  = validator.New()
	onReload  []func(*Config)
)

// New 返回只包含默认值的配置.
func New() (*Config, error) {
	conf := &Config{}
	if err := Load("", conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// Load 加载配置。path 为空时只使用默认值与环境变量.
func Load(path string, conf *Config) error {
	mu.Lock()
	defer mu.Unlock()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	vInstance = v
	return nil
}

// Snapshot 返回 conf 的一致副本，可与 Watch 的写入并发调用.
func Snapshot(conf *Config) Config {
	mu.Lock()
	defer mu.Unlock()
	return *conf
}

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Watch 监听已加载的配置文件，变更后重新解析并校验，成功时更新日志级别并回调钩子.
// 校验失败的新配置会被丢弃，conf 保持原值.
func Watch(conf *Config) {
	mu.Lock()
	v := vInstance
	mu.Unlock()

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate.Struct(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		mu.Lock()
		*conf = *next
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")
		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)

		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)

		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)

		return
	}

	slog.Info("current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)

			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"

				break
			}
		}
	}
}
