// Package idgen 生成批处理运行 ID。
// 支持 Snowflake 和 Sonyflake 两种算法，可通过配置选择.
package idgen

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sony/sonyflake"

	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/xerrors"
)

const (
	startTimeLayout = "2006-01-02"
	maxRetries      = 3
	maxMachineID    = 65535
)

// Generator 定义 ID 生成器接口.
type Generator interface {
	Generate() int64
}

// SnowflakeGenerator 使用雪花算法实现 Generator.
// 每毫秒可生成 4096 个 ID，支持 1024 台机器.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator 创建一个新的 SnowflakeGenerator.
func NewSnowflakeGenerator(cfg config.SnowflakeConfig) (*SnowflakeGenerator, error) {
	if cfg.StartTime != "" {
		st, err := time.Parse(startTimeLayout, cfg.StartTime)
		if err != nil {
			return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "snowflake start_time %q", cfg.StartTime).WithCause(err)
		}
		snowflake.Epoch = st.UnixMilli()
	}

	node, err := snowflake.NewNode(cfg.MachineID)
	if err != nil {
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "snowflake machine_id %d", cfg.MachineID).WithCause(err)
	}

	slog.Debug("snowflake generator initialized", "machine_id", cfg.MachineID, "epoch", snowflake.Epoch)
	return &SnowflakeGenerator{node: node}, nil
}

// Generate 生成一个新的 ID.
func (g *SnowflakeGenerator) Generate() int64 {
	return g.node.Generate().Int64()
}

// SonyflakeGenerator 使用 Sonyflake 算法实现 Generator.
// 每 10 毫秒可生成 256 个 ID，支持 65536 台机器.
type SonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeGenerator 创建一个新的 SonyflakeGenerator.
func NewSonyflakeGenerator(cfg config.SnowflakeConfig) (*SonyflakeGenerator, error) {
	startTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if cfg.StartTime != "" {
		st, err := time.Parse(startTimeLayout, cfg.StartTime)
		if err != nil {
			return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "sonyflake start_time %q", cfg.StartTime).WithCause(err)
		}
		startTime = st
	}

	if cfg.MachineID < 0 || cfg.MachineID > maxMachineID {
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "machine_id must be between 0 and %d, got %d", maxMachineID, cfg.MachineID)
	}
	machineID := uint16(cfg.MachineID & 0xFFFF)

	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: startTime,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if err != nil {
		return nil, xerrors.WrapInternal(err, "create sonyflake")
	}

	slog.Debug("sonyflake generator initialized", "machine_id", cfg.MachineID, "start_time", startTime)
	return &SonyflakeGenerator{sf: sf}, nil
}

// Generate 生成一个新的 ID，连续失败时返回 0.
func (g *SonyflakeGenerator) Generate() int64 {
	for i := range maxRetries {
		id, err := g.sf.NextID()
		if err == nil {
			return int64(id & 0x7FFFFFFFFFFFFFFF)
		}
		slog.Warn("sonyflake generator failed, retrying", "retry", i+1, "error", err)
		time.Sleep(10 * time.Millisecond)
	}
	slog.Error("sonyflake generator failed after multiple retries")
	return 0
}

// NewGenerator 根据配置创建对应类型的 ID 生成器.
func NewGenerator(cfg config.SnowflakeConfig) (Generator, error) {
	switch cfg.Type {
	case "sonyflake":
		return NewSonyflakeGenerator(cfg)
	case "snowflake", "":
		return NewSnowflakeGenerator(cfg)
	default:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "unsupported id generator type %q", cfg.Type)
	}
}

// RunID 生成运行 ID 字符串，形如 "run-1234567890"，同时用作对象存储前缀.
func RunID(g Generator) string {
	return "run-" + strconv.FormatInt(g.Generate(), 10)
}
