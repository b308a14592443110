// Package economics 根据距离、经停数与乘客数计算航班的时间、成本、收入与利润。
package economics

import (
	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// LayoverMode 经停时长模型。
type LayoverMode string

const (
	// LayoverFixed 每个经停固定时长。
	LayoverFixed LayoverMode = "fixed"
	// LayoverRandom 每个经停在 [min, max] 内按种子随机。
	LayoverRandom LayoverMode = "random"
)

// Policy 经济模型常量。这些是策略参数而非推导值。
type Policy struct {
	CruiseSpeedKnots       float64
	OperatingCostPerHour   float64
	TicketPrice            float64
	Capacity               int
	LayoverMode            LayoverMode
	LayoverHoursPerStop    float64
	LayoverMinHours        float64
	LayoverMaxHours        float64
	MaintenanceCostPerHour float64
	Seed                   uint64
}

// DefaultPolicy 返回原始数据集使用的参数。
func DefaultPolicy() Policy {
	return Policy{
		CruiseSpeedKnots:       485,
		OperatingCostPerHour:   5757,
		TicketPrice:            384.85,
		Capacity:               route.DefaultCapacity,
		LayoverMode:            LayoverFixed,
		LayoverHoursPerStop:    1.5,
		LayoverMinHours:        1,
		LayoverMaxHours:        2,
		MaintenanceCostPerHour: 150,
		Seed:                   1,
	}
}

// PolicyFromConfig 由配置段构造策略。
func PolicyFromConfig(c config.PolicyConfig) Policy {
	return Policy{
		CruiseSpeedKnots:       c.CruiseSpeedKnots,
		OperatingCostPerHour:   c.OperatingCostPerHour,
		TicketPrice:            c.TicketPrice,
		Capacity:               c.Capacity,
		LayoverMode:            LayoverMode(c.LayoverMode),
		LayoverHoursPerStop:    c.LayoverHoursPerStop,
		LayoverMinHours:        c.LayoverMinHours,
		LayoverMaxHours:        c.LayoverMaxHours,
		MaintenanceCostPerHour: c.MaintenanceCostPerHour,
		Seed:                   c.Seed,
	}
}

// Validate 检查策略参数是否可用于计算。
func (p Policy) Validate() error {
	switch {
	case p.CruiseSpeedKnots <= 0:
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "cruise speed must be positive, got %v", p.CruiseSpeedKnots)
	case p.Capacity <= 0:
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "capacity must be positive, got %d", p.Capacity)
	case p.OperatingCostPerHour < 0 || p.MaintenanceCostPerHour < 0 || p.TicketPrice < 0:
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "rates and prices must not be negative")
	}
	switch p.LayoverMode {
	case LayoverFixed:
		if p.LayoverHoursPerStop < 0 {
			return xerrors.Errorf(xerrors.ErrInvalidConfig, "negative layover hours %v", p.LayoverHoursPerStop)
		}
	case LayoverRandom:
		if p.LayoverMinHours < 0 || p.LayoverMaxHours < p.LayoverMinHours {
			return xerrors.Errorf(xerrors.ErrInvalidConfig, "layover range [%v, %v] is invalid", p.LayoverMinHours, p.LayoverMaxHours)
		}
	default:
		return xerrors.Errorf(xerrors.ErrInvalidConfig, "unknown layover mode %q", p.LayoverMode)
	}
	return nil
}
