package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// RunRecord 一次流水线运行.
type RunRecord struct {
	ID         string `gorm:"primaryKey;size:64"`
	Input      string `gorm:"size:512"`
	Output     string `gorm:"size:512"`
	Parsed         int
	SkippedLines   int
	SkippedRecords int
	Reordered      int
	Merges         int
	Passes         int
	Converged      bool

	// 重排与合并前的汇总
	InputRoutes         int
	InputPassengers     int
	InputPassengerMiles float64
	InputNetProfit      string `gorm:"size:32"`

	Routes         int
	Passengers     int
	PassengerMiles float64
	NetProfit      string `gorm:"size:32"`

	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
}

func (RunRecord) TableName() string { return "flight_runs" }

// RouteRecord 运行结束时的一条航线，金额以分为单位存储.
type RouteRecord struct {
	ID                   uint   `gorm:"primaryKey"`
	RunID                string `gorm:"size:64;index:idx_run_flight,priority:1"`
	Flight               int    `gorm:"index:idx_run_flight,priority:2"`
	Path                 string `gorm:"size:64"` // 以 "-" 连接的航点
	Passengers           int
	DistanceNM           float64
	FlightTimeHours      float64
	LayoverHours         float64
	OperatingCostCents   int64
	MaintenanceCostCents int64
	RevenueCents         int64
	NetProfitCents       int64
	PassengerMiles       float64
	Revised              bool
}

func (RouteRecord) TableName() string { return "flight_routes" }

const pathSep = "-"

// RunRecordOf 把运行结果转为持久化模型.
func RunRecordOf(res *pipeline.Result) RunRecord {
	return RunRecord{
		ID:                  res.RunID,
		Input:               res.Input,
		Output:              res.Output,
		Parsed:              res.Parsed,
		SkippedLines:        res.SkippedLines,
		SkippedRecords:      res.SkippedRecords,
		Reordered:           res.Reordered,
		Merges:              len(res.Report.Merges),
		Passes:              res.Report.Passes,
		Converged:           res.Report.Converged,
		InputRoutes:         res.Before.Routes,
		InputPassengers:     res.Before.Passengers,
		InputPassengerMiles: res.Before.PassengerMiles,
		InputNetProfit:      res.Before.NetProfit.String(),
		Routes:              res.After.Routes,
		Passengers:          res.After.Passengers,
		PassengerMiles:      res.After.PassengerMiles,
		NetProfit:           res.After.NetProfit.String(),
		StartedAt:           res.StartedAt,
		FinishedAt:          res.FinishedAt,
	}
}

// RouteRecordOf 把航线转为持久化模型.
func RouteRecordOf(runID string, r route.Route) RouteRecord {
	return RouteRecord{
		RunID:                runID,
		Flight:               r.Flight,
		Path:                 strings.Join(r.Path(), pathSep),
		Passengers:           r.Passengers,
		DistanceNM:           r.DistanceNM,
		FlightTimeHours:      r.FlightTimeHours,
		LayoverHours:         r.LayoverHours,
		OperatingCostCents:   r.OperatingCost.Cents(),
		MaintenanceCostCents: r.MaintenanceCost.Cents(),
		RevenueCents:         r.Revenue.Cents(),
		NetProfitCents:       r.NetProfit.Cents(),
		PassengerMiles:       r.PassengerMiles,
		Revised:              r.Revised,
	}
}

// Route 还原为领域对象.
func (rec RouteRecord) Route() (route.Route, error) {
	r, err := route.FromPath(rec.Flight, strings.Split(rec.Path, pathSep), rec.Passengers)
	if err != nil {
		return route.Route{}, err
	}
	r.Economics = route.Economics{
		DistanceNM:      rec.DistanceNM,
		FlightTimeHours: rec.FlightTimeHours,
		OperatingCost:   money.NewFromCents(rec.OperatingCostCents),
		LayoverHours:    rec.LayoverHours,
		MaintenanceCost: money.NewFromCents(rec.MaintenanceCostCents),
		Revenue:         money.NewFromCents(rec.RevenueCents),
		NetProfit:       money.NewFromCents(rec.NetProfitCents),
		PassengerMiles:  rec.PassengerMiles,
	}
	r.Revised = rec.Revised
	return r, nil
}

// RunStore 实现 pipeline.Sink，把运行与航线写入数据库.
type RunStore struct {
	runs   *GormRepository[RunRecord]
	routes *GormRepository[RouteRecord]
}

// NewRunStore 创建运行仓储.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{
		runs:   NewGormRepository[RunRecord](db),
		routes: NewGormRepository[RouteRecord](db),
	}
}

// Migrate 创建或更新表结构.
func (s *RunStore) Migrate(ctx context.Context) error {
	if err := s.runs.DB(ctx).AutoMigrate(&RunRecord{}, &RouteRecord{}); err != nil {
		return xerrors.WrapInternal(err, "failed to migrate tables")
	}
	return nil
}

func (s *RunStore) Name() string { return "database" }

// Publish 在一个事务内写入运行记录与全部航线；同一运行重复发布时先清理旧航线.
func (s *RunStore) Publish(ctx context.Context, res *pipeline.Result) error {
	run := RunRecordOf(res)
	rows := make([]RouteRecord, len(res.Routes))
	for i, r := range res.Routes {
		rows[i] = RouteRecordOf(res.RunID, r)
	}

	return s.runs.Transaction(ctx, func(tx *gorm.DB) error {
		txRuns := NewGormRepository[RunRecord](tx)
		if err := txRuns.Upsert(ctx, &run); err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", res.RunID).Delete(&RouteRecord{}).Error; err != nil {
			return xerrors.WrapInternal(err, "failed to clear previous routes")
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return xerrors.WrapInternal(err, "failed to insert routes")
		}
		return nil
	})
}

// Run 查询一次运行.
func (s *RunStore) Run(ctx context.Context, runID string) (*RunRecord, error) {
	return s.runs.FindByID(ctx, runID)
}

// Routes 读取某次运行的航线，按航班号排序.
func (s *RunStore) Routes(ctx context.Context, runID string) ([]route.Route, error) {
	rows, err := s.routes.FindWhere(ctx, "flight", "run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	out := make([]route.Route, 0, len(rows))
	for _, rec := range rows {
		r, err := rec.Route()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
