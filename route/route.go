// Package route 定义航线记录：有序航点、乘客数与派生的经济指标。
package route

import (
	"slices"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/xerrors"
)

// DefaultCapacity 默认机型座位数。
const DefaultCapacity = 204

// Economics 由经济模型从零计算出的派生字段。
type Economics struct {
	DistanceNM      float64
	FlightTimeHours float64
	OperatingCost   money.Money
	LayoverHours    float64
	MaintenanceCost money.Money
	Revenue         money.Money
	NetProfit       money.Money
	PassengerMiles  float64
}

// Equal 逐字段比较，金额按值比较。
func (e Economics) Equal(o Economics) bool {
	return e.DistanceNM == o.DistanceNM &&
		e.FlightTimeHours == o.FlightTimeHours &&
		e.LayoverHours == o.LayoverHours &&
		e.PassengerMiles == o.PassengerMiles &&
		e.OperatingCost.Equal(o.OperatingCost) &&
		e.MaintenanceCost.Equal(o.MaintenanceCost) &&
		e.Revenue.Equal(o.Revenue) &&
		e.NetProfit.Equal(o.NetProfit)
}

// Route 一条航线。Stops 为可选经停，nil 表示没有经停。
type Route struct {
	Flight      int
	Origin      string
	Stops       []string
	Destination string
	Passengers  int
	Economics
	Revised bool // 合并产生的航线
}

// FromPath 由有序航点构造航线，首尾分别为起点与终点。
func FromPath(flight int, path []string, passengers int) (Route, error) {
	if len(path) < 2 {
		return Route{}, xerrors.Errorf(xerrors.ErrInvalidRoute, "flight %d: path needs at least 2 airports, got %d", flight, len(path))
	}
	r := Route{
		Flight:      flight,
		Origin:      path[0],
		Destination: path[len(path)-1],
		Passengers:  passengers,
	}
	if len(path) > 2 {
		r.Stops = slices.Clone(path[1 : len(path)-1])
	}
	return r, nil
}

// Path 返回起点、经停与终点组成的完整航点序列。
func (r Route) Path() []string {
	path := make([]string, 0, len(r.Stops)+2)
	path = append(path, r.Origin)
	path = append(path, r.Stops...)
	return append(path, r.Destination)
}

// StopCount 返回经停数。
func (r Route) StopCount() int {
	return len(r.Stops)
}

// Stop 返回第 i 个经停（从 1 开始），不存在时返回 false。
func (r Route) Stop(i int) (string, bool) {
	if i < 1 || i > len(r.Stops) {
		return "", false
	}
	return r.Stops[i-1], true
}

// Clone 深拷贝，避免共享 Stops 底层数组。
func (r Route) Clone() Route {
	r.Stops = slices.Clone(r.Stops)
	return r
}

// Validate 校验航线不变量。
func (r Route) Validate(capacity int) error {
	if r.Passengers < 0 || r.Passengers > capacity {
		return xerrors.Errorf(xerrors.ErrCapacityExceeded, "flight %d: %d passengers, capacity %d", r.Flight, r.Passengers, capacity)
	}
	if r.DistanceNM < 0 {
		return xerrors.Errorf(xerrors.ErrInvalidRoute, "flight %d: negative distance %v", r.Flight, r.DistanceNM)
	}
	if r.Origin == r.Destination {
		return xerrors.Errorf(xerrors.ErrInvalidRoute, "flight %d: origin equals destination %s", r.Flight, r.Origin)
	}
	path := r.Path()
	for i, code := range path {
		if code == "" {
			return xerrors.Errorf(xerrors.ErrInvalidRoute, "flight %d: empty airport code at position %d", r.Flight, i)
		}
		if i > 0 && path[i-1] == code {
			return xerrors.Errorf(xerrors.ErrInvalidRoute, "flight %d: repeated adjacent airport %s", r.Flight, code)
		}
	}
	return nil
}

// Equal 逐字段比较两条航线。
func (r Route) Equal(o Route) bool {
	return r.Flight == o.Flight &&
		r.Origin == o.Origin &&
		r.Destination == o.Destination &&
		r.Passengers == o.Passengers &&
		r.Revised == o.Revised &&
		slices.Equal(r.Stops, o.Stops) &&
		r.Economics.Equal(o.Economics)
}
