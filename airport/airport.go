// Package airport 提供了不可变的机场查询表，以及机场参考数据的读写。
package airport

import (
	"slices"

	"github.com/wyfcoding/flightroute/geo"
	"github.com/wyfcoding/flightroute/xerrors"
)

// Airport 机场参考数据。Population 只用于加权生成乘客数。
type Airport struct {
	Code       string  `validate:"required,len=3,uppercase"`
	Name       string  `validate:"required,excludes=0x2C"`
	Population int64   `validate:"gte=0"`
	Lat        float64 `validate:"gte=-90,lte=90"`
	Lon        float64 `validate:"gte=-180,lte=180"`
}

// Point 返回机场坐标。
func (a Airport) Point() geo.Point {
	return geo.Point{Lat: a.Lat, Lon: a.Lon}
}

// Table 以 IATA 代码为键的只读机场表，构建后不再修改，可安全共享。
type Table struct {
	byCode map[string]Airport
	codes  []string
}

// NewTable 构建机场表。代码重复时后者覆盖前者。
func NewTable(airports ...Airport) *Table {
	t := &Table{byCode: make(map[string]Airport, len(airports))}
	for _, a := range airports {
		if _, ok := t.byCode[a.Code]; !ok {
			t.codes = append(t.codes, a.Code)
		}
		t.byCode[a.Code] = a
	}
	slices.Sort(t.codes)
	return t
}

// Lookup 按代码查找机场。
func (t *Table) Lookup(code string) (Airport, bool) {
	if t == nil {
		return Airport{}, false
	}
	a, ok := t.byCode[code]
	return a, ok
}

// Point 返回机场坐标；代码不存在时返回 ErrInsufficientData，绝不返回零坐标。
func (t *Table) Point(code string) (geo.Point, error) {
	a, ok := t.Lookup(code)
	if !ok {
		return geo.Point{}, xerrors.Errorf(xerrors.ErrInsufficientData, "no coordinates for airport %q", code).
			WithCause(xerrors.Errorf(xerrors.ErrUnknownAirport, "%s", code))
	}
	return a.Point(), nil
}

// Points 按顺序解析一组代码的坐标。
func (t *Table) Points(codes []string) ([]geo.Point, error) {
	points := make([]geo.Point, 0, len(codes))
	for _, code := range codes {
		p, err := t.Point(code)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Distance 两个机场之间的大圆距离（海里）。
func (t *Table) Distance(from, to string) (float64, error) {
	a, err := t.Point(from)
	if err != nil {
		return 0, err
	}
	b, err := t.Point(to)
	if err != nil {
		return 0, err
	}
	return geo.Distance(a, b), nil
}

// PathLength 按顺序累加路径上各航段的距离。
func (t *Table) PathLength(codes []string) (float64, error) {
	points, err := t.Points(codes)
	if err != nil {
		return 0, err
	}
	return geo.PathLength(points...), nil
}

// Codes 返回排序后的全部机场代码（副本）。
func (t *Table) Codes() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.codes)
}

// Airports 按代码顺序返回全部机场。
func (t *Table) Airports() []Airport {
	out := make([]Airport, 0, t.Len())
	for _, code := range t.Codes() {
		out = append(out, t.byCode[code])
	}
	return out
}

// Len 机场数量。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// DefaultTable 返回内置的十个美国机场。
func DefaultTable() *Table {
	return NewTable(
		Airport{Code: "LAX", Name: "Los Angeles International", Population: 3898747, Lat: 34.0522, Lon: -118.2437},
		Airport{Code: "PHX", Name: "Phoenix Sky Harbor International", Population: 1608139, Lat: 33.4484, Lon: -112.074},
		Airport{Code: "DEN", Name: "Denver International", Population: 715522, Lat: 39.7392, Lon: -104.9903},
		Airport{Code: "DFW", Name: "Dallas/Fort Worth International", Population: 1304379, Lat: 32.8975, Lon: -97.0404},
		Airport{Code: "JFK", Name: "John F. Kennedy International", Population: 8804190, Lat: 40.6413, Lon: -73.7781},
		Airport{Code: "MIA", Name: "Miami International", Population: 442241, Lat: 25.7617, Lon: -80.1918},
		Airport{Code: "SEA", Name: "Seattle-Tacoma International", Population: 737015, Lat: 47.6062, Lon: -122.3321},
		Airport{Code: "ORD", Name: "O'Hare International", Population: 2746388, Lat: 41.9786, Lon: -87.9048},
		Airport{Code: "ABQ", Name: "Albuquerque International Sunport", Population: 564559, Lat: 35.0844, Lon: -106.6504},
		Airport{Code: "MCI", Name: "Kansas City International", Population: 508090, Lat: 39.2978, Lon: -94.7139},
	)
}
