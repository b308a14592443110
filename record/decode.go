package record

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/wyfcoding/flightroute/money"
	"github.com/wyfcoding/flightroute/route"
	"github.com/wyfcoding/flightroute/xerrors"
)

// field 块内一行解析后的结果。
type field struct {
	line  int
	value string
}

// block 一条航线的原始行。
type block struct {
	start  int
	text   string
	fields map[string]field
	stops  map[int]field
}

// Decode 读取规范格式的航线记录。
// 无法解析的行与不一致的块作为 Issue 上报并跳过，只有读取失败才返回 error。
func Decode(r io.Reader) ([]route.Route, []xerrors.Issue, error) {
	var (
		routes []route.Route
		issues []xerrors.Issue
		cur    *block
	)

	flush := func() {
		if cur == nil {
			return
		}
		rt, err := cur.build()
		if err != nil {
			issues = append(issues, xerrors.Issue{Line: cur.start, Text: cur.text, Err: err, Record: true})
		} else {
			routes = append(routes, rt)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if cur == nil {
			cur = &block{start: lineNo, text: raw, fields: make(map[string]field), stops: make(map[int]field)}
		}
		if err := cur.add(lineNo, line); err != nil {
			issues = append(issues, xerrors.Issue{Line: lineNo, Text: raw, Err: err})
		}
	}
	if err := scanner.Err(); err != nil {
		return routes, issues, xerrors.WrapInternal(err, "read records")
	}
	flush()
	return routes, issues, nil
}

func (b *block) add(lineNo int, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return xerrors.Errorf(xerrors.ErrMalformedRecord, "missing ':' separator")
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if n, isStop := parseStopKey(key); isStop {
		if _, dup := b.stops[n]; dup {
			return xerrors.Errorf(xerrors.ErrMalformedRecord, "duplicate key %q", key)
		}
		b.stops[n] = field{line: lineNo, value: value}
		return nil
	}
	if !knownKeys[key] {
		return xerrors.Errorf(xerrors.ErrMalformedRecord, "unknown key %q", key)
	}
	if _, dup := b.fields[key]; dup {
		return xerrors.Errorf(xerrors.ErrMalformedRecord, "duplicate key %q", key)
	}
	if err := checkValue(key, value); err != nil {
		return err
	}
	b.fields[key] = field{line: lineNo, value: value}
	return nil
}

// checkValue 在入块前校验数值字段，坏值按行上报。
func checkValue(key, value string) error {
	var err error
	switch key {
	case KeyFlight, KeyStops, KeyPassengers:
		_, err = strconv.Atoi(value)
	case KeyDistance, KeyFlightTime, KeyLayoverTime:
		_, err = strconv.ParseFloat(value, 64)
	case KeyPassengerMiles:
		_, err = strconv.ParseFloat(trimUnit(value), 64)
	case KeyOperatingCost, KeyMaintenanceCost, KeyIncome, KeyNetProfit:
		_, err = money.NewFromString(value)
	case KeyRevised:
		_, err = strconv.ParseBool(value)
	}
	if err != nil {
		return xerrors.Errorf(xerrors.ErrMalformedRecord, "bad value for %q: %q", key, value).WithCause(err)
	}
	return nil
}

func (b *block) build() (route.Route, error) {
	for _, key := range requiredKeys {
		if _, ok := b.fields[key]; !ok {
			return route.Route{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "block missing %q", key)
		}
	}

	flight, _ := strconv.Atoi(b.fields[KeyFlight].value)
	stopCount, _ := strconv.Atoi(b.fields[KeyStops].value)
	passengers, _ := strconv.Atoi(b.fields[KeyPassengers].value)

	stops, err := b.collectStops()
	if err != nil {
		return route.Route{}, xerrors.Wrap(err, xerrors.ErrInvalidArg, "flight "+strconv.Itoa(flight))
	}
	if len(stops) != stopCount {
		return route.Route{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "flight %d: Stops is %d but %d stop fields present", flight, stopCount, len(stops))
	}

	r := route.Route{
		Flight:      flight,
		Origin:      b.fields[KeyOrigin].value,
		Stops:       stops,
		Destination: b.fields[KeyDestination].value,
		Passengers:  passengers,
	}
	if f, ok := b.fields[KeyFlightPath]; ok {
		path := strings.Split(f.value, ",")
		for i := range path {
			path[i] = strings.TrimSpace(path[i])
		}
		if !slices.Equal(path, r.Path()) {
			return route.Route{}, xerrors.Errorf(xerrors.ErrMalformedRecord, "flight %d: Flight Path %q disagrees with origin/stops/destination", flight, f.value)
		}
	}

	r.DistanceNM = b.floatField(KeyDistance)
	r.FlightTimeHours = b.floatField(KeyFlightTime)
	r.LayoverHours = b.floatField(KeyLayoverTime)
	r.PassengerMiles = b.floatField(KeyPassengerMiles)
	r.OperatingCost = b.moneyField(KeyOperatingCost)
	r.MaintenanceCost = b.moneyField(KeyMaintenanceCost)
	r.Revenue = b.moneyField(KeyIncome)
	r.NetProfit = b.moneyField(KeyNetProfit)
	if f, ok := b.fields[KeyRevised]; ok {
		r.Revised, _ = strconv.ParseBool(f.value)
	}
	return r, nil
}

// collectStops 按编号取出非 None 的经停；None 之后不允许再出现经停。
func (b *block) collectStops() ([]string, error) {
	if len(b.stops) == 0 {
		return nil, nil
	}
	maxN := 0
	for n := range b.stops {
		maxN = max(maxN, n)
	}
	var (
		stops   []string
		sawNone bool
	)
	for n := 1; n <= maxN; n++ {
		f, ok := b.stops[n]
		if !ok || strings.EqualFold(f.value, none) || f.value == "" {
			sawNone = true
			continue
		}
		if sawNone {
			return nil, xerrors.Errorf(xerrors.ErrMalformedRecord, "%s present after an absent stop", stopKey(n))
		}
		stops = append(stops, f.value)
	}
	return stops, nil
}

func (b *block) floatField(key string) float64 {
	f, ok := b.fields[key]
	if !ok {
		return 0
	}
	out, _ := strconv.ParseFloat(trimUnit(f.value), 64)
	return out
}

// trimUnit 去掉 "passenger miles." 单位后缀。
func trimUnit(v string) string {
	return strings.TrimSuffix(strings.TrimSuffix(v, "."), passengerMilesSuffix)
}

func (b *block) moneyField(key string) money.Money {
	f, ok := b.fields[key]
	if !ok {
		return money.Zero
	}
	m, _ := money.NewFromString(f.value)
	return m.Round()
}
