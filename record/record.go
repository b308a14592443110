// Package record 实现航线记录的规范文本格式：每条航线一个块，块内为 "Key: value" 行，块之间以空行分隔。
//
// 缺席的经停写作 None。Stop1 与 Stop2 总是写出，合并后的航线按经停数继续写 Stop3、Stop4 ...
// Revised 行只在航线由合并产生时出现。
package record

import (
	"strconv"
	"strings"
)

// 字段名，按写出顺序排列。
const (
	KeyFlight          = "Flight"
	KeyFlightPath      = "Flight Path"
	KeyOrigin          = "Origin"
	KeyDestination     = "Destination"
	KeyStops           = "Stops"
	KeyPassengers      = "Passengers"
	KeyDistance        = "Distance (Nautical Miles)"
	KeyFlightTime      = "Flight Time (Hours)"
	KeyOperatingCost   = "Operating Cost"
	KeyLayoverTime     = "Layover Time (Hours)"
	KeyMaintenanceCost = "Maintenance Cost"
	KeyIncome          = "Income of Flight"
	KeyNetProfit       = "Net Profit of the Flight"
	KeyPassengerMiles  = "Total Passenger Miles"
	KeyRevised         = "Revised"

	stopPrefix = "Stop"
	none       = "None"
	pathSep    = ", "

	passengerMilesSuffix = " passenger miles"

	// minStopFields 即使没有经停也写出的 StopN 行数。
	minStopFields = 2
)

var knownKeys = map[string]bool{
	KeyFlight: true, KeyFlightPath: true, KeyOrigin: true, KeyDestination: true, KeyStops: true,
	KeyPassengers: true, KeyDistance: true, KeyFlightTime: true, KeyOperatingCost: true,
	KeyLayoverTime: true, KeyMaintenanceCost: true, KeyIncome: true, KeyNetProfit: true,
	KeyPassengerMiles: true, KeyRevised: true,
}

var requiredKeys = []string{KeyFlight, KeyOrigin, KeyDestination, KeyStops, KeyPassengers}

func stopKey(i int) string {
	return stopPrefix + strconv.Itoa(i)
}

// parseStopKey 识别 StopN，返回 N。
func parseStopKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, stopPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
