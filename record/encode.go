package record

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wyfcoding/flightroute/route"
)

// Encode 按规范格式写出航线。
func Encode(w io.Writer, routes []route.Route) error {
	bw := bufio.NewWriter(w)
	for i, r := range routes {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		if err := encodeOne(bw, r); err != nil {
			return fmt.Errorf("encode flight %d: %w", r.Flight, err)
		}
	}
	return bw.Flush()
}

func encodeOne(w *bufio.Writer, r route.Route) error {
	line := func(key, value string) {
		w.WriteString(key)
		w.WriteString(": ")
		w.WriteString(value)
		w.WriteByte('\n')
	}

	line(KeyFlight, strconv.Itoa(r.Flight))
	line(KeyFlightPath, strings.Join(r.Path(), pathSep))
	line(KeyOrigin, r.Origin)
	line(KeyDestination, r.Destination)
	line(KeyStops, strconv.Itoa(r.StopCount()))
	for i := 1; i <= max(minStopFields, r.StopCount()); i++ {
		stop, ok := r.Stop(i)
		if !ok {
			stop = none
		}
		line(stopKey(i), stop)
	}
	line(KeyPassengers, strconv.Itoa(r.Passengers))
	line(KeyDistance, formatFloat(r.DistanceNM))
	line(KeyFlightTime, formatFloat(r.FlightTimeHours))
	line(KeyOperatingCost, r.OperatingCost.Dollars())
	line(KeyLayoverTime, formatFloat(r.LayoverHours))
	line(KeyMaintenanceCost, r.MaintenanceCost.Dollars())
	line(KeyIncome, r.Revenue.Dollars())
	line(KeyNetProfit, r.NetProfit.Dollars())
	line(KeyPassengerMiles, formatFloat(r.PassengerMiles)+passengerMilesSuffix)
	if r.Revised {
		line(KeyRevised, "true")
	}
	// bufio.Writer 记住第一个写错误
	_, err := w.Write(nil)
	return err
}
