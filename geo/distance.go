// Package geo 提供了地理位置计算工具。
// 使用 Haversine 公式计算两点间的大圆距离，单位为海里。
package geo

import (
	"math"
)

// EarthRadiusNM 地球半径（海里）。
const EarthRadiusNM = 3440.065

const degreeToRadFactor = math.Pi / 180.0

// Point 表示一个地理经纬度坐标点（十进制度）。
type Point struct {
	Lat float64 // 纬度
	Lon float64 // 经度
}

// Distance 计算两点间的大圆距离（单位：海里）。
// 根号内的参数被钳制在 [0,1]，避免同点或对跖点附近的浮点溢出产生 NaN。
func Distance(p1, p2 Point) float64 {
	lat1 := p1.Lat * degreeToRadFactor
	lat2 := p2.Lat * degreeToRadFactor
	dLat := (p2.Lat - p1.Lat) * degreeToRadFactor
	dLon := (p2.Lon - p1.Lon) * degreeToRadFactor

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusNM * c
}

// PathLength 按顺序累加相邻点之间的距离。少于两个点时返回 0。
func PathLength(points ...Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// WithinRange 检查两点是否在指定范围内（单位：海里）。
func WithinRange(p1, p2 Point, rangeNM float64) bool {
	return Distance(p1, p2) <= rangeNM
}
