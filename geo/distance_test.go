package geo

import (
	"math"
	"testing"
)

var (
	lax = Point{Lat: 34.0522, Lon: -118.2437}
	jfk = Point{Lat: 40.6413, Lon: -73.7781}
	den = Point{Lat: 39.7392, Lon: -104.9903}
	mia = Point{Lat: 25.7617, Lon: -80.1918}
	sea = Point{Lat: 47.6062, Lon: -122.3321}
)

func TestDistanceLAXJFK(t *testing.T) {
	d := Distance(lax, jfk)
	if math.Abs(d-2145)/2145 > 0.01 {
		t.Errorf("LAX-JFK distance = %.2f nm, want ~2145 (±1%%)", d)
	}
}

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := []Point{lax, jfk, den, mia, sea}
	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			if Distance(a, b) != Distance(b, a) {
				t.Errorf("distance not symmetric for %v, %v", a, b)
			}
		}
	}
}

func TestTriangleInequality(t *testing.T) {
	points := []Point{lax, jfk, den, mia, sea, {Lat: -33.9, Lon: 151.2}, {Lat: 0, Lon: 0}}
	const eps = 1e-9
	for _, a := range points {
		for _, b := range points {
			for _, c := range points {
				if Distance(a, c) > Distance(a, b)+Distance(b, c)+eps {
					t.Errorf("triangle inequality violated for %v %v %v", a, b, c)
				}
			}
		}
	}
}

func TestAntipodalIsStable(t *testing.T) {
	d := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180})
	if math.IsNaN(d) {
		t.Fatalf("antipodal distance is NaN")
	}
	want := math.Pi * EarthRadiusNM
	if math.Abs(d-want) > 1e-6 {
		t.Errorf("antipodal distance = %v, want %v", d, want)
	}
}

func TestPathLength(t *testing.T) {
	if PathLength() != 0 || PathLength(lax) != 0 {
		t.Errorf("short paths must have zero length")
	}
	got := PathLength(lax, den, jfk)
	want := Distance(lax, den) + Distance(den, jfk)
	if got != want {
		t.Errorf("PathLength = %v, want %v", got, want)
	}
	if !WithinRange(lax, den, Distance(lax, den)) {
		t.Errorf("WithinRange should be inclusive")
	}
}
