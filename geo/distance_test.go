package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKmIdentity(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{28.6139, 77.2090},
		{-33.8688, 151.2093},
		{90, 0},
		{-90, 180},
	}
	for _, p := range points {
		assert.Zero(t, DistanceKm(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{28.6139, 77.2090, 19.0760, 72.8777}, // Delhi - Mumbai
		{0, 0, 0, 180},
		{45.0, -120.0, -45.0, 60.0},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceKmKnownValues(t *testing.T) {
	// Delhi to Mumbai, great-circle roughly 1150 km.
	d := DistanceKm(28.6139, 77.2090, 19.0760, 72.8777)
	assert.InDelta(t, 1150, d, 20)

	// One degree of latitude on the meridian is about 111.2 km.
	d = DistanceKm(0, 0, 1, 0)
	assert.InDelta(t, 111.2, d, 0.5)
}

func TestDistanceKmMonotonicWithSeparation(t *testing.T) {
	// Same meridian, growing angular separation.
	prev := 0.0
	for deg := 1.0; deg <= 90; deg += 1 {
		d := DistanceKm(0, 0, deg, 0)
		assert.Greater(t, d, prev)
		prev = d
	}
}
