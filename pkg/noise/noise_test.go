package noise

import (
	"math"
	"testing"
)

func TestNoiseZeroAtLatticePoints(t *testing.T) {
	points := [][3]float64{
		{0, 0, 0},
		{1, 2, 3},
		{-4, 7, 0},
		{255, 256, 512},
	}
	for _, pt := range points {
		if got := Noise3(pt[0], pt[1], pt[2]); got != 0 {
			t.Errorf("Noise3(%v) = %v, want 0", pt, got)
		}
	}
}

func TestNoiseIsDeterministicAndBounded(t *testing.T) {
	for i := 0; i < 200; i++ {
		x := float64(i)*0.173 - 17
		y := float64(i)*0.291 + 3
		z := float64(i) * 0.057
		a := Noise3(x, y, z)
		b := Noise3(x, y, z)
		if a != b {
			t.Fatalf("Noise3 not deterministic at (%v, %v, %v): %v != %v", x, y, z, a, b)
		}
		if math.Abs(a) > 1.1 {
			t.Errorf("Noise3(%v, %v, %v) = %v, outside expected range", x, y, z, a)
		}
	}
}

func TestNoiseIsContinuous(t *testing.T) {
	const step = 1e-6
	for i := 0; i < 50; i++ {
		x := float64(i)*0.37 + 0.01
		y := float64(i)*0.11 - 2.5
		d := math.Abs(Noise2(x, y) - Noise2(x+step, y))
		if d > 1e-4 {
			t.Errorf("noise jumps by %v between %v and %v", d, x, x+step)
		}
	}
}

func TestNoise2MatchesNoise3OnPlane(t *testing.T) {
	if Noise2(0.3, 0.7) != Noise3(0.3, 0.7, 0) {
		t.Error("Noise2 should equal Noise3 with z=0")
	}
}
