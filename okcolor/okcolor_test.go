package okcolor

import (
	"math"
	"testing"
)

func TestLabFromSRGB8(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		wantL   float64
	}{
		{"black", 0, 0, 0, 0},
		{"white", 255, 255, 255, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := LabFromSRGB8(tt.r, tt.g, tt.b)
			if math.Abs(lc.L-tt.wantL) > 1e-3 {
				t.Errorf("L = %f, want %f", lc.L, tt.wantL)
			}
			if math.Abs(lc.A) > 1e-3 || math.Abs(lc.B) > 1e-3 {
				t.Errorf("achromatic color has a=%f b=%f", lc.A, lc.B)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range [][3]uint8{{200, 100, 50}, {0, 128, 255}, {17, 17, 17}} {
		r, g, b := LabFromSRGB8(c[0], c[1], c[2]).LinearRGB().SRGB8()
		if r != c[0] || g != c[1] || b != c[2] {
			t.Errorf("round trip of %v gave %d,%d,%d", c, r, g, b)
		}
	}
}

func TestLChRoundTrip(t *testing.T) {
	lc := LabFromSRGB8(200, 100, 50)
	back := lc.LCh().Lab()
	if d := lc.Distance(back); d > 1e-12 {
		t.Errorf("LCh round trip distance %g", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := LabFromSRGB8(10, 20, 30)
	b := LabFromSRGB8(200, 100, 50)
	if a.Distance(b) != b.Distance(a) {
		t.Error("distance is not symmetric")
	}
	if a.Distance(a) != 0 {
		t.Error("distance to self is not zero")
	}
}
