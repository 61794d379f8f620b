package okcolor

import "math"

type LinearRGB struct {
	R float64
	G float64
	B float64
}

// toLinear8 maps every 8-bit sRGB channel value to linear light.
var toLinear8 = func() (lut [256]float64) {
	for i := range lut {
		lut[i] = toLinear(float64(i) / 255)
	}
	return lut
}()

// LinearFromSRGB8 converts an 8-bit sRGB triple to linear RGB in [0, 1].
func LinearFromSRGB8(r, g, b uint8) LinearRGB {
	return LinearRGB{
		R: toLinear8[r],
		G: toLinear8[g],
		B: toLinear8[b],
	}
}

// SRGB8 converts back to 8-bit sRGB, clamping out of range channels.
func (lc LinearRGB) SRGB8() (uint8, uint8, uint8) {
	return to8(fromLinear(lc.R)), to8(fromLinear(lc.G)), to8(fromLinear(lc.B))
}

func to8(x float64) uint8 {
	return uint8(math.Round(clamp(x, 0, 1) * 255))
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(hi, x))
}

func toLinear(x float64) float64 {
	if x >= 0.04045 {
		return math.Pow((x+0.055)/1.055, 2.4)
	} else {
		return x / 12.92
	}
}

const pow float64 = 1.0 / 2.4

func fromLinear(x float64) float64 {
	if x >= 0.0031308 {
		return math.Pow(x, pow)*1.055 - 0.055
	} else {
		return x * 12.92
	}
}
