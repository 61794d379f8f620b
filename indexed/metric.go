package indexed

import (
	"fmt"

	"labelconv/okcolor"
)

// Metric measures how far apart two colors are. Implementations are pure,
// symmetric and return zero only for identical colors. Only the ordering of
// distances matters, so squared distances are fine.
type Metric func(a, b RGB) float64

// WeightedRGB is the squared RGB distance with channels weighted by their
// share of perceived luminance (299/587/114).
func WeightedRGB(a, b RGB) float64 {
	dr := int64(a.R) - int64(b.R)
	dg := int64(a.G) - int64(b.G)
	db := int64(a.B) - int64(b.B)
	return float64(299*dr*dr + 587*dg*dg + 114*db*db)
}

// EuclideanRGB is the plain squared RGB distance.
func EuclideanRGB(a, b RGB) float64 {
	dr := int64(a.R) - int64(b.R)
	dg := int64(a.G) - int64(b.G)
	db := int64(a.B) - int64(b.B)
	return float64(dr*dr + dg*dg + db*db)
}

// OKLab is the squared distance in the OKLab perceptual color space.
func OKLab(a, b RGB) float64 {
	if a == b {
		return 0
	}
	return okcolor.LabFromSRGB8(a.R, a.G, a.B).Distance(okcolor.LabFromSRGB8(b.R, b.G, b.B))
}

// MetricByName resolves the names accepted on the command line.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", "weighted":
		return WeightedRGB, nil
	case "euclidean":
		return EuclideanRGB, nil
	case "oklab":
		return OKLab, nil
	}
	return nil, fmt.Errorf("unknown color metric %q", name)
}

// Index returns the index of the palette entry closest to c under m. Ties
// go to the lowest index.
func (p Palette) Index(c RGB, m Metric) int {
	ret, best := 0, m(c, p[0])
	for i := 1; i < len(p) && best > 0; i++ {
		if d := m(c, p[i]); d < best {
			ret, best = i, d
		}
	}
	return ret
}
