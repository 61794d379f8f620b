package mangle

import (
	"fmt"
	"image"
	"image/color"

	"labelconv/indexed"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/makeworld-the-better-one/dither/v2"
)

// Palette builders selectable with --builder.
const (
	BuilderMedian   = "median"
	BuilderQuantize = "quantize"
)

var matrices = map[string]dither.ErrorDiffusionMatrix{
	"atkinson":            dither.Atkinson,
	"burkes":              dither.Burkes,
	"jarvis-judice-ninke": dither.JarvisJudiceNinke,
	"sierra":              dither.Sierra,
	"sierra-lite":         dither.SierraLite,
	"stucki":              dither.Stucki,
	"two-row-sierra":      dither.TwoRowSierra,
}

// quantizePalette builds a palette of at most 2^depth colors with the
// mean-aggregating median cut of go-quantize. Duplicate entries are dropped.
func quantizePalette(img image.Image, depth int) (indexed.Palette, error) {
	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean, AddTransparent: false}
	cp := q.Quantize(make(color.Palette, 0, indexed.Capacity(depth)), img)

	seen := make(map[indexed.RGB]bool, len(cp))
	pal := make(indexed.Palette, 0, len(cp))
	for _, c := range cp {
		rgb := indexed.RGBModel.Convert(c).(indexed.RGB)
		if !seen[rgb] {
			seen[rgb] = true
			pal = append(pal, rgb)
		}
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("%w: quantizer returned no colors", indexed.ErrInvalidInput)
	}
	return pal, nil
}

// choosePalette returns the palette the file is encoded with: the fixed one,
// the go-quantize one, or nil to let the encoder build it.
func (c *CLICmd) choosePalette(img image.Image, opts indexed.Options) (indexed.Palette, error) {
	switch {
	case opts.Palette != nil:
		return opts.Palette, nil
	case c.Builder == BuilderQuantize:
		return quantizePalette(img, c.Depth)
	case c.extraMatrix():
		return indexed.BuildPalette(indexed.FromImage(img), c.Depth, opts.Metric, nil)
	}
	return nil, nil
}

// diffuse applies one of the extra error diffusion matrices. The result
// only holds palette colors, so the encoder maps it without error.
func diffuse(img image.Image, pal indexed.Palette, matrix string, serpentine bool) (image.Image, error) {
	m, ok := matrices[matrix]
	if !ok {
		return nil, fmt.Errorf("unknown diffusion matrix %q", matrix)
	}
	d := dither.NewDitherer(pal.ColorPalette())
	if d == nil {
		return nil, fmt.Errorf("%w: palette rejected by ditherer", indexed.ErrInvalidInput)
	}
	d.Matrix = m
	d.Serpentine = serpentine
	if out := d.Dither(img); out != nil {
		return out, nil
	}
	return img, nil
}

func (c *CLICmd) extraMatrix() bool {
	return c.Dither && c.Matrix != "" && c.Matrix != "floyd-steinberg"
}
