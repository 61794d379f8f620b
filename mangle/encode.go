package mangle

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"labelconv/indexed"
	"labelconv/palette"
	"labelconv/raster"
)

// encodeOptions collects the per-file encoder settings. Every file is
// encoded on a single goroutine because files already run on the pool.
func (c *CLICmd) encodeOptions() (indexed.Options, error) {
	opts := indexed.Options{
		Dither:     c.Dither,
		Serpentine: c.Serpentine,
		TopDown:    c.TopDown,
		DPI:        c.DPI,
		Workers:    1,
	}

	m, err := indexed.MetricByName(c.Metric)
	if err != nil {
		return indexed.Options{}, err
	}
	opts.Metric = m

	if c.Palette != "" {
		cp, err := palette.LoadPalette(c.Palette)
		if err != nil {
			return indexed.Options{}, err
		}
		if capacity := indexed.Capacity(c.Depth); len(cp) > capacity {
			return indexed.Options{}, fmt.Errorf("palette %q has %d colors, %d bits hold %d", c.Palette, len(cp), c.Depth, capacity)
		}
		if opts.Palette, err = indexed.PaletteFrom(cp); err != nil {
			return indexed.Options{}, fmt.Errorf("invalid palette %q: %w", c.Palette, err)
		}
	}
	return opts, nil
}

// flatten removes transparency using the fill color, white when unset.
func flatten(img image.Image, fill color.Color) image.Image {
	return raster.FlattenAlpha(img, fill)
}

// destName swaps the extension of srcName for .bmp.
func destName(srcName string) string {
	ext := filepath.Ext(srcName)
	return srcName[:len(srcName)-len(ext)] + ".bmp"
}
