package mangle

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"labelconv/indexed"
	"labelconv/palette"
	"labelconv/parallel"
	"labelconv/store"

	"github.com/alecthomas/kong"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

type CLICmd struct {
	Scan       string `help:"Source folder to scan" default:"."`
	Dest       string `help:"Destination folder for indexed bitmaps. Relative to scan dir if not absolute." default:"indexed"`
	Overwrite  bool   `help:"Replace existing bitmaps in the destination folder" default:"false"`
	Resize     bool   `help:"Resize image" default:"false" group:"resize"`
	Width      int    `help:"Max width" group:"resize"`
	Height     int    `help:"Max height" group:"resize"`
	Crop       bool   `help:"Crop image to maintain requested aspect ratio" default:"false" group:"resize"`
	Fill       string `help:"Background color for transparency, and for padding when resizing without cropping" group:"resize"`
	Depth      int    `help:"Bits per pixel: 1, 4 or 8" default:"8" group:"encode"`
	Palette    string `help:"Fixed palette name (bw, gray4, gray16, vga16, websafe, plan9) or PAL file in RIFF format" group:"encode"`
	Dither     bool   `help:"Apply Floyd-Steinberg dithering" default:"false" group:"encode"`
	Serpentine bool   `help:"Alternate scan direction when dithering" default:"false" group:"encode"`
	Matrix     string `help:"Error diffusion matrix used with --dither" enum:"floyd-steinberg,atkinson,burkes,jarvis-judice-ninke,sierra,sierra-lite,stucki,two-row-sierra" default:"floyd-steinberg" group:"encode"`
	Builder    string `help:"Palette builder when no fixed palette is given" enum:"median,quantize" default:"median" group:"encode"`
	Metric     string `help:"Color distance" enum:"weighted,euclidean,oklab" default:"weighted" group:"encode"`
	TopDown    bool   `help:"Store rows top to bottom" default:"false" group:"encode"`
	DPI        int    `help:"Resolution recorded in the bitmap header" default:"600" group:"encode"`

	FillColor color.Color     `kong:"-"`
	options   indexed.Options `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.Resize {
		switch {
		case c.Width < 0:
			return fmt.Errorf("invalid resize width: %d", c.Width)
		case c.Height < 0:
			return fmt.Errorf("invalid resize height: %d", c.Height)
		case c.Width == 0 && c.Height == 0:
			return fmt.Errorf("no resize dimensions given")
		}
	}

	switch c.Depth {
	case 1, 4, 8:
	default:
		return fmt.Errorf("invalid bit depth %d, must be 1, 4 or 8", c.Depth)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("invalid resolution: %d", c.DPI)
	}

	if c.Fill != "" {
		if c.FillColor, err = palette.ParseHex(c.Fill); err != nil {
			return err
		}
	}

	c.options, err = c.encodeOptions()
	return err
}

func (c *CLICmd) Run(ctx context.Context, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	var processedCount, errCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		worker(func(fileName string) func() {
			return func() {
				if ctx.Err() != nil {
					errCount.Add(1)
					return
				}
				logger := slog.Default().With("file", filepath.Join(c.Scan, fileName))
				if err := c.process(ctx, logger, fileName); err != nil {
					errCount.Add(1)
					logger.Error("could not convert image", "error", err)
					return
				}
				processedCount.Add(1)
			}
		}(file.Name()))
	}

	wait(true)

	processed := processedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "processed", processed, "errors", errors,
		"total", processed+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return nil
}

func (c *CLICmd) process(ctx context.Context, logger *slog.Logger, fileName string) error {
	imgFile, err := os.Open(filepath.Join(c.Scan, fileName))
	if err != nil {
		return fmt.Errorf("could not open image: %w", err)
	}
	img, imgType, err := image.Decode(imgFile)
	if closeErr := imgFile.Close(); closeErr != nil {
		logger.Warn("could not close image", "error", closeErr)
	}
	if err != nil {
		return fmt.Errorf("could not decode image: %w", err)
	}
	logger.Debug("decoded", "format", imgType)

	if c.Resize {
		var pad color.Color
		if !c.Crop {
			pad = c.FillColor
		}
		img = resize(logger, img, c.Width, c.Height, c.Crop, pad)
	}

	img = flatten(img, c.FillColor)
	opts := c.options
	pal, err := c.choosePalette(img, opts)
	if err != nil {
		return fmt.Errorf("could not build palette: %w", err)
	}
	opts.Palette = pal
	if c.extraMatrix() {
		if img, err = diffuse(img, pal, c.Matrix, c.Serpentine); err != nil {
			return err
		}
		opts.Dither = false
	}

	packed, err := indexed.EncodeImage(img, c.Depth, &opts)
	if err != nil {
		return err
	}
	logger.Info("encoded", "colors", len(packed.Palette()), "bytes", len(packed.Bytes()))

	dest := store.FileStore{Path: filepath.Join(c.Dest, destName(fileName)), Overwrite: c.Overwrite}
	return dest.Put(ctx, packed.Bytes())
}
