package indexed

import (
	"fmt"
	"image"
	"io"

	"labelconv/parallel"
)

// DefaultDPI is the resolution recorded in the header when none is given.
const DefaultDPI = 600

// Options tune Encode. The zero value builds a palette from the image,
// matches without dithering under WeightedRGB and stores rows bottom-up.
type Options struct {
	// Dither enables Floyd-Steinberg error diffusion.
	Dither bool
	// Serpentine alternates the scan direction per row when dithering.
	Serpentine bool
	// Metric compares colors for palette matching. Nil means WeightedRGB.
	Metric Metric
	// Palette, when set, is used instead of one built from the image.
	Palette Palette
	// DPI is recorded as the bitmap resolution. Zero means DefaultDPI.
	DPI int
	// TopDown stores row 0 first and marks the header with a negative height.
	TopDown bool
	// Workers bounds the goroutines used per call. Zero means GOMAXPROCS.
	Workers int
}

// PackedImage is an encoded indexed bitmap. It owns its byte buffer.
type PackedImage struct {
	header  Header
	palette Palette
	data    []byte
}

func (p *PackedImage) Width() int       { return p.header.Width }
func (p *PackedImage) Height() int      { return p.header.Height }
func (p *PackedImage) Depth() int       { return p.header.Depth }
func (p *PackedImage) Stride() int      { return p.header.Stride() }
func (p *PackedImage) Header() Header   { return p.header }
func (p *PackedImage) Palette() Palette { return p.palette }

// Bytes returns the serialized bitmap.
func (p *PackedImage) Bytes() []byte {
	return p.data
}

// WriteTo writes the serialized bitmap to w.
func (p *PackedImage) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.data)
	if err == nil && n != len(p.data) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Encode reduces src to depth bits per pixel and serializes it as an
// uncompressed BMP. On error no image is returned.
func Encode(src *PixelBuffer, depth int, opts *Options) (*PackedImage, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	if err := src.validate(); err != nil {
		return nil, err
	}

	metric := opts.Metric
	if metric == nil {
		metric = WeightedRGB
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = DefaultDPI
	}
	order := BottomUp
	if opts.TopDown {
		order = TopDown
	}

	pool := parallel.Start(opts.Workers)
	defer pool.Wait(true)

	pal := opts.Palette
	if pal != nil {
		if err := checkPalette(pal, Capacity(depth)); err != nil {
			return nil, err
		}
	} else {
		var err error
		if pal, err = BuildPalette(src, depth, metric, pool); err != nil {
			return nil, fmt.Errorf("could not build palette: %w", err)
		}
	}

	var idx *IndexBuffer
	var err error
	if opts.Dither {
		idx, err = Diffuse(src, pal, metric, opts.Serpentine)
	} else {
		idx, err = Quantize(src, pal, metric, pool)
	}
	if err != nil {
		return nil, fmt.Errorf("could not quantize: %w", err)
	}

	pixels, _, err := Pack(idx, depth, order, pool)
	if err != nil {
		return nil, fmt.Errorf("could not pack pixels: %w", err)
	}

	h := Header{
		Width:   src.Width,
		Height:  src.Height,
		Depth:   depth,
		TopDown: opts.TopDown,
		DPI:     dpi,
	}
	data, err := assemble(h, pal, pixels)
	if err != nil {
		return nil, err
	}
	h.PaletteSize = len(pal)
	h.DataOffset = HeaderSize + PaletteEntrySize*len(pal)
	h.FileSize = len(data)

	return &PackedImage{header: h, palette: pal, data: data}, nil
}

// EncodeImage is Encode for any image.Image.
func EncodeImage(img image.Image, depth int, opts *Options) (*PackedImage, error) {
	return Encode(FromImage(img), depth, opts)
}
