package label

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"time"

	"labelconv/indexed"
	"labelconv/raster"
	"labelconv/store"
)

// Pipeline turns a PDF into an indexed bitmap and hands it to a Store.
type Pipeline struct {
	Rasterizer raster.Rasterizer
	Store      store.Store
	DPI        int
	Depth      int
	// Background replaces transparency; nil means white.
	Background color.Color
	Options    indexed.Options
	// Retries is how many times a failed store write is repeated.
	Retries    int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// RunEncoded decodes a base64 document from r and runs Run on it.
func (p *Pipeline) RunEncoded(ctx context.Context, r io.Reader) (*indexed.PackedImage, error) {
	doc, err := raster.DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, doc)
}

// Run renders doc, stacks its pages, removes transparency, encodes the
// result and stores it.
func (p *Pipeline) Run(ctx context.Context, doc []byte) (*indexed.PackedImage, error) {
	log := p.logger()

	pages, err := p.Rasterizer.Rasterize(ctx, doc, p.DPI)
	if err != nil {
		return nil, fmt.Errorf("could not rasterize document: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", indexed.ErrInvalidInput)
	}

	stitched := raster.StitchVertically(pages)
	flat := raster.FlattenAlpha(stitched, p.Background)
	b := flat.Bounds()
	log.Info("composed pages", "pages", len(pages), "width", b.Dx(), "height", b.Dy())

	opts := p.Options
	if opts.DPI == 0 {
		opts.DPI = p.DPI
	}
	start := time.Now()
	img, err := indexed.EncodeImage(flat, p.Depth, &opts)
	if err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}
	log.Info("encoded", "depth", img.Depth(), "colors", len(img.Palette()),
		"bytes", len(img.Bytes()), "elapsed", time.Since(start))

	if err := p.store(ctx, img.Bytes()); err != nil {
		return nil, err
	}
	return img, nil
}

func (p *Pipeline) store(ctx context.Context, blob []byte) error {
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			p.logger().Warn("retrying store", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(p.RetryDelay * time.Duration(attempt)):
			}
		}
		if err = p.Store.Put(ctx, blob); err == nil || !errors.Is(err, store.ErrStorage) {
			return err
		}
	}
	return err
}
