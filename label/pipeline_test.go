package label

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"labelconv/indexed"
	"labelconv/store"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/draw"
)

type fakeRasterizer struct {
	pages []image.Image
	err   error
	dpi   int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, doc []byte, dpi int) ([]image.Image, error) {
	f.dpi = dpi
	return f.pages, f.err
}

type memStore struct {
	blobs [][]byte
	fails []error
	calls int
}

func (m *memStore) Put(_ context.Context, blob []byte) error {
	m.calls++
	if len(m.fails) > 0 {
		err := m.fails[0]
		m.fails = m.fails[1:]
		return err
	}
	m.blobs = append(m.blobs, bytes.Clone(blob))
	return nil
}

type countingStore struct {
	store.Store
	calls int
}

func (c *countingStore) Put(ctx context.Context, blob []byte) error {
	c.calls++
	return c.Store.Put(ctx, blob)
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineRun(t *testing.T) {
	red := color.NRGBA{0xff, 0, 0, 0xff}
	transparent := color.NRGBA{}
	r := &fakeRasterizer{pages: []image.Image{solid(4, 2, red), solid(4, 2, transparent)}}
	m := &memStore{}
	p := &Pipeline{Rasterizer: r, Store: m, DPI: 300, Depth: 1, Logger: quietLogger()}

	img, err := p.Run(context.Background(), []byte("%PDF-1.7"))
	if err != nil {
		t.Fatal(err)
	}
	if r.dpi != 300 {
		t.Errorf("rasterized at %d dpi", r.dpi)
	}
	if len(m.blobs) != 1 {
		t.Fatalf("stored %d blobs", len(m.blobs))
	}
	if !bytes.Equal(m.blobs[0], img.Bytes()) {
		t.Error("stored blob differs from the returned image")
	}

	h, err := indexed.ReadHeader(bytes.NewReader(m.blobs[0]))
	if err != nil {
		t.Fatal(err)
	}
	if h.Width != 4 || h.Height != 4 || h.Depth != 1 || h.DPI != 300 {
		t.Errorf("header = %+v", h)
	}

	want := indexed.Palette{{R: 0xff}, {R: 0xff, G: 0xff, B: 0xff}}
	if diff := cmp.Diff(want, img.Palette()); diff != "" {
		t.Errorf("palette (-want +got):\n%s", diff)
	}
}

func TestPipelineRunEncoded(t *testing.T) {
	m := &memStore{}
	p := &Pipeline{
		Rasterizer: &fakeRasterizer{pages: []image.Image{solid(3, 3, color.Black)}},
		Store:      m,
		DPI:        600,
		Depth:      4,
		Logger:     quietLogger(),
	}
	enc := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 body"))
	if _, err := p.RunEncoded(context.Background(), strings.NewReader(enc)); err != nil {
		t.Fatal(err)
	}
	if len(m.blobs) != 1 {
		t.Errorf("stored %d blobs", len(m.blobs))
	}

	if _, err := p.RunEncoded(context.Background(), strings.NewReader("not base64!")); err == nil {
		t.Error("bad base64 accepted")
	}
	if m.calls != 1 {
		t.Errorf("store called %d times", m.calls)
	}
}

func TestPipelineNoPages(t *testing.T) {
	m := &memStore{}
	p := &Pipeline{Rasterizer: &fakeRasterizer{}, Store: m, DPI: 600, Depth: 4, Logger: quietLogger()}
	_, err := p.Run(context.Background(), nil)
	if !errors.Is(err, indexed.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if m.calls != 0 {
		t.Error("store called for an empty document")
	}
}

func TestPipelineRasterizeError(t *testing.T) {
	boom := errors.New("boom")
	p := &Pipeline{Rasterizer: &fakeRasterizer{err: boom}, Store: &memStore{}, Depth: 4, Logger: quietLogger()}
	if _, err := p.Run(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestPipelineUnsupportedDepth(t *testing.T) {
	m := &memStore{}
	p := &Pipeline{
		Rasterizer: &fakeRasterizer{pages: []image.Image{solid(2, 2, color.White)}},
		Store:      m,
		Depth:      3,
		Logger:     quietLogger(),
	}
	if _, err := p.Run(context.Background(), nil); !errors.Is(err, indexed.ErrUnsupportedDepth) {
		t.Errorf("err = %v", err)
	}
	if m.calls != 0 {
		t.Error("store called after a failed encode")
	}
}

func TestPipelineRetries(t *testing.T) {
	storageErr := fmt.Errorf("%w: connection reset", store.ErrStorage)
	tests := []struct {
		name      string
		retries   int
		fails     []error
		wantCalls int
		wantErr   error
	}{
		{"recovers", 2, []error{storageErr, storageErr}, 3, nil},
		{"exhausted", 1, []error{storageErr, storageErr, storageErr}, 2, store.ErrStorage},
		{"no retries", 0, []error{storageErr}, 1, store.ErrStorage},
		{"not retryable", 3, []error{errors.New("bad blob")}, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &memStore{fails: tt.fails}
			p := &Pipeline{
				Rasterizer: &fakeRasterizer{pages: []image.Image{solid(2, 2, color.White)}},
				Store:      m,
				Depth:      1,
				Retries:    tt.retries,
				Logger:     quietLogger(),
			}
			_, err := p.Run(context.Background(), nil)
			if m.calls != tt.wantCalls {
				t.Errorf("store called %d times, want %d", m.calls, tt.wantCalls)
			}
			switch {
			case tt.name == "not retryable":
				if err == nil || errors.Is(err, store.ErrStorage) {
					t.Errorf("err = %v", err)
				}
			case tt.wantErr == nil && err != nil:
				t.Errorf("err = %v", err)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipelineRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &memStore{fails: []error{fmt.Errorf("%w: down", store.ErrStorage)}}
	p := &Pipeline{
		Rasterizer: &fakeRasterizer{pages: []image.Image{solid(1, 1, color.White)}},
		Store:      m,
		Depth:      8,
		Retries:    5,
		RetryDelay: time.Hour,
		Logger:     quietLogger(),
	}
	_, err := p.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, store.ErrStorage) {
		t.Errorf("err = %v", err)
	}
	if m.calls != 1 {
		t.Errorf("store called %d times", m.calls)
	}
}

func TestPipelineExistingFileNotRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.bmp")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := &countingStore{Store: store.FileStore{Path: path}}
	p := &Pipeline{
		Rasterizer: &fakeRasterizer{pages: []image.Image{solid(2, 2, color.White)}},
		Store:      dest,
		Depth:      1,
		Retries:    3,
		Logger:     quietLogger(),
	}
	_, err := p.Run(context.Background(), nil)
	if !errors.Is(err, store.ErrExists) || errors.Is(err, store.ErrStorage) {
		t.Errorf("err = %v, want ErrExists", err)
	}
	if dest.calls != 1 {
		t.Errorf("store called %d times, want 1", dest.calls)
	}
	if got, _ := os.ReadFile(path); string(got) != "old" {
		t.Errorf("destination replaced: %q", got)
	}
}
