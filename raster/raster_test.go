package raster

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeDocument(t *testing.T) {
	doc := []byte("%PDF-1.7\n%fake body\n")
	enc := base64.StdEncoding.EncodeToString(doc)
	wrapped := " " + enc[:10] + "\r\n" + enc[10:20] + "\n\t" + enc[20:] + "\n"

	got, err := DecodeDocument(strings.NewReader(wrapped))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	if _, err := DecodeDocument(strings.NewReader("not base64 !!")); err == nil {
		t.Error("invalid base64 accepted")
	}
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n"))
	if _, err := DecodeDocument(strings.NewReader(png)); !errors.Is(err, ErrNotPDF) {
		t.Errorf("err = %v, want ErrNotPDF", err)
	}
	if _, err := DecodeDocument(strings.NewReader("")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("empty input: err = %v, want ErrNotPDF", err)
	}
}

func filled(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestStitchVertically(t *testing.T) {
	red := color.NRGBA{0xff, 0, 0, 0xff}
	blue := color.NRGBA{0, 0, 0xff, 0xff}
	// pages with a non-zero origin must still land at the left edge
	second := image.NewNRGBA(image.Rect(4, 7, 6, 8))
	second.SetNRGBA(4, 7, blue)
	second.SetNRGBA(5, 7, blue)
	top := filled(3, 2, red)

	got := StitchVertically([]image.Image{top, second})
	if b := got.Bounds(); b != image.Rect(0, 0, 3, 3) {
		t.Fatalf("bounds %v", b)
	}
	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, red}, {2, 1, red},
		{0, 2, blue}, {1, 2, blue},
		{2, 2, color.NRGBA{}},
	}
	for _, c := range checks {
		if got := got.NRGBAAt(c.x, c.y); got != c.want {
			t.Errorf("(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestFlattenAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	img.SetNRGBA(5, 5, color.NRGBA{0, 0, 0, 0})
	img.SetNRGBA(6, 5, color.NRGBA{0, 0, 0, 0xff})

	tests := []struct {
		name string
		bg   color.Color
		want color.NRGBA
	}{
		{"default white", nil, color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"green", color.NRGBA{0, 0xff, 0, 0xff}, color.NRGBA{0, 0xff, 0, 0xff}},
		{"translucent green made opaque", color.NRGBA{0, 0xff, 0, 0x10}, color.NRGBA{0, 0xff, 0, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenAlpha(img, tt.bg)
			if b := got.Bounds(); b != image.Rect(0, 0, 2, 1) {
				t.Fatalf("bounds %v", b)
			}
			if c := got.NRGBAAt(0, 0); c != tt.want {
				t.Errorf("transparent pixel became %v, want %v", c, tt.want)
			}
			if c := got.NRGBAAt(1, 0); c != (color.NRGBA{0, 0, 0, 0xff}) {
				t.Errorf("opaque pixel became %v", c)
			}
		})
	}
}

func TestPageOrder(t *testing.T) {
	names := []string{"/t/page-10.png", "/t/page-9.png", "/t/page-1.png", "/t/page-0002.png"}
	slices.SortFunc(names, comparePageNames)
	want := []string{"/t/page-1.png", "/t/page-0002.png", "/t/page-9.png", "/t/page-10.png"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestExecRasterizerErrors(t *testing.T) {
	pdf := []byte("%PDF-1.4\n")
	tests := []struct {
		name string
		r    *ExecRasterizer
		doc  []byte
		dpi  int
	}{
		{"bad dpi", &ExecRasterizer{}, pdf, 0},
		{"not a pdf", &ExecRasterizer{}, []byte("hello"), 300},
		{"unknown tool", &ExecRasterizer{Tool: "gs"}, pdf, 300},
		{"missing executable", &ExecRasterizer{Path: "/nonexistent/magick"}, pdf, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := tt.r.Rasterize(context.Background(), tt.doc, tt.dpi)
			if err == nil {
				t.Error("expected an error")
			}
			if pages != nil {
				t.Error("pages returned on error")
			}
		})
	}
}
