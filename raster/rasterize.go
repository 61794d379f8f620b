package raster

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Rasterizer renders every page of a PDF document at the given resolution.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc []byte, dpi int) ([]image.Image, error)
}

// Tools understood by ExecRasterizer.
const (
	ToolMagick   = "magick"
	ToolPdftoppm = "pdftoppm"
)

// ExecRasterizer renders pages with an external program, staging files in a
// private temporary directory that is removed before Rasterize returns.
type ExecRasterizer struct {
	// Tool is ToolMagick (ImageMagick 7) or ToolPdftoppm (poppler).
	Tool string
	// Path overrides the executable looked up in $PATH.
	Path string
	// Logger receives progress messages; nil means slog.Default().
	Logger *slog.Logger
}

func (e *ExecRasterizer) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *ExecRasterizer) command(dpi int, in, dir string) (string, []string, error) {
	tool := e.Tool
	if tool == "" {
		tool = ToolMagick
	}
	exe := e.Path
	if exe == "" {
		exe = tool
	}

	res := strconv.Itoa(dpi)
	switch tool {
	case ToolMagick:
		return exe, []string{"-density", res, in, filepath.Join(dir, "page-%04d.png")}, nil
	case ToolPdftoppm:
		return exe, []string{"-r", res, "-png", in, filepath.Join(dir, "page")}, nil
	}
	return "", nil, fmt.Errorf("unsupported rasterizer tool %q", tool)
}

func (e *ExecRasterizer) Rasterize(ctx context.Context, doc []byte, dpi int) (pages []image.Image, err error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid resolution: %d dpi", dpi)
	}
	if err := CheckPDF(doc); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "labelconv-")
	if err != nil {
		return nil, fmt.Errorf("could not create staging directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger().Error("could not remove staging directory", "dir", dir, "error", rmErr)
		}
	}()

	in := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		return nil, fmt.Errorf("could not stage document: %w", err)
	}

	exe, args, err := e.command(dpi, in, dir)
	if err != nil {
		return nil, err
	}

	e.logger().Info("rasterizing", "tool", exe, "dpi", dpi, "bytes", len(doc))
	cmd := exec.CommandContext(ctx, exe, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", exe, err, strings.TrimSpace(string(out)))
	}

	names, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s produced no pages", exe)
	}
	slices.SortFunc(names, comparePageNames)

	for _, name := range names {
		img, err := decodeFile(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, img)
	}
	e.logger().Info("rasterized", "pages", len(pages))
	return pages, nil
}

// comparePageNames orders page files by their trailing page number so that
// unpadded numbering (page-9, page-10) sorts correctly.
func comparePageNames(a, b string) int {
	na, nb := pageNumber(a), pageNumber(b)
	if na != nb {
		return na - nb
	}
	return strings.Compare(a, b)
}

func pageNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndexFunc(base, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return -1
	}
	return n
}

func decodeFile(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open page %q: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode page %q: %w", name, err)
	}
	return img, nil
}
