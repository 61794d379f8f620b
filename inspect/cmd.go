// Package inspect reads the headers of indexed bitmaps in a folder and
// optionally sorts them into one subfolder per bit depth.
package inspect

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"labelconv/indexed"

	"github.com/alecthomas/kong"
)

type ScanParams struct {
	Scan      string `help:"Folder to scan for bitmaps" default:"."`
	Recursive bool   `help:"Descend into subfolders" short:"r" default:"false"`
}

type SortParams struct {
	ScanParams
	Dest string `help:"Folder receiving one subfolder per bit depth. Relative to scan dir if not absolute." default:"sorted"`
}

type CLICmd struct {
	Ls struct {
		ScanParams
	} `cmd:"" default:"withargs" help:"Log the header of every bitmap"`
	Cp struct {
		SortParams
	} `cmd:"" help:"Copy bitmaps into 1bpp, 4bpp and 8bpp folders"`
	Mv struct {
		SortParams
	} `cmd:"" help:"Move bitmaps into 1bpp, 4bpp and 8bpp folders"`
}

func absDir(path string) (string, error) {
	dir, err := filepath.Abs(path)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(dir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid scan path %q: %w", path, err)
	}
	return dir, nil
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	var sort *SortParams
	var err error
	switch kctx.Selected().Name {
	case "ls":
		c.Ls.Scan, err = absDir(c.Ls.Scan)
		return err
	case "cp":
		sort = &c.Cp.SortParams
	case "mv":
		sort = &c.Mv.SortParams
	default:
		return nil
	}

	if sort.Scan, err = absDir(sort.Scan); err != nil {
		return err
	}
	if !filepath.IsAbs(sort.Dest) {
		sort.Dest = filepath.Join(sort.Scan, sort.Dest)
	}
	return nil
}

// Stats counts the bitmaps seen per bit depth.
type Stats struct {
	Depths map[int]int
	Errors int
}

func (s Stats) Total() int {
	n := 0
	for _, c := range s.Depths {
		n += c
	}
	return n
}

func (c *CLICmd) Run(subCmd string) error {
	var stats Stats
	var err error
	switch subCmd {
	case "cp":
		stats, err = Sort(c.Cp.ScanParams, c.Cp.Dest, copyFile)
	case "mv":
		stats, err = Sort(c.Mv.ScanParams, c.Mv.Dest, moveFile)
	default:
		stats, err = Sort(c.Ls.ScanParams, "", nil)
	}
	if err != nil {
		return err
	}

	slog.Info("stats", "1bpp", stats.Depths[1], "4bpp", stats.Depths[4], "8bpp", stats.Depths[8],
		"errors", stats.Errors, "total", stats.Total())

	if stats.Errors > 0 {
		return fmt.Errorf("error processing %d files", stats.Errors)
	}
	return nil
}

// bitmaps lists the .bmp files under scan.Scan, in lexical order. Only the
// top folder is read unless scan.Recursive is set; skip is never entered.
func bitmaps(scan ScanParams, skip string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(scan.Scan, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != scan.Scan && (!scan.Recursive || path == skip) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".bmp") {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read folder %q: %w", scan.Scan, err)
	}
	return names, nil
}

// Sort reads the header of every bitmap found by scan. When op is not nil
// each file is handed to it with a destination under destDir/<depth>bpp.
func Sort(scan ScanParams, destDir string, op Op) (Stats, error) {
	names, err := bitmaps(scan, destDir)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Depths: make(map[int]int)}
	for _, name := range names {
		logger := slog.Default().With("file", name)
		h, err := readHeader(name)
		if err != nil {
			stats.Errors++
			logger.Error("could not read bitmap header", "error", err)
			continue
		}
		logger.Info("bitmap", "width", h.Width, "height", h.Height, "depth", h.Depth,
			"colors", h.PaletteSize, "size", h.FileSize, "dpi", h.DPI, "topdown", h.TopDown)

		if op != nil {
			dir := filepath.Join(destDir, fmt.Sprintf("%dbpp", h.Depth))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return stats, fmt.Errorf("unable to create destination folder %q: %w", dir, err)
			}
			dest := filepath.Join(dir, filepath.Base(name))
			if err := op(name, dest); err != nil {
				stats.Errors++
				logger.Error("could not sort bitmap", "to", dest, "error", err)
				continue
			}
		}
		stats.Depths[h.Depth]++
	}
	return stats, nil
}

func readHeader(name string) (indexed.Header, error) {
	f, err := os.Open(name)
	if err != nil {
		return indexed.Header{}, fmt.Errorf("could not open bitmap: %w", err)
	}
	defer f.Close()

	h, err := indexed.ReadHeader(f)
	if err != nil {
		return indexed.Header{}, err
	}
	if info, err := f.Stat(); err == nil && info.Size() != int64(h.FileSize) {
		return indexed.Header{}, fmt.Errorf("%w: header declares %d bytes, file has %d",
			indexed.ErrInvalidInput, h.FileSize, info.Size())
	}
	return h, nil
}
