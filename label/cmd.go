package label

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"labelconv/indexed"
	"labelconv/palette"
	"labelconv/raster"
	"labelconv/store"

	"github.com/alecthomas/kong"
	"golang.org/x/term"
)

type SQLFlags struct {
	Server    string `help:"SQL Server host" env:"LABELCONV_SQL_SERVER"`
	Port      int    `help:"SQL Server port (0 for the driver default)" env:"LABELCONV_SQL_PORT"`
	Database  string `help:"Database name" env:"LABELCONV_SQL_DATABASE"`
	User      string `help:"Login name" env:"LABELCONV_SQL_USER"`
	Password  string `help:"Login password" env:"LABELCONV_SQL_PASSWORD"`
	Table     string `help:"Table holding the labels" default:"AOF_LABELS"`
	Column    string `help:"varbinary(max) column receiving the image" default:"LABEL_IMAGE"`
	KeyColumn string `help:"Column selecting the row to update" default:"LABEL_TYPE"`
	Key       string `help:"Value of the key column" default:"O"`
}

func (f SQLFlags) Config() store.SQLConfig {
	return store.SQLConfig{
		Server:    f.Server,
		Port:      f.Port,
		Database:  f.Database,
		User:      f.User,
		Password:  f.Password,
		Table:     f.Table,
		Column:    f.Column,
		KeyColumn: f.KeyColumn,
		Key:       f.Key,
	}
}

type CLICmd struct {
	Input      string   `help:"Text file holding the base64 encoded PDF" default:"Binary.txt" type:"path"`
	PDF        string   `help:"Raw PDF file to use instead of --input" type:"path"`
	DPI        int      `help:"Rasterization density" default:"600"`
	Tool       string   `help:"Rasterizer program" enum:"magick,pdftoppm" default:"magick"`
	ToolPath   string   `help:"Path of the rasterizer executable"`
	Background string   `help:"Color replacing transparency" default:"#fff"`
	Depth      int      `help:"Bits per pixel: 1, 4 or 8" default:"4" group:"encode"`
	Dither     bool     `help:"Apply Floyd-Steinberg dithering" default:"false" group:"encode"`
	Serpentine bool     `help:"Alternate scan direction when dithering" default:"false" group:"encode"`
	Metric     string   `help:"Color distance" enum:"weighted,euclidean,oklab" default:"weighted" group:"encode"`
	Palette    string   `help:"Fixed palette name (bw, gray4, gray16, vga16, websafe, plan9) or RIFF PAL file" group:"encode"`
	PaletteOut string   `help:"Write the palette used to this RIFF PAL file" type:"path" group:"encode"`
	TopDown    bool     `help:"Store rows top to bottom" default:"false" group:"encode"`
	Out        string   `help:"Destination file, - for standard output" group:"output"`
	Overwrite  bool     `help:"Replace an existing destination file" default:"true" negatable:"" group:"output"`
	SQL        SQLFlags `embed:"" prefix:"sql-" group:"database"`
	Retries    int      `help:"Retries for failed storage writes" default:"0" group:"output"`

	background color.Color
	metric     indexed.Metric
	palette    indexed.Palette
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.DPI <= 0 {
		return fmt.Errorf("invalid resolution: %d", c.DPI)
	}
	switch c.Depth {
	case 1, 4, 8:
	default:
		return fmt.Errorf("invalid bit depth %d, must be 1, 4 or 8", c.Depth)
	}
	if c.Retries < 0 {
		return fmt.Errorf("invalid retry count: %d", c.Retries)
	}

	switch {
	case c.Out == "" && c.SQL.Server == "":
		return errors.New("no destination given, use --out or --sql-server")
	case c.Out != "" && c.SQL.Server != "":
		return errors.New("--out and --sql-server are mutually exclusive")
	case c.Out == "-" && term.IsTerminal(int(os.Stdout.Fd())):
		return errors.New("refusing to write a bitmap to a terminal")
	}

	bg, err := palette.ParseHex(c.Background)
	if err != nil {
		return err
	}
	c.background = bg

	if c.metric, err = indexed.MetricByName(c.Metric); err != nil {
		return err
	}

	if c.Palette != "" {
		cp, err := palette.LoadPalette(c.Palette)
		if err != nil {
			return err
		}
		if len(cp) > indexed.Capacity(c.Depth) {
			return fmt.Errorf("palette %q has %d colors, %d bits hold %d", c.Palette, len(cp), c.Depth, indexed.Capacity(c.Depth))
		}
		if c.palette, err = indexed.PaletteFrom(cp); err != nil {
			return err
		}
	}

	return nil
}

func (c *CLICmd) Run(ctx context.Context) error {
	dest, closeDest, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDest()

	p := &Pipeline{
		Rasterizer: &raster.ExecRasterizer{Tool: c.Tool, Path: c.ToolPath},
		Store:      dest,
		DPI:        c.DPI,
		Depth:      c.Depth,
		Background: c.background,
		Options: indexed.Options{
			Dither:     c.Dither,
			Serpentine: c.Serpentine,
			Metric:     c.metric,
			Palette:    c.palette,
			TopDown:    c.TopDown,
		},
		Retries:    c.Retries,
		RetryDelay: time.Second,
	}

	var img *indexed.PackedImage
	if c.PDF != "" {
		doc, err := os.ReadFile(c.PDF)
		if err != nil {
			return fmt.Errorf("could not read PDF %q: %w", c.PDF, err)
		}
		img, err = p.Run(ctx, doc)
		if err != nil {
			return err
		}
	} else {
		in, err := os.Open(c.Input)
		if err != nil {
			return fmt.Errorf("could not open encoded document %q: %w", c.Input, err)
		}
		defer in.Close()
		if img, err = p.RunEncoded(ctx, in); err != nil {
			return err
		}
	}

	if c.PaletteOut != "" {
		if err := palette.SavePalette(c.PaletteOut, img.Palette().ColorPalette()); err != nil {
			return err
		}
	}

	slog.Info("done", "width", img.Width(), "height", img.Height(), "depth", img.Depth(), "bytes", len(img.Bytes()))
	return nil
}

func (c *CLICmd) openStore(ctx context.Context) (store.Store, func(), error) {
	switch {
	case c.Out == "-":
		return store.WriterStore{W: os.Stdout}, func() {}, nil
	case c.Out != "":
		path, err := filepath.Abs(c.Out)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid destination %q: %w", c.Out, err)
		}
		return store.FileStore{Path: path, Overwrite: c.Overwrite}, func() {}, nil
	}

	db, err := store.OpenSQL(ctx, c.SQL.Config())
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			slog.Error("could not close database connection", "error", err)
		}
	}, nil
}
