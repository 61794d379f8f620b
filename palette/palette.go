package palette

import (
	"fmt"
	"image/color"
	stdpalette "image/color/palette"
	"os"
	"strings"
)

var named = map[string]func() color.Palette{
	"bw": func() color.Palette {
		return color.Palette{color.Black, color.White}
	},
	"gray4": func() color.Palette {
		return grayRamp(4)
	},
	"gray16": func() color.Palette {
		return grayRamp(16)
	},
	"vga16": func() color.Palette {
		return color.Palette{
			color.RGBA{0x00, 0x00, 0x00, 0xff}, color.RGBA{0x80, 0x00, 0x00, 0xff},
			color.RGBA{0x00, 0x80, 0x00, 0xff}, color.RGBA{0x80, 0x80, 0x00, 0xff},
			color.RGBA{0x00, 0x00, 0x80, 0xff}, color.RGBA{0x80, 0x00, 0x80, 0xff},
			color.RGBA{0x00, 0x80, 0x80, 0xff}, color.RGBA{0xc0, 0xc0, 0xc0, 0xff},
			color.RGBA{0x80, 0x80, 0x80, 0xff}, color.RGBA{0xff, 0x00, 0x00, 0xff},
			color.RGBA{0x00, 0xff, 0x00, 0xff}, color.RGBA{0xff, 0xff, 0x00, 0xff},
			color.RGBA{0x00, 0x00, 0xff, 0xff}, color.RGBA{0xff, 0x00, 0xff, 0xff},
			color.RGBA{0x00, 0xff, 0xff, 0xff}, color.RGBA{0xff, 0xff, 0xff, 0xff},
		}
	},
	"websafe": func() color.Palette {
		return stdpalette.WebSafe
	},
	"plan9": func() color.Palette {
		return stdpalette.Plan9
	},
}

func grayRamp(n int) color.Palette {
	pal := make(color.Palette, n)
	for i := range pal {
		pal[i] = color.Gray{Y: uint8(i * 255 / (n - 1))}
	}
	return pal
}

// Names lists the built in palettes.
func Names() []string {
	return []string{"bw", "gray4", "gray16", "vga16", "websafe", "plan9"}
}

// LoadPalette returns a built in palette by name, or reads every palette
// stored in a RIFF PAL file and concatenates them.
func LoadPalette(name string) (color.Palette, error) {
	if f, ok := named[strings.ToLower(name)]; ok {
		return f(), nil
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unknown palette %q and could not open it as a file: %w", name, err)
	}
	defer file.Close()

	pals, err := ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("could not load palette file %q: %w", name, err)
	}

	var res color.Palette
	for _, pal := range pals {
		res = append(res, pal...)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("palette file %q holds no colors", name)
	}
	return res, nil
}

// SavePalette writes pal to a RIFF PAL file at path.
func SavePalette(path string, pal color.Palette) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create palette file %q: %w", path, err)
	}
	if _, err = WriteTo(file, []color.Palette{pal}); err != nil {
		file.Close()
		return fmt.Errorf("could not write palette file %q: %w", path, err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("could not close palette file %q: %w", path, err)
	}
	return nil
}
