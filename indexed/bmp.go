package indexed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	fileHeaderLen = 14
	infoHeaderLen = 40

	// HeaderSize is the length of the BMP file and info headers.
	HeaderSize = fileHeaderLen + infoHeaderLen
	// PaletteEntrySize is the length of one B, G, R, 0 palette slot.
	PaletteEntrySize = 4

	biRGB = 0
)

// fileHeader is BITMAPFILEHEADER.
type fileHeader struct {
	Type      [2]byte
	Size      uint32
	Reserved1 uint16
	Reserved2 uint16
	OffBits   uint32
}

// infoHeader is BITMAPINFOHEADER.
type infoHeader struct {
	Size            uint32
	Width           int32
	Height          int32
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	SizeImage       uint32
	XPixelsPerM     int32
	YPixelsPerM     int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Header describes an indexed bitmap as laid out on disk.
type Header struct {
	Width       int
	Height      int
	Depth       int
	PaletteSize int
	FileSize    int
	DataOffset  int
	TopDown     bool
	DPI         int
}

// Stride returns the padded row length.
func (h Header) Stride() int {
	return Stride(h.Width, h.Depth)
}

func dpiToPPM(dpi int) int32 {
	return int32(math.Round(float64(dpi) / 0.0254))
}

func ppmToDPI(ppm int32) int {
	return int(math.Round(float64(ppm) * 0.0254))
}

// MarshalBinary returns the 54 header bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	if h.Width <= 0 || h.Height <= 0 || h.Width > math.MaxInt32 || h.Height > math.MaxInt32 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, h.Width, h.Height)
	}
	if h.FileSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes do not fit a bitmap", ErrInvalidInput, h.FileSize)
	}

	height := int32(h.Height)
	if h.TopDown {
		height = -height
	}
	fh := fileHeader{
		Type:    [2]byte{'B', 'M'},
		Size:    uint32(h.FileSize),
		OffBits: uint32(h.DataOffset),
	}
	ih := infoHeader{
		Size:        infoHeaderLen,
		Width:       int32(h.Width),
		Height:      height,
		Planes:      1,
		BitCount:    uint16(h.Depth),
		Compression: biRGB,
		SizeImage:   uint32(h.Stride() * h.Height),
		XPixelsPerM: dpiToPPM(h.DPI),
		YPixelsPerM: dpiToPPM(h.DPI),
		ColorsUsed:  uint32(h.PaletteSize),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	if err := binary.Write(buf, binary.LittleEndian, &fh); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, &ih); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary parses the headers written by MarshalBinary. Only
// uncompressed 1, 4 and 8 bit bitmaps are accepted.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, got %d", ErrInvalidInput, HeaderSize, len(data))
	}

	var fh fileHeader
	var ih infoHeader
	if _, err := binary.Decode(data[:fileHeaderLen], binary.LittleEndian, &fh); err != nil {
		return err
	}
	if _, err := binary.Decode(data[fileHeaderLen:HeaderSize], binary.LittleEndian, &ih); err != nil {
		return err
	}

	switch {
	case fh.Type != [2]byte{'B', 'M'}:
		return fmt.Errorf("%w: not a bitmap, signature %q", ErrInvalidInput, fh.Type[:])
	case ih.Size != infoHeaderLen:
		return fmt.Errorf("%w: unsupported info header size %d", ErrInvalidInput, ih.Size)
	case ih.Compression != biRGB:
		return fmt.Errorf("%w: compressed bitmap (method %d)", ErrInvalidInput, ih.Compression)
	}
	if err := checkDepth(int(ih.BitCount)); err != nil {
		return err
	}

	*h = Header{
		Width:       int(ih.Width),
		Height:      int(ih.Height),
		Depth:       int(ih.BitCount),
		PaletteSize: int(ih.ColorsUsed),
		FileSize:    int(fh.Size),
		DataOffset:  int(fh.OffBits),
		DPI:         ppmToDPI(ih.XPixelsPerM),
	}
	if ih.Height < 0 {
		h.Height = -h.Height
		h.TopDown = true
	}
	if h.PaletteSize == 0 {
		h.PaletteSize = Capacity(h.Depth)
	}
	return nil
}

// ReadHeader reads and parses a bitmap header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("could not read bitmap header: %w", err)
	}
	var h Header
	err := h.UnmarshalBinary(buf[:])
	return h, err
}

// assemble lays out header, palette table and packed rows in one buffer.
func assemble(h Header, pal Palette, pixels []byte) ([]byte, error) {
	h.PaletteSize = len(pal)
	h.DataOffset = HeaderSize + PaletteEntrySize*len(pal)
	h.FileSize = h.DataOffset + len(pixels)

	head, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, h.FileSize)
	out = append(out, head...)
	for _, c := range pal {
		out = append(out, c.B, c.G, c.R, 0)
	}
	out = append(out, pixels...)

	if len(out) != h.FileSize || len(pixels) != h.Stride()*h.Height {
		return nil, fmt.Errorf("bitmap length %d does not match layout (%d header+palette, %d pixel bytes)",
			len(out), h.DataOffset, h.Stride()*h.Height)
	}
	return out, nil
}
