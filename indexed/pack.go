package indexed

import (
	"fmt"
	"sync"

	"labelconv/parallel"
)

// RowOrder says where image row 0 goes in the packed pixel data.
type RowOrder int

const (
	// BottomUp stores the last image row first, the BMP default.
	BottomUp RowOrder = iota
	// TopDown stores image row 0 first.
	TopDown
)

// Stride returns the byte length of one packed row: width*depth bits rounded
// up to whole bytes, then to a multiple of 4.
func Stride(width, depth int) int {
	return (width*depth + 31) / 32 * 4
}

// Pack writes idx at depth bits per pixel, most significant bits first.
// Unused bits and the row alignment bytes are zero. It returns the packed
// rows and the row stride.
func Pack(idx *IndexBuffer, depth int, order RowOrder, pool *parallel.Pool) ([]byte, int, error) {
	if err := checkDepth(depth); err != nil {
		return nil, 0, err
	}
	if idx == nil || idx.Width <= 0 || idx.Height <= 0 || len(idx.Pix) < idx.Width*idx.Height {
		return nil, 0, fmt.Errorf("%w: index buffer is empty or short", ErrInvalidInput)
	}

	stride := Stride(idx.Width, depth)
	out := make([]byte, stride*idx.Height)
	limit := Capacity(depth)

	var (
		mu       sync.Mutex
		firstErr error
	)
	rows(pool, idx.Height, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			dy := y
			if order == BottomUp {
				dy = idx.Height - 1 - y
			}
			if err := packRow(out[dy*stride:(dy+1)*stride], idx.Pix[y*idx.Width:(y+1)*idx.Width], depth, limit); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("row %d: %w", y, err)
				}
				mu.Unlock()
				return
			}
		}
	})
	if firstErr != nil {
		return nil, 0, firstErr
	}
	return out, stride, nil
}

func packRow(dst, src []uint8, depth, limit int) error {
	if depth == 8 {
		copy(dst, src)
		return nil
	}
	for x, v := range src {
		if int(v) >= limit {
			return fmt.Errorf("%w: index %d at column %d does not fit %d bits", ErrIndexOutOfRange, v, x, depth)
		}
		bit := x * depth
		dst[bit/8] |= v << (8 - depth - bit%8)
	}
	return nil
}
