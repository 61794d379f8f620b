package indexed

import "errors"

var (
	// ErrInvalidInput reports an empty or malformed source image or palette.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedDepth reports a bit depth other than 1, 4 or 8.
	ErrUnsupportedDepth = errors.New("unsupported bit depth")
	// ErrIndexOutOfRange reports a palette index that does not fit the bit
	// depth. It indicates an internal inconsistency, not a caller mistake.
	ErrIndexOutOfRange = errors.New("palette index out of range")
)
