package bloom

import "errors"

var (
	ErrTruncated     = errors.New("bloom: serialized filter truncated")
	ErrBadMagic      = errors.New("bloom: bad magic")
	ErrBadVersion    = errors.New("bloom: unsupported format version")
	ErrBadScheme     = errors.New("bloom: unsupported hash scheme")
	ErrChecksum      = errors.New("bloom: checksum mismatch")
	ErrBadHeader     = errors.New("bloom: invalid header parameters")
	ErrNoSlices      = errors.New("bloom: serialized filter has no slices")
	ErrBadSlice      = errors.New("bloom: invalid slice")
	ErrTrailingBytes = errors.New("bloom: trailing bytes after last slice")
	ErrSliceTooLarge = errors.New("bloom: slice exceeds encodable size")
)
