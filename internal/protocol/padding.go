package protocol

const (
	paddingMarker    byte = 0x80
	paddingBlockSize      = 160
)

// Pad appends the 0x80 marker and zero bytes up to the next block boundary.
func Pad(data []byte) []byte {
	size := ((len(data) + 1 + paddingBlockSize - 1) / paddingBlockSize) * paddingBlockSize
	out := make([]byte, size)
	copy(out, data)
	out[len(data)] = paddingMarker
	return out
}

// Unpad strips trailing zeros and the marker preceding them. Data that does not
// end in the padding convention is returned unchanged.
func Unpad(data []byte) []byte {
	for i := len(data) - 1; i >= 0; i-- {
		switch data[i] {
		case 0x00:
			continue
		case paddingMarker:
			return data[:i]
		default:
			return data
		}
	}
	return data
}
