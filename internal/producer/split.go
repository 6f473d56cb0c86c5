package producer

import "bytes"

var (
	soi = []byte{0xff, 0xd8}
	eoi = []byte{0xff, 0xd9}
)

// MaxFrameBytes bounds a single JPEG. Larger frames abort the stream.
const MaxFrameBytes = 8 << 20

// ScanJPEG is a bufio.SplitFunc that yields complete JPEG images delimited by
// the SOI and EOI markers. Bytes before an SOI are discarded.
func ScanJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, soi)
	if start < 0 {
		// keep a trailing 0xff, it may be the first half of an SOI
		if n := len(data); n > 0 && data[n-1] == 0xff && !atEOF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+2:], eoi)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + 2 + len(eoi)
	return end, data[start:end], nil
}
