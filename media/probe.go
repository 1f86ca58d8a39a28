package media

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ProbeDuration reads the duration in seconds of an MP4/QuickTime file from
// its movie header. Both formats are ISO base media files: a sequence of
// boxes, each an 8 byte header (32-bit size, 4 byte type) optionally
// extended to a 64-bit size. The duration lives in the mvhd box nested
// inside moov.
func ProbeDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open media file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat media file")
	}

	moov, err := findBox(f, 0, info.Size(), "moov")
	if err != nil {
		return 0, err
	}
	mvhd, err := findBox(f, moov.payloadStart, moov.payloadEnd, "mvhd")
	if err != nil {
		return 0, err
	}
	return readMvhdDuration(f, mvhd)
}

type box struct {
	payloadStart int64
	payloadEnd   int64
}

// findBox scans the box sequence in [start, end) for the first box of the
// given type.
func findBox(f *os.File, start, end int64, boxType string) (box, error) {
	offset := start
	header := make([]byte, 8)
	for offset+8 <= end {
		if _, err := f.ReadAt(header, offset); err != nil {
			return box{}, errors.Wrap(err, "read box header")
		}
		size := int64(binary.BigEndian.Uint32(header[0:4]))
		headerLen := int64(8)
		switch size {
		case 0:
			// box extends to end of enclosing scope
			size = end - offset
		case 1:
			ext := make([]byte, 8)
			if _, err := f.ReadAt(ext, offset+8); err != nil {
				return box{}, errors.Wrap(err, "read extended box size")
			}
			size = int64(binary.BigEndian.Uint64(ext))
			headerLen = 16
		}
		if size < headerLen {
			return box{}, errors.Errorf("malformed box of size %d", size)
		}
		if string(header[4:8]) == boxType {
			return box{payloadStart: offset + headerLen, payloadEnd: offset + size}, nil
		}
		offset += size
	}
	return box{}, errors.Errorf("no %s box found", boxType)
}

// readMvhdDuration decodes the duration/timescale pair out of a version 0
// or version 1 movie header.
func readMvhdDuration(f *os.File, b box) (float64, error) {
	payload := make([]byte, b.payloadEnd-b.payloadStart)
	if _, err := f.ReadAt(payload, b.payloadStart); err != nil && err != io.EOF {
		return 0, errors.Wrap(err, "read mvhd payload")
	}
	if len(payload) < 1 {
		return 0, errors.New("empty mvhd box")
	}

	version := payload[0]
	switch version {
	case 0:
		// version(1) flags(3) creation(4) modification(4) timescale(4) duration(4)
		if len(payload) < 20 {
			return 0, errors.New("truncated mvhd v0 box")
		}
		timescale := binary.BigEndian.Uint32(payload[12:16])
		duration := binary.BigEndian.Uint32(payload[16:20])
		if timescale == 0 {
			return 0, errors.New("mvhd timescale is zero")
		}
		return float64(duration) / float64(timescale), nil
	case 1:
		// version(1) flags(3) creation(8) modification(8) timescale(4) duration(8)
		if len(payload) < 32 {
			return 0, errors.New("truncated mvhd v1 box")
		}
		timescale := binary.BigEndian.Uint32(payload[20:24])
		duration := binary.BigEndian.Uint64(payload[24:32])
		if timescale == 0 {
			return 0, errors.New("mvhd timescale is zero")
		}
		return float64(duration) / float64(timescale), nil
	default:
		return 0, errors.Errorf("unsupported mvhd version %d", version)
	}
}
