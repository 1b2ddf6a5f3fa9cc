// Package audio derives playback duration from raw audio bytes. Extraction
// is best-effort: the pipeline treats every failure here as duration 0 and
// keeps going.
package audio

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/sirupsen/logrus"
)

var errUnsupported = errors.New("unsupported audio container")

// Extractor reads duration (in whole seconds) from raw audio bytes.
type Extractor interface {
	Duration(data []byte, contentType string) int
}

type extractor struct {
	log *logrus.Entry
}

// NewExtractor returns the header-parsing duration extractor.
func NewExtractor(log *logrus.Entry) Extractor {
	return &extractor{log: log}
}

// Duration returns the audio duration in seconds, or 0 when it cannot be
// determined. It never fails the caller.
func (e *extractor) Duration(data []byte, contentType string) int {
	secs, err := durationSeconds(data, contentType)
	if err != nil || secs < 0 {
		if e.log != nil {
			e.log.WithError(err).WithField("content_type", contentType).Debug("duration extraction failed, defaulting to 0")
		}
		return 0
	}
	return secs
}

func durationSeconds(data []byte, contentType string) (int, error) {
	switch contentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return wavDuration(data)
	case "audio/mpeg", "audio/mp3":
		return mp3Duration(data)
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return mp4Duration(data)
	}
	return 0, errUnsupported
}

// wavDuration walks RIFF chunks and computes data-chunk size over the
// byte rate declared in the fmt chunk.
func wavDuration(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE file")
	}

	var byteRate uint32
	var dataSize uint32
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8

		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			dataSize = size
		}

		// Chunks are word-aligned
		off = body + int(size)
		if size%2 == 1 {
			off++
		}
	}

	if byteRate == 0 || dataSize == 0 {
		return 0, errors.New("missing fmt or data chunk")
	}
	return int(math.Round(float64(dataSize) / float64(byteRate))), nil
}

// Bitrate tables for MPEG layer III, kbit/s, indexed by the frame header
// bitrate field.
var (
	mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
)

// mp3Duration estimates duration from the first frame header's bitrate.
// Good enough for constant-bitrate files, which is what recorders emit;
// VBR files come out approximate.
func mp3Duration(data []byte) (int, error) {
	off := 0
	// Skip a leading ID3v2 tag if present (syncsafe 28-bit size).
	if len(data) >= 10 && string(data[0:3]) == "ID3" {
		size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
		off = 10 + size
	}

	for ; off+4 <= len(data); off++ {
		if data[off] != 0xFF || data[off+1]&0xE0 != 0xE0 {
			continue
		}
		version := (data[off+1] >> 3) & 0x03
		layer := (data[off+1] >> 1) & 0x03
		if version == 1 || layer != 1 { // reserved version, or not layer III
			continue
		}
		idx := (data[off+2] >> 4) & 0x0F
		var kbps int
		if version == 3 {
			kbps = mp3BitratesV1[idx]
		} else {
			kbps = mp3BitratesV2[idx]
		}
		if kbps == 0 {
			continue
		}
		audioBytes := len(data) - off
		return int(math.Round(float64(audioBytes) * 8 / float64(kbps*1000))), nil
	}
	return 0, errors.New("no valid mpeg frame header found")
}

// mp4Duration finds the mvhd box inside moov and divides its duration by
// its timescale.
func mp4Duration(data []byte) (int, error) {
	moov, err := findBox(data, "moov")
	if err != nil {
		return 0, err
	}
	mvhd, err := findBox(moov, "mvhd")
	if err != nil {
		return 0, err
	}
	if len(mvhd) < 1 {
		return 0, errors.New("empty mvhd box")
	}

	switch version := mvhd[0]; version {
	case 0:
		if len(mvhd) < 24 {
			return 0, errors.New("truncated mvhd v0")
		}
		timescale := binary.BigEndian.Uint32(mvhd[12:16])
		duration := binary.BigEndian.Uint32(mvhd[16:20])
		if timescale == 0 {
			return 0, errors.New("zero timescale")
		}
		return int(math.Round(float64(duration) / float64(timescale))), nil
	case 1:
		if len(mvhd) < 32 {
			return 0, errors.New("truncated mvhd v1")
		}
		timescale := binary.BigEndian.Uint32(mvhd[20:24])
		duration := binary.BigEndian.Uint64(mvhd[24:32])
		if timescale == 0 {
			return 0, errors.New("zero timescale")
		}
		return int(math.Round(float64(duration) / float64(timescale))), nil
	default:
		return 0, errors.New("unknown mvhd version")
	}
}

// findBox scans a sequence of ISO-BMFF boxes for the named one and
// returns its payload.
func findBox(data []byte, name string) ([]byte, error) {
	off := 0
	for off+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		boxType := string(data[off+4 : off+8])
		body := off + 8

		if size == 1 { // 64-bit largesize
			if body+8 > len(data) {
				break
			}
			size = int(binary.BigEndian.Uint64(data[body : body+8]))
			body += 8
		}
		if size < 8 || off+size > len(data) {
			break
		}
		if boxType == name {
			return data[body : off+size], nil
		}
		off += size
	}
	return nil, errors.New("box not found: " + name)
}
