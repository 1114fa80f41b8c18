package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	wavHeaderSize = 44
	wavFormatPCM  = 1
)

// Params describes a linear PCM sample buffer.
type Params struct {
	Channels   int `json:"channels"`
	SampleRate int `json:"sampleRate"`
	BitDepth   int `json:"bitDepth"`
}

// BlockAlign is the size in bytes of one frame (one sample per channel).
func (p Params) BlockAlign() int { return p.Channels * p.BitDepth / 8 }

// ByteRate is the number of bytes per second of audio.
func (p Params) ByteRate() int { return p.SampleRate * p.BlockAlign() }

// Validate checks that the params describe a PCM layout WAV can carry.
func (p Params) Validate() error {
	if p.Channels < 1 || p.Channels > 0xFFFF {
		return fmt.Errorf("invalid channel count %d", p.Channels)
	}
	if p.SampleRate < 1 || uint64(p.SampleRate) > math.MaxUint32 {
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	switch p.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", p.BitDepth)
	}
	// Header fields: block align is 16 bits wide, byte rate 32 bits.
	if p.BlockAlign() > math.MaxUint16 {
		return fmt.Errorf("frame size %d exceeds the wav block align field", p.BlockAlign())
	}
	if uint64(p.SampleRate)*uint64(p.BlockAlign()) > math.MaxUint32 {
		return fmt.Errorf("byte rate of %d Hz x %d bytes exceeds the wav byte rate field", p.SampleRate, p.BlockAlign())
	}
	return nil
}

// WAV is a decoded PCM WAVE stream.
type WAV struct {
	Params
	Data []byte
}

// EncodeWAV frames a raw little-endian PCM buffer with a canonical 44 byte
// RIFF/WAVE header declaring exactly the given params.
func EncodeWAV(pcm []byte, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(pcm)%p.BlockAlign() != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of frame size %d", len(pcm), p.BlockAlign())
	}
	if uint64(len(pcm)) > 0xFFFFFFFF-36 {
		return nil, errors.New("pcm buffer too large for wav container")
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	writeLE(buf, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE(buf, uint32(16))
	writeLE(buf, uint16(wavFormatPCM))
	writeLE(buf, uint16(p.Channels))
	writeLE(buf, uint32(p.SampleRate))
	writeLE(buf, uint32(p.ByteRate()))
	writeLE(buf, uint16(p.BlockAlign()))
	writeLE(buf, uint16(p.BitDepth))

	buf.WriteString("data")
	writeLE(buf, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// DecodeWAV parses a PCM WAVE stream, skipping chunks other than fmt and data.
func DecodeWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	var (
		out     WAV
		haveFmt bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			return nil, fmt.Errorf("chunk %q overruns stream", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(b[body:]); format != wavFormatPCM {
				return nil, fmt.Errorf("unsupported wav format %d", format)
			}
			out.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			out.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			out.BitDepth = int(binary.LittleEndian.Uint16(b[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			if err := out.Params.Validate(); err != nil {
				return nil, err
			}
			out.Data = append([]byte(nil), b[body:body+size]...)
			return &out, nil
		}

		// Chunks are padded to even sizes.
		off = body + size + size%2
	}

	return nil, errors.New("wav stream has no data chunk")
}

func writeLE(buf *bytes.Buffer, v any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buf, binary.LittleEndian, v)
}
