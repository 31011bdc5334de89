package tts

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PCMFormat describes raw little-endian PCM samples.
type PCMFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultPCMFormat is what Gemini speech models return: 24 kHz mono 16-bit.
func DefaultPCMFormat() PCMFormat {
	return PCMFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// EncodeWAV wraps raw PCM data in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, f PCMFormat) ([]byte, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return nil, fmt.Errorf("invalid pcm format %+v", f)
	}

	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + len(pcm)),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(f.Channels),
		uint32(f.SampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(f.BitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(len(pcm)),
	}
	for _, field := range header {
		if err := binary.Write(&buf, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("write wav header: %w", err)
		}
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}
