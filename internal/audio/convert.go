package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"deskscribe/internal/domain"
)

// Converter normalizes captured buffers into the recognizer's canonical
// layout: 16-bit signed little-endian mono at the buffer's own sample rate.
// Purely transformational: never resamples, never blocks, preserves frame
// count and order.
type Converter struct{}

func NewConverter() *Converter {
	return &Converter{}
}

func (c *Converter) Convert(buf domain.AudioBuffer) (domain.AudioBuffer, error) {
	if !buf.Format.Valid() {
		return domain.AudioBuffer{}, fmt.Errorf("%w: %+v", domain.ErrFormatUnavailable, buf.Format)
	}
	if buf.Frames <= 0 || len(buf.Data) < buf.Frames*buf.Format.BytesPerFrame() {
		return domain.AudioBuffer{}, fmt.Errorf("%w: %d frames, %d bytes",
			domain.ErrDataUnavailable, buf.Frames, len(buf.Data))
	}

	out := domain.AudioBuffer{
		Format: domain.AudioFormat{
			Encoding:   domain.EncodingS16LE,
			SampleRate: buf.Format.SampleRate,
			Channels:   1,
		},
		Frames: buf.Frames,
		Data:   make([]byte, buf.Frames*2),
	}

	channels := buf.Format.Channels
	switch buf.Format.Encoding {
	case domain.EncodingS16LE:
		if channels == 1 {
			copy(out.Data, buf.Data[:buf.Frames*2])
			return out, nil
		}
		for frame := 0; frame < buf.Frames; frame++ {
			var sum int
			base := frame * channels * 2
			for ch := 0; ch < channels; ch++ {
				sum += int(int16(binary.LittleEndian.Uint16(buf.Data[base+ch*2:])))
			}
			binary.LittleEndian.PutUint16(out.Data[frame*2:], uint16(int16(sum/channels)))
		}
		return out, nil

	case domain.EncodingF32LE:
		for frame := 0; frame < buf.Frames; frame++ {
			var sum float64
			base := frame * channels * 4
			for ch := 0; ch < channels; ch++ {
				bits := binary.LittleEndian.Uint32(buf.Data[base+ch*4:])
				sum += float64(math.Float32frombits(bits))
			}
			binary.LittleEndian.PutUint16(out.Data[frame*2:], uint16(clampToS16(sum/float64(channels))))
		}
		return out, nil

	default:
		return domain.AudioBuffer{}, fmt.Errorf("%w: encoding %q", domain.ErrFormatUnavailable, buf.Format.Encoding)
	}
}

func clampToS16(sample float64) int16 {
	scaled := sample * 32767
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
