package wave

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"
)

const streamChunk = 512

func loadwav(name string) ([]float64, int, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer file.Close()

	stream, format, err := wav.Decode(file)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrIO, name, err)
	}
	defer stream.Close()

	out := drain(stream, stream.Len())
	if err := stream.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrIO, name, err)
	}
	if k := signedScale(format.Precision); k != 1 {
		for i := range out {
			out[i] *= k
		}
	}
	return out, int(format.SampleRate), nil
}

// signedScale corrects beep's wav decoder, which divides signed samples by
// 2^bits-1 instead of 2^(bits-1).
func signedScale(precision int) float64 {
	switch precision {
	case 2, 3:
		bits := float64(8 * precision)
		return (math.Exp2(bits) - 1) / math.Exp2(bits-1)
	}
	return 1
}

func loadflac(name string) ([]float64, int, error) {
	stream, err := flac.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels < 1 {
		return nil, 0, fmt.Errorf("%w: %s has no channels", ErrIO, name)
	}
	scale := float64(int64(1) << (stream.Info.BitsPerSample - 1))

	var out []float64
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrIO, name, err)
		}
		n := frame.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += float64(frame.Subframes[c].Samples[i])
			}
			out = append(out, sum/float64(channels)/scale)
		}
	}
	return out, int(stream.Info.SampleRate), nil
}

func dumpwav(name string, vec []float64, sr int) error {
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sr),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(file, &sliceStreamer{buf: clip(vec)}, format); err != nil {
		file.Close()
		return fmt.Errorf("%w: encode %s: %w", ErrIO, name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// drain reads a streamer to the end and mixes both beep channels to mono.
func drain(s beep.Streamer, hint int) []float64 {
	if hint < 0 {
		hint = 0
	}
	out := make([]float64, 0, hint)
	samples := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(samples)
		for i := 0; i < n; i++ {
			out = append(out, 0.5*(samples[i][0]+samples[i][1]))
		}
		if !ok {
			break
		}
	}
	return out
}

func clip(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		switch {
		case v > 1:
			out[i] = 1
		case v < -1:
			out[i] = -1
		case v != v:
			out[i] = 0
		default:
			out[i] = v
		}
	}
	return out
}

// sliceStreamer plays a mono buffer on both beep channels.
type sliceStreamer struct {
	buf []float64
	pos int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.buf) {
		return 0, false
	}
	n := copy2(samples, s.buf[s.pos:])
	s.pos += n
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func copy2(dst [][2]float64, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}
