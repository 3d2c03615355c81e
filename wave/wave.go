package wave

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
)

// Default waveform geometry: one second at 16384 Hz.
const (
	DefaultSampleRate = 16384
	DefaultDuration   = 1.0

	// NativeRate asks Load to keep the file's own sample rate.
	NativeRate = 0

	resampleQuality = 6
)

// ErrIO is wrapped by every error caused by a missing, unreadable, undecodable
// or unwritable audio file.
var ErrIO = errors.New("wave: io error")

// ErrFileNotLoaded is returned when a file decodes to zero samples.
var ErrFileNotLoaded = fmt.Errorf("%w: file not loaded", ErrIO)

// Samples returns the number of samples a waveform of the given duration holds.
func Samples(sampleRate int, duration float64) int {
	return int(math.Round(float64(sampleRate) * duration))
}

// Fit pads with zeros or truncates buf to exactly n samples.
func Fit(buf []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	copy(out, buf)
	return out
}

// Load decodes the audio file at path, resamples it to sampleRate and fits it
// to duration seconds. When sampleRate is NativeRate the file's own rate is
// kept. The returned rate is the rate of the returned samples.
func Load(path string, sampleRate int, duration float64) ([]float64, int, error) {
	if sampleRate < 0 {
		return nil, 0, fmt.Errorf("wave: negative sample rate %d", sampleRate)
	}
	if duration <= 0 {
		return nil, 0, fmt.Errorf("wave: duration must be > 0, got %v", duration)
	}

	var (
		mono []float64
		rate int
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		mono, rate, err = loadflac(path)
	default:
		mono, rate, err = loadwav(path)
	}
	if err != nil {
		return nil, 0, err
	}
	if len(mono) == 0 || rate <= 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrFileNotLoaded, path)
	}

	if sampleRate != NativeRate && sampleRate != rate {
		mono = Resample(mono, rate, sampleRate)
		rate = sampleRate
	}
	return Fit(mono, Samples(rate, duration)), rate, nil
}

// Resample converts buf from one rate to another with beep's resampler.
func Resample(buf []float64, from, to int) []float64 {
	if from == to || len(buf) == 0 {
		return append([]float64(nil), buf...)
	}
	src := &sliceStreamer{buf: buf}
	r := beep.Resample(resampleQuality, beep.SampleRate(from), beep.SampleRate(to), src)
	expect := int(math.Ceil(float64(len(buf)) * float64(to) / float64(from)))
	return drain(r, expect)
}

// Write stores samples as a 16-bit mono WAV file, creating parent directories
// and overwriting any existing file.
func Write(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wave: sample rate must be > 0, got %d", sampleRate)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	return dumpwav(path, samples, sampleRate)
}
