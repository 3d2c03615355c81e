package phase

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/r9y9/gossp/stft"
	"gonum.org/v1/gonum/floats"

	"github.com/neurlang/synthparams/arch"
)

// DefaultIterations is the Griffin-Lim iteration count used by NewPhase.
const DefaultIterations = 32

const eps = 1e-16

// Phase represents the configuration for magnitude-only audio reconstruction.
type Phase struct {
	// Iterations of phase estimation. Zero reconstructs with zero phase.
	Iterations int

	// Momentum enables fast Griffin-Lim when > 0. Zero is the classic
	// algorithm, whose reconstruction error never grows between iterations.
	Momentum float64

	// Hop is the synthesis frame shift; zero means a quarter of the FFT size.
	Hop int
}

// NewPhase creates a new Phase instance with default values.
func NewPhase() *Phase {
	return &Phase{
		Iterations: DefaultIterations,
	}
}

// Reconstruct estimates a waveform whose magnitude spectrogram matches mag.
// mag is indexed [frequency][frame] with nFFT/2+1 frequency rows. The result
// holds hop*(frames-1) samples and is identical for identical inputs.
func (m *Phase) Reconstruct(mag [][]float64) ([]float64, error) {
	if err := checkShape(mag); err != nil {
		return nil, err
	}
	nFFT := 2 * (len(mag) - 1)
	s := stft.New(m.FrameShift(nFFT), nFFT)

	spec := make([][]complex128, len(mag))
	for k := range mag {
		spec[k] = make([]complex128, len(mag[k]))
		for t, v := range mag[k] {
			spec[k][t] = complex(v, 0)
		}
	}

	var prev [][]complex128
	alpha := m.Momentum / (1 + m.Momentum)
	for iter := 0; iter < m.Iterations; iter++ {
		rebuilt := analyze(s, synthesize(s, spec))
		next := rebuilt
		if m.Momentum > 0 && prev != nil {
			next = make([][]complex128, len(rebuilt))
			for k := range rebuilt {
				next[k] = make([]complex128, len(rebuilt[k]))
				for t := range rebuilt[k] {
					next[k][t] = rebuilt[k][t] - complex(alpha, 0)*prev[k][t]
				}
			}
		}
		prev = rebuilt

		for k := range spec {
			for t := range spec[k] {
				a := next[k][t]
				spec[k][t] = complex(mag[k][t], 0) * (a / complex(cmplx.Abs(a)+eps, 0))
			}
		}
	}

	return synthesize(s, spec), nil
}

// FrameShift is the synthesis hop used for an nFFT point transform.
func (m *Phase) FrameShift(nFFT int) int {
	hop := m.Hop
	if hop <= 0 {
		hop = nFFT / 4
	}
	if hop < 1 {
		hop = 1
	}
	return hop
}

func checkShape(mag [][]float64) error {
	if len(mag) < 2 {
		return fmt.Errorf("%w: need at least 2 frequency rows, got %d", arch.ErrShape, len(mag))
	}
	frames := len(mag[0])
	if frames == 0 {
		return fmt.Errorf("%w: spectrogram has no frames", arch.ErrShape)
	}
	for k := range mag {
		if len(mag[k]) != frames {
			return fmt.Errorf("%w: row %d has %d frames, want %d", arch.ErrShape, k, len(mag[k]), frames)
		}
	}
	return nil
}

// Magnitude computes the centred magnitude STFT of x indexed
// [frequency][frame], with nFFT/2+1 rows and 1+len(x)/hop frames.
func Magnitude(x []float64, nFFT, hop int) [][]float64 {
	spec := analyze(stft.New(hop, nFFT), x)
	out := make([][]float64, len(spec))
	for k := range spec {
		out[k] = make([]float64, len(spec[k]))
		for t, v := range spec[k] {
			out[k][t] = cmplx.Abs(v)
		}
	}
	return out
}

// SpectralConvergence is the relative Frobenius distance between a target
// magnitude spectrogram and an estimate of the same shape.
func SpectralConvergence(target, estimate [][]float64) float64 {
	var num, den float64
	for k := range target {
		d := floats.Distance(target[k], estimate[k], 2)
		n := floats.Norm(target[k], 2)
		num += d * d
		den += n * n
	}
	if den == 0 {
		return math.Sqrt(num)
	}
	return math.Sqrt(num / den)
}

// analyze returns the centred STFT of x, keeping the non-negative frequencies.
func analyze(s *stft.STFT, x []float64) [][]complex128 {
	nFFT := len(s.Window)
	half := nFFT / 2
	bins := half + 1

	padded := make([]float64, len(x)+nFFT)
	copy(padded[half:], x)
	frames := 1 + (len(padded)-nFFT)/s.FrameShift

	spec := make([][]complex128, bins)
	for k := range spec {
		spec[k] = make([]complex128, frames)
	}
	frame := make([]float64, nFFT)
	for t := 0; t < frames; t++ {
		start := t * s.FrameShift
		for j := 0; j < nFFT; j++ {
			frame[j] = padded[start+j] * s.Window[j]
		}
		buf := fft.FFTReal(frame)
		for k := 0; k < bins; k++ {
			spec[k][t] = buf[k]
		}
	}
	return spec
}

// synthesize is the least-squares inverse of analyze: windowed overlap-add
// normalised by the summed squared window, with the centre padding removed.
func synthesize(s *stft.STFT, spec [][]complex128) []float64 {
	nFFT := len(s.Window)
	half := nFFT / 2
	frames := len(spec[0])
	length := s.FrameShift * (frames - 1)

	signal := make([]float64, nFFT+s.FrameShift*(frames-1))
	windowSum := make([]float64, len(signal))
	full := make([]complex128, nFFT)
	for t := 0; t < frames; t++ {
		for k := 0; k < nFFT; k++ {
			switch {
			case k <= half:
				full[k] = spec[k][t]
			default:
				full[k] = cmplx.Conj(spec[nFFT-k][t])
			}
		}
		buf := fft.IFFT(full)
		start := t * s.FrameShift
		for j := 0; j < nFFT; j++ {
			w := s.Window[j]
			signal[start+j] += real(buf[j]) * w
			windowSum[start+j] += w * w
		}
	}

	for i := range signal {
		if windowSum[i] > 1e-10 {
			signal[i] /= windowSum[i]
		}
	}

	out := make([]float64, length)
	copy(out, signal[half:])
	return out
}
