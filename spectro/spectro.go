package spectro

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/x448/float16"
)

// ErrFormat is returned for malformed half-precision dumps.
var ErrFormat = errors.New("spectro: malformed buffer")

var magic = [4]byte{'S', 'P', 'H', '2'}

// Meta is the analysis geometry stored next to a dump. Zero fields are
// unknown and left to the reader's defaults.
type Meta struct {
	// Hop is the frame shift in samples.
	Hop int
	// SampleRate of the analysed waveform.
	SampleRate int
}

// Options control image rendering.
type Options struct {
	// YReverse puts the lowest frequency at the bottom of the image.
	YReverse bool
	// Log renders log(1e-5 + v) instead of v.
	Log bool
}

// WritePNG renders mag as a grayscale image, frames along x and bins along y.
func WritePNG(name string, mag [][]float64, opts Options) error {
	img, err := Image(mag, opts)
	if err != nil {
		return err
	}
	f, err := create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Image renders mag as a grayscale RGBA image.
func Image(mag [][]float64, opts Options) (*image.RGBA, error) {
	rows, cols, err := dims(mag)
	if err != nil {
		return nil, err
	}

	value := func(v float64) float64 {
		if opts.Log {
			if v < 0 {
				v = 0
			}
			return math.Log(1e-5 + v)
		}
		return v
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			w := value(mag[y][x])
			if w > hi {
				hi = w
			}
			if w < lo {
				lo = w
			}
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			g := uint8(255 * (value(mag[y][x]) - lo) / span)
			col := color.RGBA{R: g, G: g, B: g, A: 255}
			if opts.YReverse {
				img.SetRGBA(x, rows-y-1, col)
			} else {
				img.SetRGBA(x, y, col)
			}
		}
	}
	return img, nil
}

// EncodeHalf writes mag as a 4 byte magic, the uint32 values rows, cols,
// hop and sample rate, then rows*cols float16 values, all little-endian.
func EncodeHalf(w io.Writer, mag [][]float64, meta Meta) error {
	rows, cols, err := dims(mag)
	if err != nil {
		return err
	}
	if meta.Hop < 0 || meta.SampleRate < 0 {
		return fmt.Errorf("%w: negative hop %d or sample rate %d", ErrFormat, meta.Hop, meta.SampleRate)
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, [4]uint32{uint32(rows), uint32(cols), uint32(meta.Hop), uint32(meta.SampleRate)}); err != nil {
		return err
	}
	bits := make([]uint16, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			bits[x] = float16.Fromfloat32(float32(mag[y][x])).Bits()
		}
		if err := binary.Write(bw, binary.LittleEndian, bits); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeHalf reads a buffer written by EncodeHalf.
func DecodeHalf(r io.Reader) ([][]float64, Meta, error) {
	br := bufio.NewReader(r)
	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, Meta{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if got != magic {
		return nil, Meta{}, fmt.Errorf("%w: bad magic %q", ErrFormat, got[:])
	}
	var head [4]uint32
	if err := binary.Read(br, binary.LittleEndian, &head); err != nil {
		return nil, Meta{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	rows, cols := int(head[0]), int(head[1])
	if rows == 0 || cols == 0 || rows > 1<<16 || cols > 1<<24 {
		return nil, Meta{}, fmt.Errorf("%w: dimensions %dx%d", ErrFormat, rows, cols)
	}
	if head[2] > 1<<24 || head[3] > 1<<24 {
		return nil, Meta{}, fmt.Errorf("%w: hop %d, sample rate %d", ErrFormat, head[2], head[3])
	}
	meta := Meta{Hop: int(head[2]), SampleRate: int(head[3])}
	bits := make([]uint16, cols)
	out := make([][]float64, rows)
	for y := range out {
		if err := binary.Read(br, binary.LittleEndian, bits); err != nil {
			return nil, Meta{}, fmt.Errorf("%w: row %d: %w", ErrFormat, y, err)
		}
		out[y] = make([]float64, cols)
		for x, b := range bits {
			out[y][x] = float64(float16.Frombits(b).Float32())
		}
	}
	return out, meta, nil
}

// WriteHalf stores mag with EncodeHalf at name.
func WriteHalf(name string, mag [][]float64, meta Meta) error {
	f, err := create(name)
	if err != nil {
		return err
	}
	if err := EncodeHalf(f, mag, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadHalf loads a float16 dump from name.
func ReadHalf(name string) ([][]float64, Meta, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Meta{}, err
	}
	defer f.Close()
	return DecodeHalf(f)
}

// create opens name for writing, creating parent directories.
func create(name string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return os.Create(name)
}

func dims(mag [][]float64) (int, int, error) {
	if len(mag) == 0 || len(mag[0]) == 0 {
		return 0, 0, fmt.Errorf("%w: empty spectrogram", ErrFormat)
	}
	for y := range mag {
		if len(mag[y]) != len(mag[0]) {
			return 0, 0, fmt.Errorf("%w: ragged row %d", ErrFormat, y)
		}
	}
	return len(mag), len(mag[0]), nil
}
