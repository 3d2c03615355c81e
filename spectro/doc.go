// Package spectro dumps magnitude spectrograms for inspection.
//
// Spectrograms are indexed [frequency][frame]. They can be written as PNG
// images (one pixel per bin, min-max normalised, optionally log scaled) or as a
// compact little-endian float16 buffer that cmd/towav turns back into audio.
// The buffer header records the hop and sample rate of the analysis.
package spectro
