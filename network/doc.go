// Package network builds, trains and runs the parameter estimation model on
// top of the gorgonia tensor engine.
//
// A Model is assembled from an input shape (channel, samples) and an ordered
// list of arch.Layer values:
//
//	input (N,1,L) -> trainable STFT -> conv2d_0 .. conv2d_k -> dense -> predictions
//
// The STFT front end is a pair of learnable DFT filter banks (real and
// imaginary parts, Hann windowed) whose squared sum yields a power spectrogram
// shaped (N, 1, nDFT/2+1, frames). Convolutions are channel first with valid
// padding. Both dense layers act on the last axis, so the output is shaped
// (N, C, H, outputs) with sigmoid activated values in [0, 1].
//
// Parameters live in the Model and are shared by every execution graph; one
// graph is built lazily per batch size and mode.
package network
