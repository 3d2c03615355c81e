// Package phase recovers audio from magnitude-only spectrograms.
//
// The network in this module predicts spectrogram-like magnitudes without any
// phase information. This package estimates a consistent phase with the
// Griffin-Lim algorithm: it alternates inverse and forward short-time Fourier
// transforms, keeping the estimated phase and substituting the known
// magnitude back in on every pass. It supports:
//   - Deterministic classic Griffin-Lim (zero initial phase)
//   - Fast Griffin-Lim through an optional momentum term
//   - Centred magnitude STFT analysis and a spectral convergence error measure
package phase
