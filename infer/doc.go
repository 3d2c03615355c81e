// Package infer turns a single-example forward pass into a 2D spectrogram-like
// array and reconstructs audio from it.
package infer
