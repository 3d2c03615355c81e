// Package wave loads and writes the fixed-length mono waveforms the pipeline
// trains on.
//
// Input files are decoded (WAV through beep, FLAC through mewkiz/flac), mixed
// down to mono, resampled to the requested rate and then padded or truncated
// so that every waveform holds exactly rate*duration samples. Output is
// written as 16-bit mono WAV.
package wave
