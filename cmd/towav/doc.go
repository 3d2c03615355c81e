// Command towav converts float16 magnitude spectrogram dumps back to audio files (WAV).
//
// The dumps are written by tospectro and by synthparams predict --dump. Since
// a magnitude spectrogram carries no phase, the waveform is estimated with the
// Griffin-Lim algorithm. The FFT size follows from the number of frequency
// rows. The hop and sample rate recorded in the dump are used when present;
// otherwise the hop is a quarter of the FFT size.
//
// Usage:
//
//	towav <f16_file> [sample_rate] [iterations]
//
// The output WAV file will be named <f16_file>.wav
// Optional sample_rate parameter (default: the rate in the dump, else 16384 Hz)
package main
