// Command tospectro converts audio files (WAV/FLAC) to magnitude spectrograms.
//
// The spectrogram is written twice: as a grayscale PNG image for inspection
// and as a float16 dump that towav can turn back into audio.
//
// Usage:
//
//	tospectro <audio_file> [n_fft] [hop] [seconds]
//
// The outputs are named <audio_file>.png and <audio_file>.f16.
// n_fft defaults to 512, hop to a quarter of n_fft and seconds to 1.
// Shorter files are padded with silence.
//
// Supported input formats: .wav, .flac
package main
