package types

import (
	"errors"
	"time"
)

// AudioDecoder is the common interface for all audio decoders (MP3, FLAC, WAV).
// All decoders must implement these methods to provide a consistent API
// for decoding audio files into raw PCM samples.
type AudioDecoder interface {
	// Open opens an audio file for decoding
	Open(fileName string) error

	// Close closes the decoder and releases resources
	Close() error

	// GetFormat returns the audio format information
	// Returns: sample rate (Hz), channels (1=mono, 2=stereo), bits per sample (8/16/24/32)
	GetFormat() (rate, channels, bitsPerSample int)

	// DecodeSamples decodes audio samples into the provided buffer
	// Parameters:
	//   samples: number of samples to decode (not bytes!)
	//   audio: buffer to write decoded audio data
	// Returns: number of samples actually decoded, error if decoding failed
	// Note: Buffer must be large enough: samples * channels * (bitsPerSample/8) bytes
	DecodeSamples(samples int, audio []byte) (int, error)
}

// PlaybackStatus holds unified playback information for audio players.
// This struct provides real-time metrics for monitoring audio playback.
type PlaybackStatus struct {
	FileName        string        // Name of the currently playing file
	SampleRate      int           // Audio sample rate in Hz (e.g., 44100, 48000)
	Channels        int           // Number of audio channels (1=mono, 2=stereo)
	BitsPerSample   int           // Bit depth (8, 16, 24, or 32)
	FramesPerBuffer int           // PortAudio frames per buffer (if applicable)
	PlayedSamples   uint64        // Samples actually sent to audio output (played)
	BufferedSamples uint64        // Samples decoded but not yet played (in-flight)
	ElapsedTime     time.Duration // Wall-clock time since playback started
}

// PlaybackMonitor is an interface for types that can report playback status.
// Implementing this interface allows consistent status monitoring across
// different player implementations.
type PlaybackMonitor interface {
	GetPlaybackStatus() PlaybackStatus
}

// Error taxonomy for the decode pipeline (see mediacore's error handling
// design). None of these are returned synchronously from Pull; they are
// latched internally and surfaced only as a reduced/zero byte count.
var (
	// ErrSetup covers container-open, stream-probe, or codec-allocation failure.
	ErrSetup = errors.New("mediacore: setup failed")

	// ErrDecode covers a codec reporting a negative/invalid read size.
	ErrDecode = errors.New("mediacore: decode failed")

	// ErrResample covers a single frame failing to resample into the output format.
	ErrResample = errors.New("mediacore: resample failed")

	// ErrClosed names a handle that has already been closed. No operation in
	// this module returns it.
	ErrClosed = errors.New("mediacore: handle closed")

	// ErrAlreadyStarted is returned by StartEnd called after Start.
	ErrAlreadyStarted = errors.New("mediacore: already started")
)
