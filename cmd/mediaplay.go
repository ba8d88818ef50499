package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/drgolem/mediacore/pkg/bytesource"
	"github.com/drgolem/mediacore/pkg/codec"
	"github.com/drgolem/mediacore/pkg/codec/ffmpegdemux"
	"github.com/drgolem/mediacore/pkg/codec/fileaudio"
	"github.com/drgolem/mediacore/pkg/mediacore"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

var (
	playDeviceIdx int
	playFrames    int
	playVerbose   bool
	playSkip      float64
	playEnd       float64
	playRate      int
)

// mediaplayCmd opens a file with the backend its extension selects and
// plays it through a real PortAudio callback stream, pulling fixed-format
// PCM straight out of mediacore.Handle.Pull. There is no ringbuffer here:
// mediacore already serves output-rate stereo s16 on demand, so the
// callback can copy directly from Pull into PortAudio's output buffer.
var mediaplayCmd = &cobra.Command{
	Use:   "play <audio_file>",
	Short: "Play a media file through the mediacore decode pipeline",
	Long: `mediaplay opens a file, picks the fileaudio backend for
.mp3/.flac/.fla/.wav and the ffmpeg CLI backend for anything else, then
drives a PortAudio callback stream directly off mediacore.Handle.Pull.

Examples:
  mediaplay play song.mp3
  mediaplay play --skip 10 --end 40 movie.mkv`,
	Args: cobra.ExactArgs(1),
	Run:  runMediaplay,
}

func init() {
	rootCmd.AddCommand(mediaplayCmd)

	mediaplayCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	mediaplayCmd.Flags().IntVarP(&playFrames, "frames", "f", 512, "Audio frames per buffer")
	mediaplayCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
	mediaplayCmd.Flags().Float64Var(&playSkip, "skip", 0, "Seconds to skip before playback starts")
	mediaplayCmd.Flags().Float64Var(&playEnd, "end", 0, "Position in seconds from the start of the file to stop at (0 = play to EOF)")
	mediaplayCmd.Flags().IntVar(&playRate, "rate", 44100, "Output sample rate")
}

func openBackend(fileName string) (codec.Demuxer, bytesource.Source, error) {
	src, err := bytesource.OpenFile(fileName)
	if err != nil {
		return nil, nil, err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".mp3", ".flac", ".fla", ".wav":
		d, err := fileaudio.Open(src)
		if err != nil {
			src.Close()
			return nil, nil, err
		}
		return d, src, nil
	default:
		d, err := ffmpegdemux.Open(src)
		if err != nil {
			src.Close()
			return nil, nil, err
		}
		return d, src, nil
	}
}

func runMediaplay(cmd *cobra.Command, args []string) {
	mediacore.Init(playRate, playVerbose)

	fileName := args[0]
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("file not found", "path", fileName)
		os.Exit(1)
	}

	backend, src, err := openBackend(fileName)
	if err != nil {
		slog.Error("failed to open backend", "error", err)
		os.Exit(1)
	}

	handle, err := mediacore.Open(src, filepath.Base(fileName), backend)
	if err != nil {
		slog.Error("mediacore.Open failed", "error", err)
		os.Exit(1)
	}
	defer handle.Close()

	if playSkip > 0 || playEnd > 0 {
		if err := handle.StartEnd(playSkip, playEnd); err != nil {
			slog.Error("StartEnd failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("initializing portaudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize portaudio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	if err := handle.Start(); err != nil {
		slog.Error("Start failed", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	var finished atomic.Bool

	callback := func(
		input, output []byte,
		frameCount uint,
		timeInfo *portaudio.StreamCallbackTimeInfo,
		statusFlags portaudio.StreamCallbackFlags,
	) portaudio.StreamCallbackResult {
		n := handle.Pull(output)
		if n < len(output) {
			clear(output[n:])
		}
		if n == 0 {
			if finished.CompareAndSwap(false, true) {
				close(done)
			}
			return portaudio.Complete
		}
		return portaudio.Continue
	}

	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  playDeviceIdx,
			ChannelCount: 2,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: float64(playRate),
	}

	if err := stream.OpenCallback(playFrames, callback); err != nil {
		slog.Error("failed to open stream", "error", err)
		os.Exit(1)
	}
	if err := stream.StartStream(); err != nil {
		slog.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	statusDone := make(chan struct{})
	go monitorMediaplayStatus(handle, statusDone)

	select {
	case <-done:
		slog.Info("playback completed")
	case sig := <-sigChan:
		slog.Info("signal received, stopping", "signal", sig)
		handle.Close()
	}
	close(statusDone)

	if err := stream.StopStream(); err != nil {
		slog.Warn("failed to stop stream", "error", err)
	}
	if err := stream.CloseCallback(); err != nil {
		slog.Warn("failed to close stream", "error", err)
	}
}

func monitorMediaplayStatus(handle *mediacore.Handle, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := handle.Status()
			fmt.Printf("played %d samples (%.1fs) buffered %d elapsed %s\n",
				status.PlayedSamples,
				float64(status.PlayedSamples)/float64(status.SampleRate),
				status.BufferedSamples,
				status.ElapsedTime.Round(time.Second))
		case <-done:
			return
		}
	}
}
