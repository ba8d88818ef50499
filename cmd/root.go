package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediaplay",
	Short: "Decode, resample, and play MP3/FLAC/WAV/container media",
	Long: `mediaplay - a media decode and playback core built around a single
producer/consumer MediaState: a decode goroutine feeds a bounded PCM frame
queue that a real-time audio callback pulls from, with sample-accurate
start/end windowing and live playback status.

Features:
  - mutex/cond-guarded decode pipeline, no ring buffer
  - pluggable container/codec backend (file-based mp3/flac/wav, ffmpeg CLI,
    or a synthetic tone generator for testing)
  - fixed-format resampling via soxr
  - PortAudio callback-mode playback

Commands:
  - play: play a media file with live position/buffer status
  - transform: convert audio files to different sample rates and WAV format`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
