package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/drgolem/mediacore/pkg/mediacore"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"
)

var transformCmd = &cobra.Command{
	Use:   "transform <input_file>",
	Short: "Decode a media file through the mediacore pipeline and write it to WAV",
	Long: `Transform decodes a file through the same mediacore.Handle.Pull pipeline
mediaplay uses for live playback — fileaudio or ffmpegdemux, resampled to a
target rate — and writes the result to a WAV file instead of a PortAudio
stream. --skip/--end trim the output the same way they do during playback.

Examples:
  # Transform MP3 to 48kHz WAV
  mediaplay transform input.mp3 --rate 48000 --out output.wav

  # Transform FLAC to 44.1kHz mono WAV
  mediaplay transform input.flac --rate 44100 --mono --out output.wav

  # Transform only a 10s-40s slice of a file ffmpeg can open
  mediaplay transform input.mkv --skip 10 --end 40 --out clip.wav

Sample Rate Options:
  Common rates: 8000, 16000, 22050, 44100, 48000, 96000, 192000 Hz`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().Int("rate", 48000, "Target sample rate in Hz")
	transformCmd.Flags().String("out", "out_transformed.wav", "Output WAV file path")
	transformCmd.Flags().Bool("mono", false, "Downmix output to mono (average channels)")
	transformCmd.Flags().Float64("skip", 0, "Seconds to skip before the transformed range starts")
	transformCmd.Flags().Float64("end", 0, "Position in seconds from the start of the file to stop at (0 = to EOF)")
	transformCmd.Flags().Bool("verbose", false, "Verbose output (debug logging)")
}

func runTransform(cmd *cobra.Command, args []string) {
	inFileName := args[0]

	if _, err := os.Stat(inFileName); os.IsNotExist(err) {
		slog.Error("input file not found", "path", inFileName)
		os.Exit(1)
	}

	rate, err := cmd.Flags().GetInt("rate")
	if err != nil {
		slog.Error("failed to get rate flag", "error", err)
		os.Exit(1)
	}
	if rate <= 0 || rate > 384000 {
		slog.Error("invalid sample rate", "rate", rate, "valid_range", "1-384000")
		os.Exit(1)
	}

	outFileName, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("failed to get out flag", "error", err)
		os.Exit(1)
	}
	convertToMono, err := cmd.Flags().GetBool("mono")
	if err != nil {
		slog.Error("failed to get mono flag", "error", err)
		os.Exit(1)
	}
	skip, err := cmd.Flags().GetFloat64("skip")
	if err != nil {
		slog.Error("failed to get skip flag", "error", err)
		os.Exit(1)
	}
	end, err := cmd.Flags().GetFloat64("end")
	if err != nil {
		slog.Error("failed to get end flag", "error", err)
		os.Exit(1)
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		slog.Error("failed to get verbose flag", "error", err)
		os.Exit(1)
	}

	mediacore.Init(rate, verbose)

	backend, src, err := openBackend(inFileName)
	if err != nil {
		slog.Error("failed to open backend", "error", err)
		os.Exit(1)
	}

	handle, err := mediacore.Open(src, inFileName, backend)
	if err != nil {
		slog.Error("mediacore.Open failed", "error", err)
		os.Exit(1)
	}
	defer handle.Close()

	if skip > 0 || end > 0 {
		if err := handle.StartEnd(skip, end); err != nil {
			slog.Error("StartEnd failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("transform starting",
		"input_file", inFileName,
		"output_rate", rate,
		"output_mono", convertToMono,
		"skip", skip,
		"end", end,
		"output_file", outFileName)

	if err := handle.Start(); err != nil {
		slog.Error("Start failed", "error", err)
		os.Exit(1)
	}

	var pcm bytes.Buffer
	buf := make([]byte, 64*1024)
	for {
		n := handle.Pull(buf)
		if n == 0 {
			break
		}
		pcm.Write(buf[:n])
	}

	status := handle.Status()
	channels := status.Channels
	outputData := pcm.Bytes()

	slog.Info("decode complete",
		"output_samples", status.PlayedSamples,
		"output_bytes", len(outputData))

	if convertToMono && channels > 1 {
		slog.Info("converting to mono", "input_channels", channels)
		outputData = convertToMono16Bit(outputData, channels)
		channels = 1
	}

	outSamples := len(outputData) / (channels * 2)

	slog.Info("writing output WAV file", "path", outFileName)
	if err := writeWAVFile(outFileName, outputData, uint32(outSamples), uint16(channels), uint32(rate), 16); err != nil {
		slog.Error("failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("transformation complete",
		"output_samples", outSamples,
		"output_file", outFileName)
}

// convertToMono16Bit converts stereo (or multi-channel) 16-bit audio to mono by averaging channels.
func convertToMono16Bit(stereoData []byte, channels int) []byte {
	if channels == 1 {
		return stereoData
	}

	monoSize := len(stereoData) / channels
	monoData := make([]byte, monoSize)

	idx := 0
	outIdx := 0

	for idx < len(stereoData) {
		sum := int32(0)
		for ch := 0; ch < channels; ch++ {
			if idx+1 >= len(stereoData) {
				break
			}

			// Read 16-bit sample (little-endian)
			b0 := int16(stereoData[idx])
			b1 := int16(stereoData[idx+1])
			sample := int16((b1 << 8) | b0)

			sum += int32(sample)
			idx += 2
		}

		// Average channels
		avgSample := int16(sum / int32(channels))

		// Write mono sample (16-bit little-endian)
		if outIdx+1 < len(monoData) {
			monoData[outIdx] = byte(avgSample & 0xFF)
			monoData[outIdx+1] = byte((avgSample >> 8) & 0xFF)
			outIdx += 2
		}
	}

	return monoData
}

// writeWAVFile writes audio data to a WAV file.
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32, bitsPerSample uint16) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, bitsPerSample)

	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return nil
}
