package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExtractPCM decodes the audio track of a media file to 16 kHz mono float32
// PCM using ffmpeg.
func ExtractPCM(ctx context.Context, path string) ([]float32, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", "1",
		"-v", "error",
		"pipe:1")

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for %s: %w: %s", path, err, strings.TrimSpace(errBuf.String()))
	}

	return pcm16ToFloat(out.Bytes()), nil
}

// MediaDuration reads the container duration with ffprobe
func MediaDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", out, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// pcm16ToFloat converts little-endian signed 16-bit PCM to [-1, 1) floats
func pcm16ToFloat(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768
	}
	return samples
}
