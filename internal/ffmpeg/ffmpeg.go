// Package ffmpeg wraps the external ffmpeg/ffprobe binaries for muxing,
// fade-transition concatenation and media inspection.
package ffmpeg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoInput is returned when concatenation is requested with zero inputs.
// No subprocess is started in that case.
var ErrNoInput = errors.New("no input videos to concatenate")

// EncodeError reports a nonzero ffmpeg exit, carrying the tail of stderr.
type EncodeError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ffmpeg %s: %v\nStderr: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// MuxAudio combines a silent video with a separately generated audio track.
// The video stream is copied unmodified, audio is encoded to AAC, and the
// output is trimmed to the shorter of the two inputs.
func MuxAudio(videoPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
	return run(args)
}

// ConcatWithFades concatenates the inputs, in the given order, into one
// H.264/AAC file with a 1-second fade-in and a fade-out starting 4 seconds
// into each clip. The caller is responsible for input ordering.
func ConcatWithFades(inputPaths []string, outputPath string) error {
	if len(inputPaths) == 0 {
		return ErrNoInput
	}
	return run(concatArgs(inputPaths, outputPath))
}

func concatArgs(inputPaths []string, outputPath string) []string {
	args := []string{"-y"}
	for _, p := range inputPaths {
		args = append(args, "-i", p)
	}
	args = append(args,
		"-filter_complex", fadeConcatFilter(len(inputPaths)),
		"-map", "[outv]",
		"-map", "[outa]",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "medium",
		"-crf", "23",
		"-movflags", "+faststart",
		outputPath,
	)
	return args
}

// fadeConcatFilter builds one filter graph that fades each input's video and
// alpha, then concatenates all video streams and all audio streams separately.
func fadeConcatFilter(n int) string {
	parts := make([]string, 0, n+2)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("[%d:v]fade=t=in:st=0:d=1:alpha=1,fade=t=out:st=4:d=1:alpha=1[v%d]", i, i))
	}

	var videoIn, audioIn strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&videoIn, "[v%d]", i)
		fmt.Fprintf(&audioIn, "[%d:a]", i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[outv]", videoIn.String(), n))
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[outa]", audioIn.String(), n))

	return strings.Join(parts, ";")
}

func run(args []string) error {
	cmd := exec.Command("ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &EncodeError{Args: args, Stderr: tail(stderr.String(), 2048), Err: err}
	}
	return nil
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}

// ffprobeOutput captures the format.duration field of ffprobe's JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoDuration uses ffprobe to get the duration of a media file.
func GetVideoDuration(filePath string) (time.Duration, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v\nStderr: %s", err, stderr.String())
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probed); err != nil {
		return 0, fmt.Errorf("error unmarshalling ffprobe output: %v\nOutput: %s", err, out.String())
	}

	if probed.Format.Duration == "" {
		return 0, fmt.Errorf("could not retrieve duration from ffprobe output\nOutput: %s", out.String())
	}

	durationFloat, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing duration string '%s': %v", probed.Format.Duration, err)
	}

	return time.Duration(durationFloat * float64(time.Second)), nil
}

// Runner satisfies the pipeline's combiner dependency with real invocations.
type Runner struct{}

func (Runner) MuxAudio(videoPath, audioPath, outputPath string) error {
	return MuxAudio(videoPath, audioPath, outputPath)
}

func (Runner) ConcatWithFades(inputPaths []string, outputPath string) error {
	return ConcatWithFades(inputPaths, outputPath)
}

func (Runner) VideoDuration(path string) (time.Duration, error) {
	return GetVideoDuration(path)
}
