package producer

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)

// ProbeDuration reads the container duration from ffmpeg's banner. ffmpeg
// exits non-zero without an output file, so only the banner matters.
func ProbeDuration(ctx context.Context, bin, video string) (time.Duration, error) {
	out, _ := exec.CommandContext(ctx, binOrDefault(bin), "-hide_banner", "-i", video).CombinedOutput()
	return ParseDuration(string(out))
}

// ParseDuration extracts "Duration: HH:MM:SS.xx" from ffmpeg output.
func ParseDuration(out string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no duration in ffmpeg output")
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)

	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(sec*float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", m[0])
	}
	return d, nil
}

// SnapshotArgs grabs a single high quality frame at position at.
func SnapshotArgs(video string, at time.Duration, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", video,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	}
}

// Snapshot writes one frame of video at position at to out.
func Snapshot(ctx context.Context, bin, video string, at time.Duration, out string) error {
	cmd := exec.CommandContext(ctx, binOrDefault(bin), SnapshotArgs(video, at, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg snapshot: %w: %s", err, output)
	}
	return nil
}
