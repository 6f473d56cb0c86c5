package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// Source opens a stream of concatenated JPEG frames. Closing the stream
// releases whatever produced it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FFmpegSource decodes a video file in real time and emits MJPEG frames on
// stdout.
type FFmpegSource struct {
	Bin   string
	Video string
	Width int
	FPS   int
}

func (s FFmpegSource) Args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-re",
		"-i", s.Video,
		"-vf", fmt.Sprintf("scale=%d:-1,fps=%d", s.Width, s.FPS),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}
}

func (s FFmpegSource) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, binOrDefault(s.Bin), s.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &cmdStream{ReadCloser: stdout, cmd: cmd}, nil
}

func (s FFmpegSource) String() string {
	return s.Video + " @" + strconv.Itoa(s.Width) + "px/" + strconv.Itoa(s.FPS) + "fps"
}

type cmdStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Close stops ffmpeg if it is still running and reaps it. Only a non-zero
// exit of ffmpeg's own making is reported.
func (s *cmdStream) Close() error {
	s.cmd.Process.Kill()
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ffmpeg exited: %w", err)
	}
	return nil
}

func binOrDefault(bin string) string {
	if bin == "" {
		return "ffmpeg"
	}
	return bin
}
