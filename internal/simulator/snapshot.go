package simulator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rada-ai/rada-vms/internal/platform/paths"
	"github.com/rada-ai/rada-vms/internal/producer"
	"github.com/rada-ai/rada-vms/internal/render"
)

// FallbackVideoDuration is used when the loop video's length cannot be probed.
const FallbackVideoDuration = 60 * time.Second

type SnapshotRequest struct {
	EventID    string
	CameraName string
	Label      string
	Confidence float64
	BBox       [4]int
	Severity   int
	State      string
}

// Snapshotter writes an event snapshot under the media root and returns its
// media-relative path.
type Snapshotter interface {
	Snapshot(ctx context.Context, req SnapshotRequest) (string, error)
}

// SyntheticSnapshots draws a fake CCTV still per state.
type SyntheticSnapshots struct {
	MediaDir string
}

func (s SyntheticSnapshots) Snapshot(ctx context.Context, req SnapshotRequest) (string, error) {
	img, err := render.Snapshot(render.SnapshotOptions{
		CameraName: req.CameraName,
		EventID:    req.EventID,
		Label:      req.Label,
		Confidence: req.Confidence,
		BBox:       req.BBox,
		Severity:   req.Severity,
		State:      req.State,
	})
	if err != nil {
		return "", fmt.Errorf("render snapshot: %w", err)
	}

	rel := paths.SnapshotRel(req.EventID)
	dst, err := paths.SafeJoin(s.MediaDir, rel)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, img, 0o640); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return rel, nil
}

// VideoSnapshots grabs the frame of a looping video at the position the live
// feed would be showing now.
type VideoSnapshots struct {
	FFmpeg    string
	Video     string
	Duration  time.Duration
	MediaDir  string
	LoopStart time.Time
	Now       func() time.Time
}

func (s VideoSnapshots) Position() time.Duration {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	d := s.Duration
	if d < time.Second {
		d = FallbackVideoDuration
	}
	return now().Sub(s.LoopStart) % d
}

func (s VideoSnapshots) Snapshot(ctx context.Context, req SnapshotRequest) (string, error) {
	rel := paths.SnapshotRel(req.EventID)
	dst, err := paths.SafeJoin(s.MediaDir, rel)
	if err != nil {
		return "", err
	}
	if err := producer.Snapshot(ctx, s.FFmpeg, s.Video, s.Position(), dst); err != nil {
		return "", err
	}
	return rel, nil
}
