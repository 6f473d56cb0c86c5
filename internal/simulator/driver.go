package simulator

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rada-ai/rada-vms/internal/metrics"
)

var ErrNoCameras = errors.New("no cameras found, run POST /dev/seed first")

type Ingester interface {
	Ingest(ctx context.Context, p Payload) error
}

type ScenarioSource interface {
	Current() Scenario
}

// Driver plays one event lifecycle after another against the API.
type Driver struct {
	api       Ingester
	scenarios ScenarioSource
	cameras   []Camera
	mode      string
	snaps     Snapshotter

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	newID func() string
}

func NewDriver(api Ingester, scenarios ScenarioSource, cameras []Camera, mode string, snaps Snapshotter) (*Driver, error) {
	if len(cameras) == 0 {
		return nil, ErrNoCameras
	}
	mode = strings.ToUpper(mode)
	if mode != ModeVideoLoop {
		mode = ModeSimOnly
	}
	return &Driver{
		api:       api,
		scenarios: scenarios,
		cameras:   cameras,
		mode:      mode,
		snaps:     snaps,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:     sleepCtx,
		now:       time.Now,
		newID:     newEventID,
	}, nil
}

func newEventID() string {
	return "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run plays events until ctx is done. A failed event is logged and the
// driver moves on after the usual gap.
func (d *Driver) Run(ctx context.Context) error {
	for {
		id, err := d.RunEvent(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("[Simulator] event %s aborted: %v", id, err)
		}

		sc := d.scenarios.Current()
		if err := d.sleep(ctx, d.uniformDuration(sc.EventRateSecRange[0], sc.EventRateSecRange[1])); err != nil {
			return nil
		}
	}
}

// event is the mutable state of one fabricated lifecycle.
type event struct {
	id        string
	camera    Camera
	eventType string
	label     string
	conf      float64
	x, y      int
	w, h      int
}

func (e *event) bbox() [4]int {
	return [4]int{e.x, e.y, e.x + e.w, e.y + e.h}
}

// RunEvent posts start, a random number of ongoing updates, peak and end for
// a single new event. It returns the event id.
func (d *Driver) RunEvent(ctx context.Context) (string, error) {
	sc := d.scenarios.Current()

	ev := &event{
		id:        d.newID(),
		camera:    d.cameras[d.rng.IntN(len(d.cameras))],
		eventType: sc.EventTypes[d.rng.IntN(len(sc.EventTypes))],
		label:     sc.Labels[d.rng.IntN(len(sc.Labels))],
		conf:      d.uniform(0.55, 0.95),
		x:         d.intRange(120, 900),
		y:         d.intRange(140, 520),
		w:         d.intRange(140, 260),
		h:         d.intRange(220, 360),
	}
	sev := d.intRange(sc.SeverityBaseRange[0], sc.SeverityBaseRange[1])

	if err := d.post(ctx, ev, "start", sev); err != nil {
		return ev.id, err
	}

	steps := d.intRange(sc.StepsRange[0], sc.StepsRange[1])
	for range steps {
		if err := d.sleep(ctx, d.uniformDuration(0.6, 1.4)); err != nil {
			return ev.id, err
		}
		ev.x = clamp(ev.x+d.intRange(-45, 45), 20, 1100)
		ev.y = clamp(ev.y+d.intRange(-25, 25), 20, 600)
		ev.conf = math.Min(0.98, math.Max(0.5, ev.conf+d.uniform(-0.06, 0.06)))
		sev = clamp(sev+d.intRange(3, 10), 0, 95)

		if err := d.post(ctx, ev, "ongoing", sev); err != nil {
			return ev.id, err
		}
	}

	if err := d.post(ctx, ev, "peak", sev); err != nil {
		return ev.id, err
	}
	if err := d.sleep(ctx, d.uniformDuration(0.8, 1.6)); err != nil {
		return ev.id, err
	}
	return ev.id, d.post(ctx, ev, "end", sev)
}

func (d *Driver) post(ctx context.Context, ev *event, state string, sev int) error {
	var snapshot *string
	if d.snaps != nil {
		rel, err := d.snaps.Snapshot(ctx, SnapshotRequest{
			EventID:    ev.id,
			CameraName: ev.camera.Name,
			Label:      ev.label,
			Confidence: ev.conf,
			BBox:       ev.bbox(),
			Severity:   sev,
			State:      state,
		})
		if err != nil {
			log.Printf("[Simulator] snapshot for %s failed: %v", ev.id, err)
		} else {
			snapshot = &rel
		}
	}

	p := Payload{
		EventID:      ev.id,
		CameraID:     ev.camera.ID,
		EventType:    ev.eventType,
		Severity:     sev,
		State:        state,
		Timestamp:    d.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		SnapshotPath: snapshot,
		Meta: Meta{
			Detector:   detectorFor(d.mode),
			Mode:       d.mode,
			Label:      ev.label,
			Confidence: math.Round(ev.conf*100) / 100,
			BBox:       ev.bbox(),
		},
	}

	if err := d.api.Ingest(ctx, p); err != nil {
		metrics.SimulatorEventsTotal.WithLabelValues(state, "error").Inc()
		return err
	}
	metrics.SimulatorEventsTotal.WithLabelValues(state, "ok").Inc()
	log.Printf("[Simulator] %s %s cam=%s sev=%d", ev.id, state, ev.camera.ID, sev)
	return nil
}

// intRange returns a uniform integer in [lo, hi].
func (d *Driver) intRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + d.rng.IntN(hi-lo+1)
}

func (d *Driver) uniform(lo, hi float64) float64 {
	return lo + d.rng.Float64()*(hi-lo)
}

func (d *Driver) uniformDuration(loSec, hiSec float64) time.Duration {
	return time.Duration(d.uniform(loSec, hiSec) * float64(time.Second))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
