// Package overlay draws synthetic person and phone detections onto live
// frames.
package overlay

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rada-ai/rada-vms/internal/render"
)

const RefreshInterval = 4 * time.Second

// DetectionState holds the current set of fake detections. The set is
// regenerated every RefreshInterval and nudged by a pixel or two in between.
type DetectionState struct {
	mu          sync.Mutex
	width       int
	height      int
	rng         *rand.Rand
	now         func() time.Time
	persons     []render.Person
	lastRefresh time.Time
}

func NewDetectionState(width, height int) *DetectionState {
	return newDetectionState(width, height, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), time.Now)
}

func newDetectionState(width, height int, rng *rand.Rand, now func() time.Time) *DetectionState {
	s := &DetectionState{width: width, height: height, rng: rng, now: now}
	s.refresh()
	return s
}

func (s *DetectionState) refresh() {
	n := 3 + s.rng.IntN(6)
	phones := s.rng.IntN(max(1, n/3) + 1)
	s.persons = render.ScatterPersons(s.rng, n, phones, s.width, s.height)
	s.lastRefresh = s.now()
}

func (s *DetectionState) nudge() {
	for i := range s.persons {
		p := &s.persons[i]
		w, h := p.Width(), p.Height()
		dx := s.rng.IntN(5) - 2
		dy := s.rng.IntN(3) - 1

		p.X1 = max(10, min(s.width-w-10, p.X1+dx))
		p.X2 = p.X1 + w
		p.Y1 = max(render.HeaderBand, min(s.height-h-10, p.Y1+dy))
		p.Y2 = p.Y1 + h
	}
}

// Get advances the state by one frame and returns a copy of it.
func (s *DetectionState) Get() []render.Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.now().Sub(s.lastRefresh) > RefreshInterval {
		s.refresh()
	} else {
		s.nudge()
	}
	out := make([]render.Person, len(s.persons))
	copy(out, s.persons)
	return out
}
