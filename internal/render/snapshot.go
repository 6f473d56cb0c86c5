package render

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"math/rand/v2"
	"strings"
)

const SnapshotQuality = 88

type SnapshotOptions struct {
	CameraName string
	EventID    string
	Label      string
	Confidence float64
	// BBox is the zone of interest as x1, y1, x2, y2.
	BBox     [4]int
	Severity int
	State    string
	Width    int
	Height   int
}

// StateColor is the accent used for a lifecycle state.
func StateColor(state string) color.RGBA {
	switch state {
	case "peak":
		return ColorPeak
	case "end":
		return ColorEnd
	default:
		return ColorPerson
	}
}

// Snapshot renders a synthetic CCTV still for one event. The same event id
// always yields the same scene layout.
func Snapshot(opts SnapshotOptions) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	w, h := opts.Width, opts.Height
	rng := rand.New(rand.NewPCG(seedFor(opts.EventID), 0))

	nPersons := randInt(rng, 2, max(2, opts.Severity/12+2))
	nPhones := randInt(rng, 0, max(0, min(nPersons, opts.Severity/25)))

	c := NewCanvas(w, h, ColorBG)
	for x := 0; x < w; x += 80 {
		c.FillRect(x, 0, x, h-1, ColorGrid)
	}
	for y := 0; y < h; y += 80 {
		c.FillRect(0, y, w-1, y, ColorGrid)
	}

	zone := ColorZone
	if opts.State == "peak" || opts.State == "end" {
		zone = StateColor(opts.State)
	}
	c.Zone(opts.BBox[0], opts.BBox[1], opts.BBox[2], opts.BBox[3], zone)

	accent := StateColor(opts.State)
	persons := scatterPersons(rng, nPersons, nPhones, w, h, 60, 140, 1.8, 2.8, 120)
	for _, p := range persons {
		c.DrawPerson(p, accent)
	}

	c.FillRect(0, 0, w, 110, ColorHeader)
	c.Text(16, 10, fmt.Sprintf("RADA AI v1  |  %s", opts.CameraName), ColorWhite)
	c.Text(16, 36, fmt.Sprintf("%s  conf=%.2f  severity=%d  state=%s",
		opts.Label, opts.Confidence, opts.Severity, strings.ToUpper(opts.State)), accent)

	row3, row3Color := fmt.Sprintf("Persons: %d", nPersons), ColorSubtitle
	if nPhones > 0 {
		row3 += fmt.Sprintf("  ! %d phone(s) detected", nPhones)
		row3Color = ColorPhone
	}
	c.Text(16, 62, row3, row3Color)
	c.Text(16, 86, "event="+opts.EventID, ColorMuted)

	c.FillEllipse(w-80, 18, w-62, 36, ColorRec)
	c.Text(w-56, 18, "REC", ColorRec)

	return c.EncodeJPEG(SnapshotQuality)
}

// ScatterPersons places n person boxes below the header band, marking phones
// of them as phone holders.
func ScatterPersons(rng *rand.Rand, n, phones, w, h int) []Person {
	return scatterPersons(rng, n, phones, w, h, 55, 110, 1.8, 2.6, HeaderBand)
}

// HeaderBand is the top margin persons are kept out of.
const HeaderBand = 115

func scatterPersons(rng *rand.Rand, n, phones, w, h, minW, maxW int, minAspect, maxAspect float64, top int) []Person {
	persons := make([]Person, n)
	for i := range persons {
		pw := randInt(rng, minW, maxW)
		ph := randInt(rng, int(float64(pw)*minAspect), int(float64(pw)*maxAspect))
		x1 := randInt(rng, 10, max(11, w-pw-10))
		y1 := randInt(rng, top, max(top+1, h-ph-10))
		persons[i] = Person{
			X1: x1, Y1: y1, X2: x1 + pw, Y2: y1 + ph,
			Conf: roundTo(0.72+rng.Float64()*0.26, 2),
		}
	}
	for _, i := range rng.Perm(n)[:min(phones, n)] {
		persons[i].HasPhone = true
	}
	return persons
}

// randInt returns a uniform integer in [lo, hi].
func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int(v*p+0.5)) / p
}

func seedFor(eventID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(eventID))
	return h.Sum64()
}
