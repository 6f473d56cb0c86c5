package simulator

// Payload is one lifecycle transition as posted to the ingest endpoint.
type Payload struct {
	EventID      string  `json:"event_id"`
	CameraID     string  `json:"camera_id"`
	EventType    string  `json:"event_type"`
	Severity     int     `json:"severity"`
	State        string  `json:"state"`
	Timestamp    string  `json:"ts"`
	SnapshotPath *string `json:"snapshot_path"`
	ClipPath     *string `json:"clip_path"`
	Meta         Meta    `json:"meta"`
}

type Meta struct {
	Detector   string  `json:"detector"`
	Mode       string  `json:"mode"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
}

const (
	ModeSimOnly   = "SIM_ONLY"
	ModeVideoLoop = "VIDEO_LOOP"
)

func detectorFor(mode string) string {
	if mode == ModeVideoLoop {
		return "sim_video"
	}
	return "sim"
}
