package generator

import (
	"encoding/json"
	"os"
	"time"
)

// TimingEnv names the timing file when no explicit path is given.
const TimingEnv = "ENUMGEN_TIMING_JSONL"

type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// timingRecorder appends one JSON line per pipeline stage. A nil or
// disabled recorder drops events.
type timingRecorder struct {
	enabled bool
	start   time.Time
	file    *os.File
	enc     *json.Encoder
	err     error
}

func newTimingRecorder(start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

// RecordStage logs a finished stage that began at start.
func (tr *timingRecorder) RecordStage(phase string, start time.Time, status string) {
	if tr == nil || !tr.enabled {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(time.Since(start))
	event := timingEvent{
		Phase:      phase,
		Kind:       "stage",
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	if tr.enc != nil {
		if err := tr.enc.Encode(event); err != nil && tr.err == nil {
			tr.err = err
		}
	}
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

// resolveTimingPath prefers the explicit path over the environment.
func resolveTimingPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(TimingEnv)
}
