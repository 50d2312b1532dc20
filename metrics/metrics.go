package metrics

import "time"

// Recorder receives counters and latencies from services.
// Labels not known to an implementation are ignored.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// Since observes the time elapsed from start under name.
func Since(r Recorder, name string, start time.Time, status string) {
	r.ObserveLatency(name, time.Since(start), map[string]string{"status": status})
}

// StatusOf maps an error to the status label value.
func StatusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
