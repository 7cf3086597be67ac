package metrics

import "time"

// Metric names
const (
	GatewayRequest = "gateway_request"
	GatewayError   = "gateway_error"
	OutcomePoll    = "outcome_poll"
	OutcomeResult  = "outcome_result"
	OutcomeWait    = "outcome_wait"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
