package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncSignup(status string)                                   {}
func (n *NoopRecorder) IncSignin(status string)                                   {}
func (n *NoopRecorder) IncProfileCacheHit()                                       {}
func (n *NoopRecorder) IncProfileCacheMiss()                                      {}
func (n *NoopRecorder) IncAccountCreated()                                        {}
func (n *NoopRecorder) IncAccountUpdated()                                        {}
func (n *NoopRecorder) IncAccountDeleted()                                        {}
func (n *NoopRecorder) IncUpstreamFailure(op string)                              {}
func (n *NoopRecorder) ObserveUpstreamDuration(op string, duration time.Duration) {}
