package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Signups             map[string]uint64
	Signins             map[string]uint64
	ProfileCacheHits    uint64
	ProfileCacheMisses  uint64
	AccountsCreated     uint64
	AccountsUpdated     uint64
	AccountsDeleted     uint64
	UpstreamFailures    map[string]uint64
	UpstreamCallCount   map[string]uint64
	UpstreamCallTotalNs map[string]int64
}

// InMemoryRecorder stores metrics in memory.
// It backs the /metrics endpoint and is used by tests.
type InMemoryRecorder struct {
	profileCacheHits   uint64
	profileCacheMisses uint64
	accountsCreated    uint64
	accountsUpdated    uint64
	accountsDeleted    uint64

	mu                  sync.Mutex
	signups             map[string]uint64
	signins             map[string]uint64
	upstreamFailures    map[string]uint64
	upstreamCallCount   map[string]uint64
	upstreamCallTotalNs map[string]int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		signups:             make(map[string]uint64),
		signins:             make(map[string]uint64),
		upstreamFailures:    make(map[string]uint64),
		upstreamCallCount:   make(map[string]uint64),
		upstreamCallTotalNs: make(map[string]int64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Signups:             copyCounts(m.signups),
		Signins:             copyCounts(m.signins),
		ProfileCacheHits:    atomic.LoadUint64(&m.profileCacheHits),
		ProfileCacheMisses:  atomic.LoadUint64(&m.profileCacheMisses),
		AccountsCreated:     atomic.LoadUint64(&m.accountsCreated),
		AccountsUpdated:     atomic.LoadUint64(&m.accountsUpdated),
		AccountsDeleted:     atomic.LoadUint64(&m.accountsDeleted),
		UpstreamFailures:    copyCounts(m.upstreamFailures),
		UpstreamCallCount:   copyCounts(m.upstreamCallCount),
		UpstreamCallTotalNs: copyDurations(m.upstreamCallTotalNs),
	}
}

// IncSignup increments the signup counter for status.
func (m *InMemoryRecorder) IncSignup(status string) {
	m.mu.Lock()
	m.signups[status]++
	m.mu.Unlock()
}

// IncSignin increments the signin counter for status.
func (m *InMemoryRecorder) IncSignin(status string) {
	m.mu.Lock()
	m.signins[status]++
	m.mu.Unlock()
}

// IncProfileCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncProfileCacheHit() {
	atomic.AddUint64(&m.profileCacheHits, 1)
}

// IncProfileCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncProfileCacheMiss() {
	atomic.AddUint64(&m.profileCacheMisses, 1)
}

// IncAccountCreated increments account created counter.
func (m *InMemoryRecorder) IncAccountCreated() {
	atomic.AddUint64(&m.accountsCreated, 1)
}

// IncAccountUpdated increments account updated counter.
func (m *InMemoryRecorder) IncAccountUpdated() {
	atomic.AddUint64(&m.accountsUpdated, 1)
}

// IncAccountDeleted increments account deleted counter.
func (m *InMemoryRecorder) IncAccountDeleted() {
	atomic.AddUint64(&m.accountsDeleted, 1)
}

// IncUpstreamFailure increments the failure counter for a gateway operation.
func (m *InMemoryRecorder) IncUpstreamFailure(op string) {
	m.mu.Lock()
	m.upstreamFailures[op]++
	m.mu.Unlock()
}

// ObserveUpstreamDuration records the duration of a gateway call.
func (m *InMemoryRecorder) ObserveUpstreamDuration(op string, duration time.Duration) {
	m.mu.Lock()
	m.upstreamCallCount[op]++
	m.upstreamCallTotalNs[op] += duration.Nanoseconds()
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyDurations(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
