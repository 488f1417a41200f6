package ruida

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// FrameSendCount indicates the number of frame transmissions, including
	// retransmissions.
	FrameSendCount atomic.Uint64
	// FrameRetryCount indicates the number of retransmissions.
	FrameRetryCount atomic.Uint64
	// FrameNackCount indicates the number of negative acknowledgments.
	FrameNackCount atomic.Uint64
	// ChecksumErrCount indicates the number of replies discarded for
	// checksum or framing failures.
	ChecksumErrCount atomic.Uint64

	// JobSubmitCount indicates the number of jobs submitted.
	JobSubmitCount atomic.Uint64
	// JobCompletedCount indicates the number of jobs that reached
	// StatusCompleted.
	JobCompletedCount atomic.Uint64
	// JobFaultedCount indicates the number of jobs that reached
	// StatusFaulted.
	JobFaultedCount atomic.Uint64

	// PollCount indicates the number of status polls issued.
	PollCount atomic.Uint64
	// PollErrCount indicates the number of malformed or failed polls.
	PollErrCount atomic.Uint64
}

func (m *SessionMetrics) incFrameSendCount()  { m.FrameSendCount.Add(1) }
func (m *SessionMetrics) incFrameRetryCount() { m.FrameRetryCount.Add(1) }
func (m *SessionMetrics) incFrameNackCount()  { m.FrameNackCount.Add(1) }
func (m *SessionMetrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}
func (m *SessionMetrics) incJobSubmitCount()    { m.JobSubmitCount.Add(1) }
func (m *SessionMetrics) incJobCompletedCount() { m.JobCompletedCount.Add(1) }
func (m *SessionMetrics) incJobFaultedCount()   { m.JobFaultedCount.Add(1) }
func (m *SessionMetrics) incPollCount()         { m.PollCount.Add(1) }
func (m *SessionMetrics) incPollErrCount()      { m.PollErrCount.Add(1) }
