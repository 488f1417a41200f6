package ruida

import (
	"sync"
	"sync/atomic"

	"github.com/sayhiben/laserdove/logger"
)

// DeviceStatus represents what the controller is doing with the current job.
// It is the single source of truth for machine activity: only the session's
// transport and poller mutate it, never the encoder.
type DeviceStatus uint32

const (
	// StatusIdle indicates no job is in flight.
	StatusIdle DeviceStatus = iota
	// StatusUploading indicates frames are being transmitted.
	StatusUploading
	// StatusWaitingStart indicates all frames are acknowledged but the
	// controller has not yet shown activity.
	StatusWaitingStart
	// StatusRunning indicates controller activity has been observed.
	StatusRunning
	// StatusPaused indicates the controller reported a paused job.
	StatusPaused
	// StatusCompleted is terminal: the stability detector declared the job done.
	StatusCompleted
	// StatusFaulted is terminal: alarm, liveness timeout, transport failure,
	// or cancellation.
	StatusFaulted
	// StatusUnknown indicates the last status reply was malformed; the poller
	// retries rather than faulting on a single bad read.
	StatusUnknown
)

// IsTerminal reports whether the status ends the job lifecycle.
func (s DeviceStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFaulted
}

func (s DeviceStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusUploading:
		return "uploading"
	case StatusWaitingStart:
		return "waiting-start"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// FaultReason classifies a StatusFaulted transition.
type FaultReason uint8

const (
	// FaultNone means the session has not faulted.
	FaultNone FaultReason = iota
	// FaultAlarm means the controller reported an explicit alarm.
	FaultAlarm
	// FaultTimeout means no liveness was observed before the deadline.
	FaultTimeout
	// FaultTransport means frame delivery failed.
	FaultTransport
	// FaultCancelled means an external stop request forced the fault.
	FaultCancelled
)

func (r FaultReason) String() string {
	switch r {
	case FaultNone:
		return "none"
	case FaultAlarm:
		return "alarm"
	case FaultTimeout:
		return "timeout"
	case FaultTransport:
		return "transport"
	case FaultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StatusChangeHandler is invoked on every status transition.
//
// Note: handlers run synchronously inside the transition. Take care with
// long-running implementations.
type StatusChangeHandler func(prev, next DeviceStatus)

// StatusMgr manages the job status of one session.
//
// It provides methods for status transitions and notifies listeners of
// changes. Transitions are safe for concurrent use, so a caller wrapping the
// poller in a cooperative task can observe status from another goroutine.
type StatusMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	reason   atomic.Uint32
	logger   logger.Logger
	handlers []StatusChangeHandler

	faultErr error
}

// NewStatusMgr creates a StatusMgr in StatusIdle.
func NewStatusMgr(l logger.Logger, handlers ...StatusChangeHandler) *StatusMgr {
	if l == nil {
		l = logger.GetLogger()
	}
	mgr := &StatusMgr{
		logger:   l,
		handlers: handlers,
	}
	mgr.state.Store(uint32(StatusIdle))
	mgr.cond = sync.NewCond(&mgr.mu)

	return mgr
}

// Status returns the current status.
func (m *StatusMgr) Status() DeviceStatus {
	return DeviceStatus(m.state.Load())
}

// Reason returns the fault reason, FaultNone unless StatusFaulted.
func (m *StatusMgr) Reason() FaultReason {
	return FaultReason(m.reason.Load()) //nolint:gosec // stored from a FaultReason
}

// FaultErr returns the error recorded with the last fault, if any.
func (m *StatusMgr) FaultErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.faultErr
}

// AddHandler registers additional status change handlers.
func (m *StatusMgr) AddHandler(handlers ...StatusChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handlers...)
}

// Set transitions to next unconditionally, notifying handlers and waiters.
func (m *StatusMgr) Set(next DeviceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setLocked(next)
}

// Fault transitions to StatusFaulted, recording the reason and error.
func (m *StatusMgr) Fault(reason FaultReason, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reason.Store(uint32(reason))
	m.faultErr = err
	m.setLocked(StatusFaulted)
}

// Reset returns to StatusIdle, clearing any fault, at the start of a new
// job submission.
func (m *StatusMgr) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reason.Store(uint32(FaultNone))
	m.faultErr = nil
	m.setLocked(StatusIdle)
}

// WaitTerminal blocks until the status is terminal and returns it.
// Broadcast wakeups make this safe for multiple waiters.
func (m *StatusMgr) WaitTerminal() DeviceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.Status().IsTerminal() {
		m.cond.Wait()
	}

	return m.Status()
}

func (m *StatusMgr) setLocked(next DeviceStatus) {
	prev := DeviceStatus(m.state.Load())
	if prev == next {
		return
	}

	m.state.Store(uint32(next))
	m.logger.Debug("device status transition", "prev", prev, "next", next)

	for _, handler := range m.handlers {
		if handler != nil {
			handler(prev, next)
		}
	}

	m.cond.Broadcast()
}
