package ruida

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMgr_InitialState(t *testing.T) {
	mgr := NewStatusMgr(nil)

	assert.Equal(t, StatusIdle, mgr.Status())
	assert.Equal(t, FaultNone, mgr.Reason())
	assert.NoError(t, mgr.FaultErr())
	assert.False(t, mgr.Status().IsTerminal())
}

func TestStatusMgr_SetNotifiesHandlers(t *testing.T) {
	var transitions [][2]DeviceStatus
	mgr := NewStatusMgr(nil, func(prev, next DeviceStatus) {
		transitions = append(transitions, [2]DeviceStatus{prev, next})
	})

	mgr.Set(StatusUploading)
	mgr.Set(StatusUploading) // same state: no transition, no notification
	mgr.Set(StatusWaitingStart)

	require.Len(t, transitions, 2)
	assert.Equal(t, [2]DeviceStatus{StatusIdle, StatusUploading}, transitions[0])
	assert.Equal(t, [2]DeviceStatus{StatusUploading, StatusWaitingStart}, transitions[1])
}

func TestStatusMgr_FaultRecordsReasonAndError(t *testing.T) {
	mgr := NewStatusMgr(nil)

	cause := errors.New("boom")
	mgr.Fault(FaultAlarm, cause)

	assert.Equal(t, StatusFaulted, mgr.Status())
	assert.True(t, mgr.Status().IsTerminal())
	assert.Equal(t, FaultAlarm, mgr.Reason())
	assert.ErrorIs(t, mgr.FaultErr(), cause)
}

func TestStatusMgr_ResetClearsFault(t *testing.T) {
	mgr := NewStatusMgr(nil)
	mgr.Fault(FaultTransport, errors.New("gone"))

	mgr.Reset()

	assert.Equal(t, StatusIdle, mgr.Status())
	assert.Equal(t, FaultNone, mgr.Reason())
	assert.NoError(t, mgr.FaultErr())
}

func TestStatusMgr_WaitTerminal(t *testing.T) {
	mgr := NewStatusMgr(nil)

	var wg sync.WaitGroup
	results := make([]DeviceStatus, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = mgr.WaitTerminal()
		}(i)
	}

	// Non-terminal transitions must not release waiters.
	mgr.Set(StatusRunning)
	time.Sleep(10 * time.Millisecond)

	mgr.Set(StatusCompleted)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, StatusCompleted, r)
	}
}

func TestStatusMgr_AddHandler(t *testing.T) {
	mgr := NewStatusMgr(nil)

	calls := 0
	mgr.AddHandler(func(prev, next DeviceStatus) { calls++ })
	mgr.Set(StatusRunning)

	assert.Equal(t, 1, calls)
}

func TestDeviceStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "faulted", StatusFaulted.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "unknown", DeviceStatus(99).String())
}

func TestFaultReason_String(t *testing.T) {
	assert.Equal(t, "none", FaultNone.String())
	assert.Equal(t, "alarm", FaultAlarm.String())
	assert.Equal(t, "cancelled", FaultCancelled.String())
	assert.Equal(t, "unknown", FaultReason(99).String())
}
