package ruida

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmFromStatus(t *testing.T) {
	assert.Nil(t, alarmFromStatus(0))
	assert.Nil(t, alarmFromStatus(statusBitMoving|statusBitJobRunning))

	alarm := alarmFromStatus(statusBitWaterProtect)
	require.NotNil(t, alarm)
	assert.Contains(t, alarm.Reason, "water protect")
	assert.Equal(t, statusBitWaterProtect, alarm.Bits)

	alarm = alarmFromStatus(statusBitCoverOpen | statusBitMoving)
	require.NotNil(t, alarm)
	assert.Contains(t, alarm.Reason, "cover open")

	alarm = alarmFromStatus(statusBitHardLimit)
	require.NotNil(t, alarm)
	assert.Contains(t, alarm.Reason, "hard limit")
}

func TestAlarmFromStatus_FirstAlarmWins(t *testing.T) {
	// Multiple simultaneous alarms report the first in table order; the
	// raw bits carry the rest for diagnosis.
	alarm := alarmFromStatus(statusBitWaterProtect | statusBitCoverOpen)
	require.NotNil(t, alarm)
	assert.Contains(t, alarm.Reason, "water protect")
	assert.Equal(t, statusBitWaterProtect|statusBitCoverOpen, alarm.Bits)
}

func TestAlarmFromStatusBits_Exported(t *testing.T) {
	assert.Nil(t, AlarmFromStatusBits(0))
	assert.NotNil(t, AlarmFromStatusBits(statusBitCoverOpen))
}

func TestAlarmError_Message(t *testing.T) {
	err := alarmFromStatus(statusBitCoverOpen)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "cover open")
	assert.Contains(t, err.Error(), "0x00020000")
}

func TestStatusBitPredicates(t *testing.T) {
	assert.True(t, statusBusy(statusBitMoving))
	assert.True(t, statusBusy(statusBitMovingLow))
	assert.True(t, statusBusy(statusBitJobRunning))
	assert.False(t, statusBusy(0))
	assert.False(t, statusBusy(statusBitPaused), "paused is not busy")

	assert.True(t, statusPaused(statusBitPaused))
	assert.False(t, statusPaused(statusBitMoving))

	assert.True(t, statusPartEnd(statusBitPartEnd))
	assert.False(t, statusPartEnd(0))
}
