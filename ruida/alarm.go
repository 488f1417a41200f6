package ruida

// Machine status register bits (MemMachineStatus). The mapping is asserted
// from vendor documentation and community reverse-engineering, not a formal
// specification; it lives in this one table so a discrepancy against real
// hardware is patched here without touching the poller state machine.
const (
	// statusBitJobRunning is set by some firmwares while a job executes.
	statusBitJobRunning uint32 = 0x00000001
	// statusBitPartEnd is set when the current part has finished.
	statusBitPartEnd uint32 = 0x00000002
	// statusBitMovingLow is the lower-byte "is moving" bit.
	statusBitMovingLow uint32 = 0x00000010
	// statusBitPaused is set while a job is paused from the panel.
	statusBitPaused uint32 = 0x00000100
	// statusBitMoving is the upper-byte "is moving" bit.
	statusBitMoving uint32 = 0x01000000

	// Alarm bits. Any of these means the controller refuses to run.
	statusBitWaterProtect uint32 = 0x00010000
	statusBitCoverOpen    uint32 = 0x00020000
	statusBitHardLimit    uint32 = 0x00040000

	// statusAlarmMask selects all known alarm bits.
	statusAlarmMask = statusBitWaterProtect | statusBitCoverOpen | statusBitHardLimit

	// statusBusyMask selects the bits that indicate activity.
	statusBusyMask = statusBitJobRunning | statusBitMovingLow | statusBitMoving
)

// alarmDescriptions maps individual alarm bits to operator-facing text.
var alarmDescriptions = []struct {
	bit  uint32
	text string
}{
	{statusBitWaterProtect, "water protect triggered"},
	{statusBitCoverOpen, "cover open"},
	{statusBitHardLimit, "hard limit hit"},
}

// alarmFromStatus returns an AlarmError when bits contain an alarm,
// nil otherwise.
func alarmFromStatus(bits uint32) *AlarmError {
	if bits&statusAlarmMask == 0 {
		return nil
	}
	for _, d := range alarmDescriptions {
		if bits&d.bit != 0 {
			return &AlarmError{Bits: bits, Reason: d.text}
		}
	}
	return &AlarmError{Bits: bits, Reason: "unknown alarm"}
}

// AlarmFromStatusBits returns the alarm raised by a raw status register
// value, or nil when no alarm bit is set.
func AlarmFromStatusBits(bits uint32) *AlarmError {
	return alarmFromStatus(bits)
}

// statusBusy reports whether bits show the machine actively moving or
// running. Absence of these bits is NOT proof of idleness: several firmwares
// never assert them, which is why the poller uses a liveness-then-stability
// detector instead of trusting a busy flag.
func statusBusy(bits uint32) bool {
	return bits&statusBusyMask != 0
}

// statusPaused reports whether bits show a paused job.
func statusPaused(bits uint32) bool {
	return bits&statusBitPaused != 0
}

// statusPartEnd reports whether bits show the part-finished flag.
func statusPartEnd(bits uint32) bool {
	return bits&statusBitPartEnd != 0
}
