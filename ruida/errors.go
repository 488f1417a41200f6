package ruida

import (
	"errors"
	"fmt"
)

// Sentinel errors for the Ruida protocol engine.
var (
	// Frame-level errors.
	ErrChecksumMismatch = errors.New("ruida: frame checksum mismatch")
	ErrFrameTooShort    = errors.New("ruida: frame shorter than checksum prefix")

	// Transport-level errors.
	ErrUnresponsive    = errors.New("ruida: controller unresponsive, retries exhausted")
	ErrRejected        = errors.New("ruida: controller rejected frame")
	ErrJobInFlight     = errors.New("ruida: a job is already in flight")
	ErrSessionClosed   = errors.New("ruida: session closed")
	ErrOpcodeTooLarge  = errors.New("ruida: single opcode exceeds maximum datagram payload")
	ErrNoTransport     = errors.New("ruida: session has no transport (dry-run without frames sink)")
	ErrReplyTimeout    = errors.New("ruida: timed out waiting for reply datagram")
	ErrEmptyReply      = errors.New("ruida: empty reply datagram")
	ErrUnexpectedReply = errors.New("ruida: unexpected reply byte")

	// Status-level errors. ErrMalformedReply is recoverable: the poller logs
	// and retries rather than faulting on a single bad read.
	ErrMalformedReply = errors.New("ruida: malformed status reply")
	ErrNoLiveness     = errors.New("ruida: no controller activity observed before deadline")
	ErrCancelled      = errors.New("ruida: job cancelled")
)

// EncodingError reports a malformed command stream. It is fatal for the
// current job: the job must not be sent.
type EncodingError struct {
	// Index is the position of the offending command in the input sequence.
	Index int
	// Reason describes the structural inconsistency.
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ruida: encoding failed at command %d: %s", e.Index, e.Reason)
}

// encodingErrf builds an EncodingError for the command at index.
func encodingErrf(index int, format string, args ...any) error {
	return &EncodingError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

// AlarmError reports an explicit controller alarm. It is fatal: the alarm
// bits are propagated to the caller, never downgraded to a log line.
type AlarmError struct {
	// Bits is the raw status register value that contained the alarm.
	Bits uint32
	// Reason is the decoded alarm description from the alarm table.
	Reason string
}

func (e *AlarmError) Error() string {
	return fmt.Sprintf("ruida: controller alarm: %s (status 0x%08X)", e.Reason, e.Bits)
}
