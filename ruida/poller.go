package ruida

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sayhiben/laserdove/internal/pool"
	"github.com/sayhiben/laserdove/logger"
)

// StatusPoller watches an uploaded job to a terminal status.
//
// Completion cannot be read directly from the controller: the status
// register looks idle both before the operator presses Start and after the
// job finishes. The poller therefore works in two phases. It first waits
// for liveness, evidence that the job has begun: a busy status bit, or the
// head position moving beyond the configured tolerance from its pre-job
// baseline. Only after liveness does it look for stability: a configured
// number of consecutive polls, spanning a minimum wall time, that all read
// idle at a consistent position. A single idle read before liveness proves
// nothing and never completes the job.
type StatusPoller struct {
	session  *Session
	cfg      *SessionConfig
	logger   logger.Logger
	baseline MachineState

	live        bool
	stableCount int
	stableSince time.Time
	stablePos   MachineState
}

// NewStatusPoller builds a poller for the session's in-flight job. baseline
// is the machine state captured before submission; movement away from it is
// evidence the job started.
func NewStatusPoller(s *Session, baseline MachineState) *StatusPoller {
	return &StatusPoller{
		session:  s,
		cfg:      s.cfg,
		logger:   s.logger.With("component", "poller"),
		baseline: baseline,
	}
}

// Wait polls until the job reaches a terminal status and returns it.
//
// Faults short-circuit: an alarm bit in the status register faults the job
// immediately with the alarm description. If MaxWait elapses with no
// liveness ever observed, the job faults with ErrNoLiveness rather than
// reporting a cut that never happened as completed. Cancellation issues a
// best-effort Stop and faults with ErrCancelled.
//
// Transient poll failures (timeouts, malformed replies) are absorbed: the
// status becomes StatusUnknown and polling continues, since a missed
// datagram during a long cut is routine.
func (p *StatusPoller) Wait(ctx context.Context) (DeviceStatus, error) {
	if p.cfg.DryRun() {
		p.session.status.Set(StatusCompleted)

		return StatusCompleted, nil
	}

	deadline := time.Now().Add(p.cfg.MaxWait())

	for {
		if err := p.sleep(ctx); err != nil {
			p.cancel(err)

			return StatusFaulted, p.session.status.FaultErr()
		}

		state, err := p.session.ReadMachineState(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.cancel(ctx.Err())

				return StatusFaulted, p.session.status.FaultErr()
			}
			p.logger.Debug("poll failed, continuing", "error", err)
			p.session.status.Set(StatusUnknown)
			p.resetStability()
		} else if done, status := p.observe(state); done {
			return status, p.session.status.FaultErr()
		}

		if !p.live && time.Now().After(deadline) {
			err := fmt.Errorf("%w: no activity within %s", ErrNoLiveness, p.cfg.MaxWait())
			p.session.status.Fault(FaultTimeout, err)

			return StatusFaulted, err
		}
	}
}

// observe folds one successful poll into the liveness/stability state
// machine. It returns done=true with the terminal status when the job has
// finished or faulted.
func (p *StatusPoller) observe(state MachineState) (bool, DeviceStatus) {
	if alarm := alarmFromStatus(state.StatusBits); alarm != nil {
		p.session.status.Fault(FaultAlarm, alarm)

		return true, StatusFaulted
	}

	busy := statusBusy(state.StatusBits)
	moved := state.HasPosition && p.baseline.HasPosition &&
		(math.Abs(state.X-p.baseline.X) > p.cfg.PositionTolMM() ||
			math.Abs(state.Y-p.baseline.Y) > p.cfg.PositionTolMM())

	if !p.live {
		if busy || moved {
			p.live = true
			p.logger.Info("job activity detected", "busy", busy, "moved", moved)
			p.session.status.Set(StatusRunning)
		}

		return false, StatusUnknown
	}

	switch {
	case statusPaused(state.StatusBits):
		p.session.status.Set(StatusPaused)
		p.resetStability()
	case busy:
		p.session.status.Set(StatusRunning)
		p.resetStability()
	case statusPartEnd(state.StatusBits):
		// An explicit part-end report makes the stability window redundant.
		// The bit is only trusted after liveness; it can linger from a
		// previous job while the current one waits for Start.
		p.logger.Info("job completed", "part_end", true)
		p.session.status.Set(StatusCompleted)

		return true, StatusCompleted
	default:
		if p.settled(state) {
			p.logger.Info("job completed",
				"stable_polls", p.stableCount,
				"stable_for", time.Since(p.stableSince).Round(time.Millisecond),
			)
			p.session.status.Set(StatusCompleted)

			return true, StatusCompleted
		}
	}

	return false, StatusUnknown
}

// settled folds one idle poll into the stability window and reports whether
// the window is satisfied: StablePolls consecutive idle reads at a
// consistent position, spanning at least MinStableTime.
func (p *StatusPoller) settled(state MachineState) bool {
	consistent := !state.HasPosition || !p.stablePos.HasPosition ||
		(math.Abs(state.X-p.stablePos.X) <= p.cfg.PositionTolMM() &&
			math.Abs(state.Y-p.stablePos.Y) <= p.cfg.PositionTolMM())

	if p.stableCount == 0 || !consistent {
		p.stableCount = 1
		p.stableSince = time.Now()
		p.stablePos = state

		return false
	}

	p.stableCount++

	return p.stableCount >= p.cfg.StablePolls() &&
		time.Since(p.stableSince) >= p.cfg.MinStableTime()
}

func (p *StatusPoller) resetStability() {
	p.stableCount = 0
	p.stablePos = MachineState{}
}

// sleep blocks for one poll interval, honoring cancellation.
func (p *StatusPoller) sleep(ctx context.Context) error {
	timer := pool.GetTimer(p.cfg.PollInterval())
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cancel stops the controller best-effort and records the cancellation
// fault. The stop frame is fire-and-forget; the operator's physical stop
// button remains the authoritative halt.
func (p *StatusPoller) cancel(cause error) {
	if err := p.session.Stop(); err != nil {
		p.logger.Warn("best-effort stop failed", "error", err)
	}
	p.session.status.Fault(FaultCancelled, fmt.Errorf("%w: %w", ErrCancelled, cause))
}
