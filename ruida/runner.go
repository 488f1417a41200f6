package ruida

import (
	"context"
	"fmt"

	"github.com/sayhiben/laserdove/logger"
)

// RotaryDriver turns the workpiece between laser blocks. The controller
// knows nothing about the rotary axis; an external collaborator (a stepper
// HAT, a second controller, a human with a dial) owns it.
type RotaryDriver interface {
	// RotateTo rotates the workpiece to an absolute angle in degrees at the
	// given angular speed in degrees per second. Blocks until the rotation
	// settles or ctx is cancelled.
	RotateTo(ctx context.Context, angleDeg, speedDPS float64) error
}

// SequenceRunner executes a planned command sequence that interleaves laser
// work with workpiece rotations. The sequence is partitioned at Rotate
// commands; each laser block between rotations becomes one encoded job,
// submitted and awaited to a terminal status before the rotary collaborator
// turns the piece for the next block.
//
// The origin is anchored once, at run start: every block cuts in the same
// operator-set frame regardless of how many rotations precede it. Before
// each rotation the head parks at the anchor so the beam path is clear of
// the moving workpiece.
type SequenceRunner struct {
	session *Session
	rotary  RotaryDriver
	logger  logger.Logger
}

// NewSequenceRunner builds a runner over session. rotary may be nil when
// the sequence contains no Rotate commands; a sequence that rotates without
// a driver fails at the first rotation.
func NewSequenceRunner(session *Session, rotary RotaryDriver) *SequenceRunner {
	return &SequenceRunner{
		session: session,
		rotary:  rotary,
		logger:  session.logger.With("component", "runner"),
	}
}

// Run executes cmds to completion. It returns the terminal status of the
// last executed block; a fault in any block aborts the remainder of the
// sequence.
func (r *SequenceRunner) Run(ctx context.Context, cmds []Command) (DeviceStatus, error) {
	blocks, rotations := partitionAtRotations(cmds)

	origin, err := r.session.CaptureOrigin(ctx)
	if err != nil {
		return StatusUnknown, err
	}

	baseline, err := r.session.Baseline(ctx)
	if err != nil {
		return StatusUnknown, err
	}

	status := StatusCompleted
	for i, block := range blocks {
		if len(block) > 0 {
			r.logger.Info("running block", "block", i+1, "total", len(blocks), "commands", len(block))
			status, err = r.runBlock(ctx, block, origin, baseline)
			if err != nil {
				return status, fmt.Errorf("ruida: block %d/%d: %w", i+1, len(blocks), err)
			}
		}

		if i < len(rotations) {
			if err := r.rotate(ctx, rotations[i], origin, baseline); err != nil {
				return status, err
			}
		}
	}

	return status, nil
}

func (r *SequenceRunner) runBlock(ctx context.Context, block []Command, origin Point3, baseline MachineState) (DeviceStatus, error) {
	if _, err := r.session.submitAt(ctx, block, origin); err != nil {
		return r.session.status.Status(), err
	}

	return r.session.Wait(ctx, baseline)
}

// rotate parks the head at the anchor, then hands control to the rotary
// collaborator.
func (r *SequenceRunner) rotate(ctx context.Context, rot Command, origin Point3, baseline MachineState) error {
	if r.rotary == nil {
		return fmt.Errorf("ruida: sequence requires a rotation but no rotary driver is configured")
	}

	park := []Command{MoveTo(0, 0, 0)}
	if _, err := r.session.submitAt(ctx, park, origin); err != nil {
		return fmt.Errorf("ruida: park before rotation: %w", err)
	}
	if _, err := r.session.Wait(ctx, baseline); err != nil {
		return fmt.Errorf("ruida: park before rotation: %w", err)
	}

	r.logger.Info("rotating workpiece", "angle_deg", rot.AngleDeg, "speed_dps", rot.RotateSpeedDPS)
	if err := r.rotary.RotateTo(ctx, rot.AngleDeg, rot.RotateSpeedDPS); err != nil {
		return fmt.Errorf("ruida: rotary driver: %w", err)
	}

	return nil
}

// partitionAtRotations splits cmds into laser blocks separated by the
// Rotate commands between them. len(blocks) == len(rotations)+1; leading,
// trailing, and adjacent rotations produce empty blocks, which Run skips.
func partitionAtRotations(cmds []Command) (blocks [][]Command, rotations []Command) {
	current := []Command{}
	for _, cmd := range cmds {
		if cmd.Type == CmdRotate {
			blocks = append(blocks, current)
			rotations = append(rotations, cmd)
			current = []Command{}

			continue
		}
		current = append(current, cmd)
	}
	blocks = append(blocks, current)

	return blocks, rotations
}
