package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayhiben/laserdove/ruida"
)

var (
	jogX, jogY, jogZ float64
	jogSpeed         float64
)

var jogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Move the head by a relative offset with the laser off",
	Long: `Jog uploads a one-move job that displaces the head from its current
position by the given offsets, waits for the move to complete, and exits.
The job is always encoded movement-only, so the laser cannot fire.

Examples:
  # Move 10mm right and 5mm back at 50 mm/s
  laserdove jog --host 192.168.1.100 -x 10 -y 5

  # Raise the bed 2mm
  laserdove jog --host 192.168.1.100 -z 2`,
	RunE: runJog,
}

func init() {
	rootCmd.AddCommand(jogCmd)
	jogCmd.Flags().Float64VarP(&jogX, "x", "x", 0, "X offset in mm")
	jogCmd.Flags().Float64VarP(&jogY, "y", "y", 0, "Y offset in mm")
	jogCmd.Flags().Float64VarP(&jogZ, "z", "z", 0, "Z offset in mm")
	jogCmd.Flags().Float64Var(&jogSpeed, "speed", 50, "Travel speed in mm/s")
}

// jogCommands builds the one-move job for a relative jog. The session anchors
// jobs at the head's current position, so the move target must carry the
// head position plus the offset for the encoded operand to equal the offset.
// Z anchors at the operator-zeroed origin and is already relative.
func jogCommands(baseline ruida.MachineState, dx, dy, dz, speed float64) []ruida.Command {
	const jogLayer = 0

	return []ruida.Command{
		ruida.SetSpeed(jogLayer, speed),
		ruida.SetPower(jogLayer, 0, 0),
		ruida.MoveTo(baseline.X+dx, baseline.Y+dy, dz),
	}
}

func runJog(cmd *cobra.Command, args []string) error {
	if jogX == 0 && jogY == 0 && jogZ == 0 {
		return fmt.Errorf("jog: at least one of -x, -y, -z must be non-zero")
	}

	// The laser never fires while jogging, whatever the global flag says.
	movementOnly = true

	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	baseline, err := sess.Baseline(cmd.Context())
	if err != nil {
		return fmt.Errorf("jog: %w", err)
	}
	if !baseline.HasPosition && !sess.Config().DryRun() {
		return fmt.Errorf("jog: controller did not report the head position; cannot jog by offset")
	}

	if _, err := sess.Submit(cmd.Context(), jogCommands(baseline, jogX, jogY, jogZ, jogSpeed)); err != nil {
		return fmt.Errorf("jog: %w", err)
	}
	status, err := sess.Wait(cmd.Context(), baseline)
	if err != nil {
		return fmt.Errorf("jog: %w", err)
	}
	fmt.Printf("jog finished: %s\n", status)

	return nil
}
