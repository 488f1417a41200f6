package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayhiben/laserdove/ruida"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Read the controller's status register and head position",
	Long: `Probe reads the controller's machine status register and the current
absolute head position over the job port, then prints them. Useful for
verifying connectivity, the swizzle profile, and the operator-set origin
before committing a job.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	state, err := sess.ReadMachineState(cmd.Context())
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	fmt.Printf("status: 0x%08X\n", state.StatusBits)
	if alarm := ruida.AlarmFromStatusBits(state.StatusBits); alarm != nil {
		fmt.Printf("alarm:  %s\n", alarm.Reason)
	}
	if state.HasPosition {
		fmt.Printf("head:   X=%.3f mm  Y=%.3f mm\n", state.X, state.Y)
	} else {
		fmt.Println("head:   position unavailable")
	}

	return nil
}
