package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Issue an immediate stop over the job port",
	Long: `Stop sends a single stop command over the job port. It is fire-and-forget:
no retries and no acknowledgment wait. The physical stop button on the
machine remains the authoritative halt.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Stop(); err != nil {
		return err
	}
	fmt.Println("stop sent")

	return nil
}
