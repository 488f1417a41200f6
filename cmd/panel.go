package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayhiben/laserdove/panel"
)

var panelPort int

var panelCmd = &cobra.Command{
	Use:   "panel <button>",
	Short: "Press a front-panel button over the panel port",
	Long: `Panel sends button presses over the controller's unswizzled panel port.
Buttons: stop, origin, frame, y+, y-, z+, z-.

The panel port mirrors the physical keypad: "origin" anchors the job start
point at the current head position, "frame" traces the loaded job's
bounding box with the laser off.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"stop", "origin", "frame", "y+", "y-", "z+", "z-"},
	RunE:      runPanel,
}

func init() {
	rootCmd.AddCommand(panelCmd)
	panelCmd.Flags().IntVar(&panelPort, "panel-port", panel.DefaultPort, "Controller panel UDP port")
}

func runPanel(cmd *cobra.Command, args []string) error {
	conn, err := panel.Dial(host,
		panel.WithPort(panelPort),
		panel.WithDryRun(dryRun),
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	button := args[0]
	switch button {
	case "stop":
		err = conn.Stop()
	case "origin":
		err = conn.SetOrigin()
	case "frame":
		err = conn.Frame()
	case "y+":
		err = conn.JogY(true)
	case "y-":
		err = conn.JogY(false)
	case "z+":
		err = conn.JogZ(true)
	case "z-":
		err = conn.JogZ(false)
	default:
		return fmt.Errorf("panel: unknown button %q", button)
	}
	if err != nil {
		return err
	}
	fmt.Printf("pressed %s\n", button)

	return nil
}
