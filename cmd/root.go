package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sayhiben/laserdove/logger"
	"github.com/sayhiben/laserdove/ruida"
)

var (
	// Controller connection flags
	host       string
	port       int
	sourcePort int
	profile    string

	// Transport tuning flags
	ackTimeout time.Duration
	maxRetries int

	// Safety and diagnostics flags
	dryRun       bool
	movementOnly bool
	saveRDDir    string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "laserdove",
	Short: "Ruida laser controller protocol tool",
	Long: `Laserdove talks to Ruida laser-cutter controllers over their UDP wire
protocol: encoded job upload with per-frame acknowledgment, status and
position probing, and the unswizzled panel button port.

The controller executes whatever it acknowledges. Prefer --dry-run and
--movement-only while validating a new setup; neither fires the laser.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Controller IP address or hostname")
	rootCmd.PersistentFlags().IntVar(&port, "port", ruida.DefaultPort, "Controller UDP port")
	rootCmd.PersistentFlags().IntVar(&sourcePort, "source-port", ruida.DefaultSourcePort, "Local UDP source port")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", ruida.DefaultProfileName, "Controller family profile (rdc6442g, rdc634xg)")
	rootCmd.PersistentFlags().DurationVar(&ackTimeout, "ack-timeout", ruida.DefaultAckTimeout, "Per-frame acknowledgment timeout")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "retries", ruida.DefaultMaxRetries, "Retransmissions allowed per frame")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Build and log frames without sending")
	rootCmd.PersistentFlags().BoolVar(&movementOnly, "movement-only", false, "Force laser power to zero and downgrade cuts to moves")
	rootCmd.PersistentFlags().StringVar(&saveRDDir, "save-rd", "", "Directory to persist encoded .rd job dumps")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	_ = rootCmd.MarkPersistentFlagRequired("host")
}

// newSession builds a session from the persistent flags.
func newSession() (*ruida.Session, error) {
	cfg, err := ruida.NewSessionConfig(host,
		ruida.WithPort(port),
		ruida.WithSourcePort(sourcePort),
		ruida.WithProfile(profile),
		ruida.WithAckTimeout(ackTimeout),
		ruida.WithMaxRetries(maxRetries),
		ruida.WithDryRun(dryRun),
		ruida.WithMovementOnly(movementOnly),
		ruida.WithSaveRDDir(saveRDDir),
	)
	if err != nil {
		return nil, err
	}

	return ruida.NewSession(cfg)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
