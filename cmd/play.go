package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/dragonsh/core"
)

var idleTimeLimit time.Duration

// playCmd replays a recorded session transcript.
var playCmd = &cobra.Command{
	Use:   "play LOG",
	Short: "Replay a recorded interactive session.",
	Long:  `Plays a recorded interactive session back to the current terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		return core.Replay(fd, cmd.OutOrStdout(), core.MaxSleep(idleTimeLimit))
	},
}

func init() {
	playCmd.Flags().DurationVar(&idleTimeLimit, "idle-time-limit", 3*time.Second, "cap pauses between events at this duration")
	rootCmd.AddCommand(playCmd)
}
