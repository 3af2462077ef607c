package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/dragonsh/core/logger"
)

// logsCmd prints the event log in a human readable form.
var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Print the shell's event log.",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		fd, err := configuration.ReadEventLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		w := cmd.OutOrStdout()
		session := color.New(color.FgCyan)
		return logger.ReadJSONLinesLog(fd, func(le *logger.LogEntry) {
			when := time.UnixMicro(le.TimestampMicros).Format(time.RFC3339)
			fmt.Fprintf(w, "%s %s %s\n", when, session.Sprintf("[%s]", le.SessionID), describe(le))
		})
	},
}

func describe(le *logger.LogEntry) string {
	switch {
	case le.SessionStart != nil:
		return fmt.Sprintf("session started user=%q remote=%q", le.SessionStart.User, le.SessionStart.RemoteAddr)
	case le.SessionEnd != nil:
		return fmt.Sprintf("session ended user=%ds sys=%ds", le.SessionEnd.UserSeconds, le.SessionEnd.SysSeconds)
	case le.CommandRun != nil:
		mode := "foreground"
		if le.CommandRun.Background {
			mode = "background"
		}
		return fmt.Sprintf("ran %s pid=%d %q", mode, le.CommandRun.Pid, strings.Join(le.CommandRun.Argv, " "))
	case le.PipelineRun != nil:
		return fmt.Sprintf("ran pipeline pgid=%d %q | %q", le.PipelineRun.Pgid,
			strings.Join(le.PipelineRun.Left, " "), strings.Join(le.PipelineRun.Right, " "))
	case le.JobFinished != nil:
		return fmt.Sprintf("background job finished pid=%d", le.JobFinished.Pid)
	case le.JobRejected != nil:
		return fmt.Sprintf("background job rejected %q", strings.Join(le.JobRejected.Argv, " "))
	case le.SignalRouted != nil:
		if le.SignalRouted.Forwarded {
			return fmt.Sprintf("forwarded %q to pgid=%d", le.SignalRouted.Signal, le.SignalRouted.Pgid)
		}
		return fmt.Sprintf("signal %q while idle", le.SignalRouted.Signal)
	case le.LoginAttempt != nil:
		return fmt.Sprintf("login user=%q remote=%q success=%t", le.LoginAttempt.Username,
			le.LoginAttempt.RemoteAddr, le.LoginAttempt.Success)
	case le.PublicKeyAuth != nil:
		return fmt.Sprintf("public key offered user=%q fingerprint=%s", le.PublicKeyAuth.Username,
			le.PublicKeyAuth.Fingerprint)
	default:
		return "unknown event"
	}
}

func init() {
	rootCmd.AddCommand(logsCmd)
}
