package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/dragonsh/core"
	"github.com/josephlewis42/dragonsh/core/config"
	"github.com/josephlewis42/dragonsh/core/logger"
)

// runCmd starts an interactive session on the current terminal.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive session on this terminal.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if errors.Is(err, fs.ErrNotExist) {
			// The shell works without an initialized directory, it
			// just can't store logs or keys.
			configuration = config.Default()
		} else if err != nil {
			return err
		}
		if err := configuration.Validate(); err != nil {
			return err
		}

		var eventLog io.Writer = io.Discard
		if configuration.HasConfigDir() {
			if fd, err := configuration.OpenEventLog(); err == nil {
				defer fd.Close()
				eventLog = fd
			}
		}
		sessionLogger := logger.NewJsonLinesLogRecorder(eventLog).NewSession()

		var (
			stdin  io.Reader = os.Stdin
			stdout io.Writer = os.Stdout
			stderr io.Writer = os.Stderr
		)

		start := &logger.SessionStart{User: os.Getenv("USER")}
		if configuration.RecordSessions && configuration.HasConfigDir() {
			name := fmt.Sprintf("%s.log", time.Now().Format(time.RFC3339))
			fd, err := configuration.CreateSessionLog(name)
			if err != nil {
				return err
			}
			defer fd.Close()

			recorder := core.NewRecorder(fd)
			stdin = recorder.WrapStdin(stdin)
			stdout = recorder.WrapStdout(stdout)
			stderr = recorder.WrapStderr(stderr)
			start.TTYLog = name
		}
		_ = sessionLogger.Record(start)

		session := core.NewSession(configuration, stdin, stdout, stderr, sessionLogger)

		uninstall := session.Router().Install()
		defer uninstall()

		shell, err := core.NewShell(session, nil)
		if err != nil {
			return err
		}
		defer shell.Close()

		// Every exit path lands in the session shutdown so the totals
		// print and background jobs are signaled.
		runErr := shell.Run()
		session.Shutdown()
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
