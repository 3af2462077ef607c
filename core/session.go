// Package core implements the command execution and job control engine
// behind the interpreter: process launching, redirection, pipelines,
// background job tracking and interactive signal routing.
package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/josephlewis42/dragonsh/core/config"
	"github.com/josephlewis42/dragonsh/core/logger"
)

// Session is one interpreter session: the shared state every component
// operates on. Multiple independent sessions can coexist in a single
// process.
//
// The foreground child reference is the only field touched from
// asynchronous signal context and is therefore atomic; everything else
// is owned by the session's command loop.
type Session struct {
	Config *config.Configuration
	Jobs   *JobTracker
	Log    *logger.SessionLogger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// workdir is the session's working directory; children run in it
	// and relative redirection targets resolve against it.
	workdir string

	// fgPid holds the process id leading the current foreground
	// process group, or 0 when no foreground child is running.
	fgPid atomic.Int64
}

// NewSession creates a session bound to the given stdio streams. A nil
// log discards events.
func NewSession(configuration *config.Configuration, stdin io.Reader, stdout, stderr io.Writer, log *logger.SessionLogger) *Session {
	if log == nil {
		log = logger.NewNopLogger().Sessionless()
	}

	workdir, err := os.Getwd()
	if err != nil {
		workdir = string(filepath.Separator)
	}

	return &Session{
		Config:  configuration,
		Jobs:    NewJobTracker(configuration.BackgroundSlots),
		Log:     log,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		workdir: workdir,
	}
}

func (s *Session) Stdin() io.Reader  { return s.stdin }
func (s *Session) Stdout() io.Writer { return s.stdout }
func (s *Session) Stderr() io.Writer { return s.stderr }

// ShellName is the name diagnostics are prefixed with.
func (s *Session) ShellName() string {
	return s.Config.ShellName
}

// Prompt returns the prompt shown between commands.
func (s *Session) Prompt() string {
	return s.Config.Prompt
}

// Workdir returns the session's working directory.
func (s *Session) Workdir() string {
	return s.workdir
}

// Errorf reports a one line diagnostic naming the shell.
func (s *Session) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(s.stderr, "%s: %s\n", s.ShellName(), fmt.Sprintf(format, args...))
}

// Foreground returns the pid leading the current foreground process
// group, or 0 if the session is idle. Safe from signal context.
func (s *Session) Foreground() int {
	return int(s.fgPid.Load())
}

func (s *Session) setForeground(pid int) {
	s.fgPid.Store(int64(pid))
}

// resolvePath makes a redirection or cd target absolute relative to
// the session's working directory.
func (s *Session) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.workdir, path)
}

func (s *Session) record(event logger.Event) {
	// Event logging is best effort; a full disk shouldn't kill the
	// session.
	_ = s.Log.Record(event)
}

// Shutdown prints the aggregate CPU time consumed by the session's
// foreground children and terminates any background job still
// running. Both the exit builtin and end of input land here.
func (s *Session) Shutdown() {
	user, sys := s.Jobs.Totals()
	fmt.Fprintf(s.stdout, "User time: %d seconds\n", user)
	fmt.Fprintf(s.stdout, "Sys time: %d seconds\n", sys)

	s.record(&logger.SessionEnd{UserSeconds: user, SysSeconds: sys})
	s.Jobs.Terminate()
}
