package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/dragonsh/core/logger"
	"github.com/josephlewis42/dragonsh/core/shell"
)

// RunCommand executes one parsed command: resolves its redirections,
// spawns the process and either blocks on it (foreground) or hands it
// to the job tracker (background).
//
// Failures abandon the command and never the session.
func (s *Session) RunCommand(cmd *shell.Command) {
	c := exec.Command(cmd.Args[0], cmd.Args[1:]...)
	c.Dir = s.workdir
	c.Stdin = s.childStdin(cmd.Background)
	c.Stdout = s.stdout
	c.Stderr = s.stderr
	// Children lead their own process group so interactive signals can
	// be forwarded to the whole group.
	c.SysProcAttr = &unix.SysProcAttr{Setpgid: true}

	var toClose []io.Closer
	defer func() {
		for _, fd := range toClose {
			fd.Close()
		}
	}()

	if cmd.Input != "" {
		fd, err := os.Open(s.resolvePath(cmd.Input))
		if err != nil {
			s.Errorf("%v", err)
			return
		}
		toClose = append(toClose, fd)
		c.Stdin = fd
	}
	if cmd.Output != "" {
		fd, err := os.OpenFile(s.resolvePath(cmd.Output), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			s.Errorf("%v", err)
			return
		}
		toClose = append(toClose, fd)
		c.Stdout = fd
	}

	if cmd.Background {
		s.runBackground(c, cmd.Args)
	} else {
		s.runForeground(c, cmd.Args)
	}
}

// runForeground blocks until the child terminates and folds its
// resource usage into the aggregate.
func (s *Session) runForeground(c *exec.Cmd, argv []string) {
	if err := c.Start(); err != nil {
		s.Errorf("%v", err)
		return
	}

	pid := c.Process.Pid
	s.setForeground(pid)
	restoreTerminal := s.transferTerminal(pid)
	waitErr := c.Wait()
	restoreTerminal()
	s.setForeground(0)

	s.Jobs.AddUsage(childRusage(c.ProcessState))
	s.record(&logger.CommandRun{
		Argv:       argv,
		Pid:        pid,
		ExitStatus: c.ProcessState.ExitCode(),
	})

	// A nonzero exit status is the child's business, not an
	// interpreter failure.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		s.Errorf("%v", waitErr)
	}
}

// runBackground starts the child without blocking, reports its pid and
// leaves a reaper goroutine behind to free the slot.
func (s *Session) runBackground(c *exec.Cmd, argv []string) {
	if s.Jobs.Full() {
		s.Errorf("%v", ErrJobSlotsBusy)
		s.record(&logger.JobRejected{Argv: argv})
		return
	}

	if err := c.Start(); err != nil {
		s.Errorf("%v", err)
		return
	}

	pid := c.Process.Pid
	if err := s.Jobs.Register(pid, argv); err != nil {
		// Can't happen from the single command loop, but don't lose
		// the child if it somehow does.
		s.Errorf("%v", err)
	}

	fmt.Fprintf(s.stdout, "PID %d is sent to background\n", pid)
	s.record(&logger.CommandRun{Argv: argv, Pid: pid, Background: true})

	go s.reapBackground(c, pid)
}

func (s *Session) reapBackground(c *exec.Cmd, pid int) {
	_ = c.Wait()
	s.Jobs.Release(pid)
	s.record(&logger.JobFinished{Pid: pid})
}

// transferTerminal hands the controlling terminal's foreground process
// group to pgid and returns a function that gives the terminal back to
// the interpreter. Without the handoff a child that reads the terminal
// is stopped by SIGTTIN on its first read and its wait never returns.
// No-op when the session isn't driven by a terminal.
func (s *Session) transferTerminal(pgid int) (restore func()) {
	fd, ok := s.stdin.(*os.File)
	if !ok || !isatty.IsTerminal(fd.Fd()) {
		return func() {}
	}

	// Taking the terminal back happens while the child's group still
	// owns it, which raises SIGTTOU unless the signal is ignored.
	signal.Ignore(unix.SIGTTOU)

	tty := int(fd.Fd())
	_ = unix.IoctlSetInt(tty, unix.TIOCSPGRP, pgid)
	return func() {
		_ = unix.IoctlSetInt(tty, unix.TIOCSPGRP, unix.Getpgrp())
	}
}

// childStdin picks a child's stdin when no redirection applies.
// Background jobs never read the terminal. When the session's input
// isn't a real file (an SSH channel, or a recorded session) the child
// gets no input rather than racing the interpreter for bytes.
func (s *Session) childStdin(background bool) io.Reader {
	if background {
		return nil
	}
	if fd, ok := s.stdin.(*os.File); ok {
		return fd
	}
	return nil
}
