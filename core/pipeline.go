package core

import (
	"errors"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/dragonsh/core/logger"
	"github.com/josephlewis42/dragonsh/core/shell"
)

// RunPipeline executes two commands joined by one anonymous pipe: the
// first stage's stdout feeds the second stage's stdin. Both stages
// share a process group and the pipeline always runs foreground.
func (s *Session) RunPipeline(left, right *shell.Command) {
	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		s.Errorf("pipe failed: %v", err)
		return
	}

	first := exec.Command(left.Args[0], left.Args[1:]...)
	first.Dir = s.workdir
	first.Stdin = s.childStdin(false)
	first.Stdout = pipeW
	first.Stderr = s.stderr
	first.SysProcAttr = &unix.SysProcAttr{Setpgid: true}

	second := exec.Command(right.Args[0], right.Args[1:]...)
	second.Dir = s.workdir
	second.Stdin = pipeR
	second.Stdout = s.stdout
	second.Stderr = s.stderr

	if err := first.Start(); err != nil {
		pipeR.Close()
		pipeW.Close()
		s.Errorf("%v", err)
		return
	}

	// The second stage joins the first's process group so a forwarded
	// signal reaches the whole pipeline.
	pgid := first.Process.Pid
	second.SysProcAttr = &unix.SysProcAttr{Setpgid: true, Pgid: pgid}
	secondErr := second.Start()

	// Drop the parent's copies of both pipe ends now that the children
	// hold theirs; the reader would otherwise never see EOF.
	pipeW.Close()
	pipeR.Close()

	if secondErr != nil {
		s.Errorf("%v", secondErr)
		_ = first.Wait()
		s.Jobs.AddUsage(childRusage(first.ProcessState))
		return
	}

	s.setForeground(pgid)
	restoreTerminal := s.transferTerminal(pgid)
	firstErr := first.Wait()
	secondWaitErr := second.Wait()
	restoreTerminal()
	s.setForeground(0)

	s.Jobs.AddUsage(childRusage(first.ProcessState))
	s.Jobs.AddUsage(childRusage(second.ProcessState))
	s.record(&logger.PipelineRun{Left: left.Args, Right: right.Args, Pgid: pgid})

	var exitErr *exec.ExitError
	for _, waitErr := range []error{firstErr, secondWaitErr} {
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			s.Errorf("%v", waitErr)
		}
	}
}
