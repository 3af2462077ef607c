package core

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/dragonsh/core/logger"
)

// SignalRouter decides where interactive interrupt and stop signals
// go: to the foreground child's process group when one is running, or
// back to the user as a fresh prompt when the interpreter is idle.
//
// The forwarding decision is decoupled from OS signal registration so
// it can be exercised without installing real handlers.
type SignalRouter struct {
	// Foreground returns the pid leading the current foreground
	// process group, or 0 when idle.
	Foreground func() int
	// Prompt returns the prompt to re-display when idle.
	Prompt func() string
	// Stdout receives the fresh prompt.
	Stdout io.Writer
	// Kill overrides signal delivery; nil means unix.Kill.
	Kill func(pid int, sig unix.Signal) error
	// Log receives routing events, may be nil.
	Log *logger.SessionLogger
}

// Router returns a signal router bound to the session.
func (s *Session) Router() *SignalRouter {
	return &SignalRouter{
		Foreground: s.Foreground,
		Prompt:     s.Prompt,
		Stdout:     s.stdout,
		Log:        s.Log,
	}
}

// Deliver routes one signal. It returns the process group leader the
// signal was forwarded to, or 0 and false if the interpreter was idle.
func (r *SignalRouter) Deliver(sig os.Signal) (int, bool) {
	num, ok := sig.(unix.Signal)
	if !ok {
		return 0, false
	}

	if pid := r.Foreground(); pid > 0 {
		kill := r.Kill
		if kill == nil {
			kill = unix.Kill
		}
		// Negative pid targets the whole process group, so the
		// child's own descendants hear the signal too.
		_ = kill(-pid, num)
		r.log(&logger.SignalRouted{Signal: num.String(), Pgid: pid, Forwarded: true})
		return pid, true
	}

	fmt.Fprintf(r.Stdout, "\n%s", r.Prompt())
	r.log(&logger.SignalRouted{Signal: num.String(), Forwarded: false})
	return 0, false
}

// Install registers the router for SIGINT and SIGTSTP and returns a
// function that removes it again.
func (r *SignalRouter) Install() (uninstall func()) {
	notifications := make(chan os.Signal, 8)
	signal.Notify(notifications, unix.SIGINT, unix.SIGTSTP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-notifications:
				r.Deliver(sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(notifications)
		close(done)
	}
}

func (r *SignalRouter) log(event logger.Event) {
	if r.Log != nil {
		_ = r.Log.Record(event)
	}
}
