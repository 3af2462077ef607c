package core

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/dragonsh/core/config"
	"github.com/josephlewis42/dragonsh/core/shell"
)

func TestRedirectionRoundTrip(t *testing.T) {
	session, stdout, stderr := testSession(t)

	session.RunCommand(&shell.Command{
		Args:   []string{"echo", "hello"},
		Output: "out.txt",
	})
	require.Empty(t, stderr.String())
	require.Empty(t, stdout.String(), "redirected output must not reach the session")

	session.RunCommand(&shell.Command{
		Args:  []string{"cat"},
		Input: "out.txt",
	})
	require.Empty(t, stderr.String())
	assert.Equal(t, "hello\n", stdout.String())
}

func TestRedirectionOpenFailure(t *testing.T) {
	session, stdout, stderr := testSession(t)

	session.RunCommand(&shell.Command{
		Args:  []string{"cat"},
		Input: "no-such-file.txt",
	})

	assert.Contains(t, stderr.String(), session.ShellName()+":")
	assert.Empty(t, stdout.String())
	assert.Zero(t, session.Foreground(), "session must stay usable")
}

func TestLaunchFailureKeepsSessionAlive(t *testing.T) {
	session, _, stderr := testSession(t)

	session.RunCommand(&shell.Command{Args: []string{"definitely-not-a-command-xyz"}})

	assert.Contains(t, stderr.String(), session.ShellName()+":")
	assert.Zero(t, session.Foreground())

	// The session still runs commands afterwards.
	stderr.Reset()
	session.RunCommand(&shell.Command{Args: []string{"true"}})
	assert.Empty(t, stderr.String())
}

func TestForegroundBlocksAndAccounts(t *testing.T) {
	session, _, stderr := testSession(t)

	prevUser, prevSys := session.Jobs.Totals()
	for i := 0; i < 3; i++ {
		session.RunCommand(&shell.Command{Args: []string{"true"}})

		user, sys := session.Jobs.Totals()
		assert.GreaterOrEqual(t, user, prevUser)
		assert.GreaterOrEqual(t, sys, prevSys)
		prevUser, prevSys = user, sys
	}

	assert.Empty(t, stderr.String())
	assert.Zero(t, session.Foreground(), "foreground reference must clear after reaping")
}

func TestForegroundReferenceDuringRun(t *testing.T) {
	session, _, _ := testSession(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.RunCommand(&shell.Command{Args: []string{"sleep", "0.5"}})
	}()

	require.Eventually(t, func() bool { return session.Foreground() > 0 },
		2*time.Second, 5*time.Millisecond, "foreground reference must be set while the child runs")

	<-done
	assert.Zero(t, session.Foreground())
}

func TestBackgroundReturnsImmediately(t *testing.T) {
	session, stdout, stderr := testSession(t)

	start := time.Now()
	session.RunCommand(&shell.Command{
		Args:       []string{"sleep", "5"},
		Background: true,
	})
	assert.Less(t, time.Since(start), 2*time.Second, "background launch must not block")
	require.Empty(t, stderr.String())

	pids := session.Jobs.Running()
	require.Len(t, pids, 1)
	assert.Contains(t, stdout.String(), fmt.Sprintf("PID %d is sent to background", pids[0]))

	session.Jobs.Terminate()
	require.Eventually(t, func() bool { return len(session.Jobs.Running()) == 0 },
		2*time.Second, 10*time.Millisecond, "reaper must release the slot")
}

func TestBackgroundSlotRejection(t *testing.T) {
	session, _, stderr := testSession(t)

	session.RunCommand(&shell.Command{Args: []string{"sleep", "5"}, Background: true})
	require.Len(t, session.Jobs.Running(), 1)

	session.RunCommand(&shell.Command{Args: []string{"sleep", "5"}, Background: true})
	assert.Contains(t, stderr.String(), ErrJobSlotsBusy.Error())
	assert.Len(t, session.Jobs.Running(), 1, "the running job must be left alone")

	session.Jobs.Terminate()
	require.Eventually(t, func() bool { return len(session.Jobs.Running()) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestBackgroundSlotFreedOnExit(t *testing.T) {
	session, _, _ := testSession(t)

	session.RunCommand(&shell.Command{Args: []string{"true"}, Background: true})
	require.Eventually(t, func() bool { return len(session.Jobs.Running()) == 0 },
		2*time.Second, 10*time.Millisecond)
}

// openPty allocates a pseudo-terminal pair.
func openPty(t *testing.T) (ptm, pts *os.File) {
	t.Helper()

	ptm, err := os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { ptm.Close() })

	require.NoError(t, unix.IoctlSetPointerInt(int(ptm.Fd()), unix.TIOCSPTLCK, 0))
	n, err := unix.IoctlGetInt(int(ptm.Fd()), unix.TIOCGPTN)
	require.NoError(t, err)

	pts, err = os.OpenFile(fmt.Sprintf("/dev/pts/%d", n), os.O_RDWR, 0)
	require.NoError(t, err)
	return ptm, pts
}

// TestForegroundChildReadsTerminal runs a terminal-reading child under
// a session whose stdin is a real pty. The child must be handed the
// terminal's foreground process group; otherwise its first read stops
// it with SIGTTIN and the wait never returns.
func TestForegroundChildReadsTerminal(t *testing.T) {
	ptm, pts := openPty(t)

	// Re-exec the test binary as a session leader with the pty as its
	// controlling terminal, so job control is live.
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperTerminalChild$", "-test.v")
	cmd.Env = append(os.Environ(), "GO_WANT_TERMINAL_CHILD=1")
	cmd.Stdin = pts
	cmd.Stdout = pts
	cmd.Stderr = pts
	cmd.SysProcAttr = &unix.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}
	require.NoError(t, cmd.Start())
	require.NoError(t, pts.Close())

	// Drain the terminal so the child can't block on a full buffer.
	go io.Copy(io.Discard, ptm)

	// One line for cat, then end-of-file.
	_, err := ptm.Write([]byte("hello\n\x04"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("session wedged waiting on a terminal-reading child")
	}
}

// TestHelperTerminalChild is the session side of
// TestForegroundChildReadsTerminal; it only runs re-executed with a
// pty on stdin.
func TestHelperTerminalChild(t *testing.T) {
	if os.Getenv("GO_WANT_TERMINAL_CHILD") == "" {
		t.Skip("re-executed by TestForegroundChildReadsTerminal")
	}

	session := NewSession(config.Default(), os.Stdin, os.Stdout, os.Stderr, nil)
	session.RunCommand(&shell.Command{Args: []string{"cat"}})
}

func TestShutdown(t *testing.T) {
	session, stdout, _ := testSession(t)

	session.RunCommand(&shell.Command{Args: []string{"sleep", "30"}, Background: true})
	require.Len(t, session.Jobs.Running(), 1)

	session.Shutdown()

	out := stdout.String()
	assert.Regexp(t, `User time: \d+ seconds`, out)
	assert.Regexp(t, `Sys time: \d+ seconds`, out)

	require.Eventually(t, func() bool { return len(session.Jobs.Running()) == 0 },
		2*time.Second, 10*time.Millisecond, "background job must be terminated at shutdown")
}
