package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/dragonsh/core/config"
	"github.com/josephlewis42/dragonsh/core/logger"
)

// Server exposes the interpreter over SSH. Every connection gets its
// own Session, so remote users can't see each other's jobs or working
// directories.
type Server struct {
	configuration *config.Configuration
	logger        *logger.Logger
	sshServer     *ssh.Server
}

// NewServer creates a server for the configuration; events go to
// logDest as JSON lines.
func NewServer(configuration *config.Configuration, logDest io.Writer) (*Server, error) {
	server := &Server{
		configuration: configuration,
		logger:        logger.NewJsonLinesLogRecorder(logDest),
	}

	server.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", configuration.SSHPort),
		Handler: func(s ssh.Session) {
			server.HandleConnection(s)
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			ok := server.checkPassword(ctx.User(), password)
			_ = server.logger.Sessionless().Record(&logger.LoginAttempt{
				Success:    ok,
				Username:   ctx.User(),
				RemoteAddr: fmt.Sprintf("%s", ctx.RemoteAddr()),
			})
			return ok
		},
		PublicKeyHandler: func(ctx ssh.Context, key ssh.PublicKey) bool {
			// Keys are never accepted, only noted.
			_ = server.logger.Sessionless().Record(&logger.PublicKeyAuth{
				Username:    ctx.User(),
				Fingerprint: gossh.FingerprintSHA256(key),
			})
			return false
		},
	}

	if banner := configuration.SSHBanner; banner != "" {
		server.sshServer.Version = banner
	}

	keyPem, err := configuration.PrivateKeyPem()
	if err != nil {
		return nil, fmt.Errorf("loading host key: %w", err)
	}
	if err := server.sshServer.SetOption(ssh.HostKeyPEM(keyPem)); err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}

	return server, nil
}

func (srv *Server) checkPassword(username, password string) bool {
	ok := srv.configuration.AllowAnyPassword
	for _, candidate := range srv.configuration.GetPasswords(username) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(candidate)) == 1 {
			ok = true
		}
	}
	return ok
}

// HandleConnection runs one interactive session over the SSH channel.
func (srv *Server) HandleConnection(s ssh.Session) {
	sessionLogger := srv.logger.NewSession()

	var (
		stdin  io.Reader = s
		stdout io.Writer = s
		stderr io.Writer = s.Stderr()
	)

	start := &logger.SessionStart{
		User:       s.User(),
		RemoteAddr: fmt.Sprintf("%s", s.RemoteAddr()),
	}

	if srv.configuration.RecordSessions {
		name := fmt.Sprintf("%s.log", time.Now().Format(time.RFC3339))
		fd, err := srv.configuration.CreateSessionLog(name)
		if err != nil {
			log.Printf("couldn't create session log: %v", err)
		} else {
			defer fd.Close()
			recorder := NewRecorder(fd)
			stdin = recorder.WrapStdin(stdin)
			stdout = recorder.WrapStdout(stdout)
			stderr = recorder.WrapStderr(stderr)
			start.TTYLog = name
		}
	}

	_ = sessionLogger.Record(start)

	session := NewSession(srv.configuration, stdin, stdout, stderr, sessionLogger)

	// Remote interrupt requests route exactly like local ones.
	router := session.Router()
	signals := make(chan ssh.Signal, 8)
	s.Signals(signals)
	defer s.Signals(nil)
	go func() {
		for sig := range signals {
			if num, ok := sshSignals[sig]; ok {
				router.Deliver(num)
			}
		}
	}()

	// Track window size for the line editor.
	ptyInfo, winch, isPty := s.Pty()
	var width atomic.Int32
	width.Store(int32(ptyInfo.Window.Width))
	go func() {
		for window := range winch {
			width.Store(int32(window.Width))
		}
	}()

	shell, err := NewShell(session, &TerminalInfo{
		IsTerminal: func() bool { return isPty },
		Width:      func() int { return int(width.Load()) },
	})
	if err != nil {
		fmt.Fprintf(s.Stderr(), "%v\n", err)
		s.Exit(1)
		return
	}
	defer shell.Close()

	// Shut the session down on every exit path so background jobs
	// don't outlive the connection.
	runErr := shell.Run()
	session.Shutdown()
	if runErr != nil {
		s.Exit(1)
		return
	}
	s.Exit(0)
}

// ListenAndServe accepts connections until Shutdown.
func (srv *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", srv.sshServer.Addr)
	return srv.sshServer.ListenAndServe()
}

// Shutdown gracefully stops the SSH server.
func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.sshServer.Shutdown(ctx)
}

var sshSignals = map[ssh.Signal]unix.Signal{
	ssh.SIGINT:  unix.SIGINT,
	ssh.SIGQUIT: unix.SIGQUIT,
	ssh.SIGTERM: unix.SIGTERM,
	ssh.SIGUSR1: unix.SIGUSR1,
	ssh.SIGUSR2: unix.SIGUSR2,
}
