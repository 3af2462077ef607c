package core

import (
	"errors"
	"io"
	"log"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/josephlewis42/dragonsh/core/shell"
)

// TerminalInfo tells the line editor what it's driving when stdio
// isn't the process's own terminal (an SSH channel).
type TerminalInfo struct {
	IsTerminal func() bool
	Width      func() int
}

// Shell is the interactive read/interpret loop over a Session.
type Shell struct {
	session  *Session
	readline *readline.Instance
}

// NewShell wraps the session in a line editor. A nil term uses the
// process's own terminal.
func NewShell(session *Session, term *TerminalInfo) (*Shell, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(session.Stdin()),
		Stdout: session.Stdout(),
		Stderr: session.Stderr(),
	}
	if term != nil {
		cfg.FuncIsTerminal = term.IsTerminal
		cfg.FuncGetWidth = term.Width
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &Shell{
		session:  session,
		readline: rl,
	}, nil
}

// Run reads and interprets lines until end of input or the exit
// builtin. The caller owns shutdown.
func (sh *Shell) Run() error {
	if motd := sh.session.Config.Motd; motd != "" {
		color.New(color.FgGreen, color.Bold).Fprintln(sh.session.Stdout(), motd)
	}

	for {
		sh.readline.SetPrompt(sh.session.Prompt())
		line, err := sh.readline.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			log.Printf("Error readline: %v", err)
			return err
		}

		if sh.session.Interpret(line) {
			return nil
		}
	}
}

func (sh *Shell) Close() error {
	return sh.readline.Close()
}

// Interpret runs one input line and reports whether the session asked
// to shut down.
func (s *Session) Interpret(line string) (stop bool) {
	if left, right, isPipe := shell.SplitPipe(line); isPipe {
		first, err := shell.ParseStage(left)
		if err == nil {
			var second *shell.Command
			if second, err = shell.ParseStage(right); err == nil {
				s.RunPipeline(first, second)
				return false
			}
		}
		if errors.Is(err, shell.ErrEmpty) {
			s.Errorf("syntax error near '|'")
		} else {
			s.Errorf("%v", err)
		}
		return false
	}

	tokens, err := shell.Split(line)
	if err != nil {
		s.Errorf("%v", err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	// Builtins run in the interpreter itself, ahead of the engine.
	switch tokens[0] {
	case "exit":
		return true
	case "cd":
		s.builtinCd(tokens)
		return false
	case "pwd":
		s.builtinPwd()
		return false
	}

	cmd, err := shell.Parse(tokens)
	if err != nil {
		s.Errorf("%v", err)
		return false
	}

	s.RunCommand(cmd)
	return false
}
