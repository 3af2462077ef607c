package core

import (
	"fmt"
	"os"
)

// builtinCd changes the session's working directory. Children inherit
// it; the interpreter process itself never chdirs, so concurrent
// sessions don't fight over a shared directory.
func (s *Session) builtinCd(args []string) {
	switch len(args) {
	case 1:
		fmt.Fprintf(s.stdout, "%s: Expected argument to \"cd\"\n", s.ShellName())
	case 2:
		target := s.resolvePath(args[1])
		info, err := os.Stat(target)
		switch {
		case err != nil:
			s.Errorf("%v", err)
		case !info.IsDir():
			s.Errorf("%s: not a directory", args[1])
		default:
			s.workdir = target
		}
	default:
		s.Errorf("cd: too many arguments")
	}
}

// builtinPwd prints the session's working directory. Extra arguments
// are ignored.
func (s *Session) builtinPwd() {
	fmt.Fprintln(s.stdout, s.workdir)
}
