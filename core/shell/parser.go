// Package shell splits raw input lines into the argument vectors the
// interpreter executes.
//
// Parsing happens in three steps:
//
//  1. The line is split on the first '|' character, before any
//     tokenization, to detect a pipeline.
//  2. Each side is broken into whitespace-delimited tokens.
//  3. The token vector is scanned for the redirection operators '<'
//     and '>' and the background marker '&', which are stripped from
//     the final argument vector.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"
)

var (
	// ErrEmpty is returned when a command has no arguments left after
	// special tokens are stripped.
	ErrEmpty = errors.New("empty command")

	// ErrMissingTarget is returned when a redirection operator is the
	// last token and names no file.
	ErrMissingTarget = errors.New("missing redirection target")
)

// Command is one executable unit: an argument vector plus the
// redirections and background marker stripped out of it.
type Command struct {
	// Args holds the cleaned argument vector, Args[0] is the program.
	Args []string
	// Input is the '<' target, empty if stdin is not redirected.
	Input string
	// Output is the '>' target, empty if stdout is not redirected.
	Output string
	// Background is set when the vector contained the '&' marker.
	Background bool
}

// SplitPipe splits a raw line on the first '|' character. The pipe is
// recognized before tokenization so quoting can't hide it.
func SplitPipe(line string) (left, right string, ok bool) {
	if i := strings.IndexByte(line, '|'); i >= 0 {
		return line[:i], line[i+1:], true
	}
	return line, "", false
}

// Split tokenizes a line on whitespace.
func Split(line string) ([]string, error) {
	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %w", err)
	}
	return tokens, nil
}

// Parse scans a token vector for redirection operators and the
// background marker and produces the cleaned Command.
//
// Only the first occurrence of each operator is honored; later ones
// are kept as ordinary arguments. A '&' anywhere terminates the
// argument vector at that point.
func Parse(tokens []string) (*Command, error) {
	cmd := &Command{}

	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; tok {
		case "<", ">":
			target := &cmd.Input
			if tok == ">" {
				target = &cmd.Output
			}
			if *target != "" {
				// Already redirected, keep the token as an argument.
				cmd.Args = append(cmd.Args, tok)
				continue
			}
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("%w after %q", ErrMissingTarget, tok)
			}
			*target = tokens[i+1]
			i++

		case "&":
			cmd.Background = true
			i = len(tokens)

		default:
			cmd.Args = append(cmd.Args, tok)
		}
	}

	if len(cmd.Args) == 0 {
		return nil, ErrEmpty
	}
	return cmd, nil
}

// ParseStage parses one side of a pipeline. Stages may not carry
// redirections or the background marker; pipelines are always
// foreground and their endpoints belong to the pipe.
func ParseStage(stage string) (*Command, error) {
	tokens, err := Split(stage)
	if err != nil {
		return nil, err
	}

	for _, tok := range tokens {
		switch tok {
		case "<", ">":
			return nil, fmt.Errorf("syntax error: %q is not supported in a pipeline", tok)
		case "&":
			return nil, errors.New("syntax error: pipelines can't run in the background")
		}
	}

	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	return &Command{Args: tokens}, nil
}
