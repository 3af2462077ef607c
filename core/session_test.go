package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/josephlewis42/dragonsh/core/config"
)

// testSession builds an independent session wired to buffers, with its
// working directory pinned to a temp dir.
func testSession(t *testing.T) (*Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	session := NewSession(config.Default(), strings.NewReader(""), &stdout, &stderr, nil)
	session.workdir = t.TempDir()
	return session, &stdout, &stderr
}
