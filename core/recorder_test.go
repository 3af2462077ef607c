package core

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderReplayRoundTrip(t *testing.T) {
	var recording bytes.Buffer
	recorder := NewRecorder(&recording)

	var terminal bytes.Buffer
	stdout := recorder.WrapStdout(&terminal)

	io.WriteString(stdout, "dragonsh > ")
	io.WriteString(stdout, "hello\n")
	assert.Equal(t, "dragonsh > hello\n", terminal.String(), "recording must not alter output")

	var replayed bytes.Buffer
	require.NoError(t, Replay(&recording, &replayed, MaxSleep(0)))
	assert.Equal(t, "dragonsh > hello\n", replayed.String())
}

func TestRecorderSkipsInputOnReplay(t *testing.T) {
	var recording bytes.Buffer
	recorder := NewRecorder(&recording)

	stdin := recorder.WrapStdin(strings.NewReader("typed secret\n"))
	stdout := recorder.WrapStdout(io.Discard)

	_, err := io.ReadAll(stdin)
	require.NoError(t, err)
	io.WriteString(stdout, "output\n")

	var replayed bytes.Buffer
	require.NoError(t, Replay(&recording, &replayed, MaxSleep(0)))
	assert.Equal(t, "output\n", replayed.String(), "reads are recorded but not played back")
}

func TestReplayEmptyRecording(t *testing.T) {
	var replayed bytes.Buffer
	require.NoError(t, Replay(strings.NewReader(""), &replayed))
	assert.Empty(t, replayed.String())
}
