package core

import (
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"sync"
	"time"
)

type ttyFd int

const (
	fdStdin  ttyFd = 0
	fdStdout ttyFd = 1
	fdStderr ttyFd = 2
)

type ttyOp int

const (
	opOpen  ttyOp = 1
	opClose ttyOp = 2
	opWrite ttyOp = 3
	opExec  ttyOp = 4
)

type ttyDir int

const (
	dirRead  ttyDir = 1
	dirWrite ttyDir = 2
)

// Recorder captures everything read from and written to a session's
// terminal in the User Mode Linux tty-log format, so transcripts can
// be replayed later.
type Recorder struct {
	mutex  sync.Mutex
	output io.Writer
}

// NewRecorder records session traffic to output.
func NewRecorder(output io.Writer) *Recorder {
	return &Recorder{output: output}
}

type event struct {
	Operation    int32  // Operation, maps into ttyOp.
	Tty          uint32 // Should always be 0.
	Size         int32  // Number of bytes following this event that represent the data.
	Direction    int32  // Data direction, maps into ttyDir.
	Seconds      uint32 // UNIX timestamp of the event.
	Microseconds uint32 // Microseconds after the timestamp of the event.
}

func logEvent(out io.Writer, timestamp time.Time, fd ttyFd, op ttyOp, data []byte) error {
	sec := timestamp.UnixNano() / int64(time.Second)
	usec := (timestamp.UnixNano() % int64(time.Second)) / int64(time.Microsecond)

	direction := dirWrite
	if fd == fdStdin {
		direction = dirRead
	}

	eventData := []interface{}{
		int32(op),
		uint32(0), // TTY, always 0
		int32(len(data)),
		int32(direction),
		uint32(sec),
		uint32(usec),
	}

	for _, v := range eventData {
		if err := binary.Write(out, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if len(data) > 0 {
		if _, err := out.Write(data); err != nil {
			return err
		}
	}

	return nil
}

func (r *Recorder) record(fd ttyFd, data []byte) {
	r.mutex.Lock()
	err := logEvent(r.output, time.Now(), fd, opWrite, data)
	r.mutex.Unlock()
	if err != nil {
		log.Print(err)
	}
}

// WrapStdin records everything the session reads.
func (r *Recorder) WrapStdin(wrapped io.Reader) io.Reader {
	return &recorderReader{r: r, fd: fdStdin, wrapped: wrapped}
}

// WrapStdout records everything the session prints.
func (r *Recorder) WrapStdout(wrapped io.Writer) io.Writer {
	return &recorderWriter{r: r, fd: fdStdout, wrapped: wrapped}
}

// WrapStderr records the session's diagnostics.
func (r *Recorder) WrapStderr(wrapped io.Writer) io.Writer {
	return &recorderWriter{r: r, fd: fdStderr, wrapped: wrapped}
}

type recorderReader struct {
	r       *Recorder
	fd      ttyFd
	wrapped io.Reader
}

func (rc *recorderReader) Read(p []byte) (int, error) {
	amount, err := rc.wrapped.Read(p)
	if err == nil {
		rc.r.record(rc.fd, p[:amount])
	}
	return amount, err
}

type recorderWriter struct {
	r       *Recorder
	fd      ttyFd
	wrapped io.Writer
}

func (rc *recorderWriter) Write(p []byte) (int, error) {
	amount, err := rc.wrapped.Write(p)
	if err == nil {
		rc.r.record(rc.fd, p[:amount])
	}
	return amount, err
}

type replayOpts struct {
	maxSleep time.Duration
}

// ReplayOpt changes options for playback.
type ReplayOpt func(*replayOpts)

// MaxSleep sets the maximum duration that Replay will sleep when
// playing events.
func MaxSleep(duration time.Duration) ReplayOpt {
	return func(r *replayOpts) {
		r.maxSleep = duration
	}
}

// Replay plays a stream of recorded events to destination.
func Replay(recording io.Reader, destination io.Writer, opts ...ReplayOpt) error {
	options := &replayOpts{
		maxSleep: 3 * time.Second,
	}

	for _, o := range opts {
		o(options)
	}

	var prevTime time.Time
	var once sync.Once
	eventPtr := &event{}
	buf := &bytes.Buffer{}

	for {
		if err := binary.Read(recording, binary.LittleEndian, eventPtr); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		buf.Reset()

		currTime := time.Unix(int64(eventPtr.Seconds), int64(eventPtr.Microseconds)*int64(time.Microsecond))
		once.Do(func() {
			prevTime = currTime
		})
		if _, err := io.CopyN(buf, recording, int64(eventPtr.Size)); err != nil {
			return err
		}

		if ttyOp(eventPtr.Operation) == opWrite && ttyDir(eventPtr.Direction) == dirWrite {
			sleepDuration := currTime.Sub(prevTime)
			if sleepDuration > options.maxSleep {
				sleepDuration = options.maxSleep
			}
			time.Sleep(sleepDuration)

			if _, err := destination.Write(buf.Bytes()); err != nil {
				return err
			}
		}

		prevTime = currTime
	}
}
