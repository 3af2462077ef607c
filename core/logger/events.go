package logger

// LogEntry is one line of the event log. Exactly one of the event
// fields is set per entry.
type LogEntry struct {
	// TimestampMicros is the time the event was logged in microseconds
	// since the UNIX epoch.
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	SessionStart  *SessionStart  `json:"session_start,omitempty"`
	SessionEnd    *SessionEnd    `json:"session_end,omitempty"`
	CommandRun    *CommandRun    `json:"command_run,omitempty"`
	PipelineRun   *PipelineRun   `json:"pipeline_run,omitempty"`
	JobFinished   *JobFinished   `json:"job_finished,omitempty"`
	JobRejected   *JobRejected   `json:"job_rejected,omitempty"`
	SignalRouted  *SignalRouted  `json:"signal_routed,omitempty"`
	LoginAttempt  *LoginAttempt  `json:"login_attempt,omitempty"`
	PublicKeyAuth *PublicKeyAuth `json:"public_key_auth,omitempty"`
}

// Event is implemented by every entry type that can be recorded.
type Event interface {
	attach(le *LogEntry)
}

// SessionStart marks the beginning of an interactive session.
type SessionStart struct {
	User       string `json:"user,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	TTYLog     string `json:"tty_log,omitempty"`
}

// SessionEnd marks the end of a session along with the CPU time its
// foreground children consumed.
type SessionEnd struct {
	UserSeconds int64 `json:"user_seconds"`
	SysSeconds  int64 `json:"sys_seconds"`
}

// CommandRun records a foreground or background command execution.
type CommandRun struct {
	Argv       []string `json:"argv"`
	Pid        int      `json:"pid"`
	Background bool     `json:"background,omitempty"`
	ExitStatus int      `json:"exit_status,omitempty"`
}

// PipelineRun records a two stage pipeline execution.
type PipelineRun struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
	Pgid  int      `json:"pgid"`
}

// JobFinished records a background job leaving its slot.
type JobFinished struct {
	Pid int `json:"pid"`
}

// JobRejected records a background request refused because every slot
// was occupied.
type JobRejected struct {
	Argv []string `json:"argv"`
}

// SignalRouted records an interactive signal dispatch decision.
type SignalRouted struct {
	Signal    string `json:"signal"`
	Pgid      int    `json:"pgid,omitempty"`
	Forwarded bool   `json:"forwarded"`
}

// LoginAttempt records an SSH password login.
type LoginAttempt struct {
	Success    bool   `json:"success"`
	Username   string `json:"username"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// PublicKeyAuth records an offered (always rejected) SSH public key.
type PublicKeyAuth struct {
	Username    string `json:"username"`
	Fingerprint string `json:"fingerprint"`
}

func (e *SessionStart) attach(le *LogEntry)  { le.SessionStart = e }
func (e *SessionEnd) attach(le *LogEntry)    { le.SessionEnd = e }
func (e *CommandRun) attach(le *LogEntry)    { le.CommandRun = e }
func (e *PipelineRun) attach(le *LogEntry)   { le.PipelineRun = e }
func (e *JobFinished) attach(le *LogEntry)   { le.JobFinished = e }
func (e *JobRejected) attach(le *LogEntry)   { le.JobRejected = e }
func (e *SignalRouted) attach(le *LogEntry)  { le.SignalRouted = e }
func (e *LoginAttempt) attach(le *LogEntry)  { le.LoginAttempt = e }
func (e *PublicKeyAuth) attach(le *LogEntry) { le.PublicKeyAuth = e }
