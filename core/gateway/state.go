package gateway

// Status identifies the connection's position in the state machine.
type Status string

const (
	// StatusConnecting: socket open, waiting for the server hello.
	StatusConnecting Status = "connecting"
	// StatusAwaitingReady: identify sent, waiting for the ready dispatch.
	StatusAwaitingReady Status = "awaiting_ready"
	// StatusConnected: steady state, dispatches flow to the consumer.
	StatusConnected Status = "connected"
	// StatusResumeConnecting: reconnecting with a known session, waiting
	// for hello before sending the resume request.
	StatusResumeConnecting Status = "resume_connecting"
	// StatusResuming: resume sent, replaying missed dispatches.
	StatusResuming Status = "resuming"
	// StatusReconnecting: fresh session via the reconnect path,
	// waiting for hello.
	StatusReconnecting Status = "reconnecting"
	// StatusStopped: terminal, no further events are processed.
	StatusStopped Status = "stopped"
)

// connState is the closed set of state machine variants. Transitions happen
// only on the session's read goroutine; reads from other goroutines go
// through Connection.Status under the connection mutex.
type connState interface {
	status() Status
}

type (
	stateConnecting       struct{}
	stateAwaitingReady    struct{}
	stateConnected        struct{}
	stateResumeConnecting struct{}
	stateResuming         struct{}
	stateReconnecting     struct{}
	stateStopped          struct{}
)

func (stateConnecting) status() Status       { return StatusConnecting }
func (stateAwaitingReady) status() Status    { return StatusAwaitingReady }
func (stateConnected) status() Status        { return StatusConnected }
func (stateResumeConnecting) status() Status { return StatusResumeConnecting }
func (stateResuming) status() Status         { return StatusResuming }
func (stateReconnecting) status() Status     { return StatusReconnecting }
func (stateStopped) status() Status          { return StatusStopped }
