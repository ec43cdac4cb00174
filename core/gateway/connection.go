package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/botkit/core/logger"
	"github.com/dmitrymomot/botkit/pkg/async"
	"github.com/dmitrymomot/botkit/pkg/identify"
)

// reconnectDelay spaces successive connection attempts.
const reconnectDelay = 2 * time.Second

// DispatchHandler consumes decoded dispatch events. It is called on the
// shard's read goroutine: events within one shard arrive in order, and a slow
// handler backpressures that shard only.
type DispatchHandler func(shardID int, evt Event)

// Connection owns one shard's WebSocket session and runs the
// connect/identify/heartbeat/resume state machine. It persists across
// reconnects and resumes by replacing its state and socket handle; it is
// destroyed only by Stop or a close code that forbids reconnecting.
type Connection struct {
	shardID     int
	totalShards int
	token       string
	botID       string
	intents     Intents
	gatewayURL  string

	limiter *identify.Limiter
	onEvent DispatchHandler
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu        sync.Mutex
	state     connState
	sess      *session
	sessionID string
	resumeURL string
	cancel    context.CancelFunc

	// Last seen dispatch sequence; zero until the first dispatch of a
	// session. Read by the heartbeat goroutine.
	sequence atomic.Int64
	// Cleared when a heartbeat is sent, set by the ack. A send that finds it
	// still cleared marks the connection as a zombie.
	acked atomic.Bool

	eventsReceived atomic.Int64
	resumes        atomic.Int64
	reconnects     atomic.Int64
}

// ConnectionStats provides observability metrics for monitoring and debugging.
type ConnectionStats struct {
	Status         Status
	Sequence       int64
	EventsReceived int64
	Resumes        int64
	Reconnects     int64
}

// Option configures a Connection.
type Option func(*Connection)

// WithShard assigns this connection's shard slot.
func WithShard(id, total int) Option {
	return func(c *Connection) {
		if id >= 0 && total > 0 && id < total {
			c.shardID = id
			c.totalShards = total
		}
	}
}

// WithIdentifyLimiter shares an admission limiter across shards.
func WithIdentifyLimiter(l *identify.Limiter) Option {
	return func(c *Connection) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithDispatchHandler sets the consumer for decoded dispatch events.
func WithDispatchHandler(h DispatchHandler) Option {
	return func(c *Connection) {
		if h != nil {
			c.onEvent = h
		}
	}
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Connection) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger sets the logger for connection diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConnection creates a connection for one shard.
func NewConnection(cfg Config, opts ...Option) (*Connection, error) {
	if cfg.Token == "" {
		return nil, ErrEmptyToken
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: gateway URL is required", ErrInvalidConfig)
	}

	botID := cfg.BotID
	if botID == "" {
		// All shards of one token must share an admission bucket.
		botID = cfg.Token
	}

	c := &Connection{
		totalShards: 1,
		token:       cfg.Token,
		botID:       botID,
		intents:     cfg.Intents,
		gatewayURL:  cfg.GatewayURL,
		limiter:     identify.NewLimiter(),
		dialer:      &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:       stateConnecting{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(logger.ShardID(c.shardID))

	return c, nil
}

// sessionOutcome decides what follows a finished session.
type sessionOutcome int

const (
	outcomeReconnect sessionOutcome = iota
	outcomeResume
	outcomeStop
)

// Start runs the connection until Stop is called, the context is cancelled,
// or the server closes with a code that forbids reconnecting. This is a
// blocking operation; use Run for the errgroup pattern or call it in a
// goroutine.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	resume := false
	firstAttempt := true

	for {
		outcome, err := c.runSession(ctx, resume, firstAttempt)
		firstAttempt = false

		if ctx.Err() != nil {
			c.setState(stateStopped{})
			c.logger.Info("gateway connection stopped")
			return ctx.Err()
		}

		switch outcome {
		case outcomeStop:
			c.setState(stateStopped{})
			c.logger.Error("gateway connection stopped permanently", logger.Error(err))
			return err

		case outcomeResume:
			c.resumes.Add(1)
			resume = true
			c.logger.Info("resuming gateway session",
				logger.SessionID(c.currentSessionID()),
				logger.Sequence(c.sequence.Load()),
				logger.Error(err))

		default:
			c.reconnects.Add(1)
			resume = false
			c.clearSession()
			c.logger.Info("reconnecting with a fresh session", logger.Error(err))
		}

		if err := sleepContext(ctx, reconnectDelay); err != nil {
			c.setState(stateStopped{})
			return err
		}
	}
}

// Stop closes the socket and cancels the connection's context. The state
// machine enters Stopped and never transitions again.
func (c *Connection) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	sess := c.sess
	c.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()

	if sess != nil {
		sess.close(websocket.CloseNormalClosure, "shutting down")
	}
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (c *Connection) Run(ctx context.Context) func() error {
	return func() error {
		err := c.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

// Status reports the current state machine position.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.status()
}

// Stats returns current connection metrics for observability and monitoring.
func (c *Connection) Stats() ConnectionStats {
	return ConnectionStats{
		Status:         c.Status(),
		Sequence:       c.sequence.Load(),
		EventsReceived: c.eventsReceived.Load(),
		Resumes:        c.resumes.Load(),
		Reconnects:     c.reconnects.Load(),
	}
}

// RequestGuildMembers streams guild member chunks over the gateway. A nonce
// is generated when absent so chunks can be correlated with the request.
func (c *Connection) RequestGuildMembers(ctx context.Context, req RequestGuildMembers) error {
	c.mu.Lock()
	sess := c.sess
	connected := c.state.status() == StatusConnected
	c.mu.Unlock()

	if sess == nil || !connected {
		return ErrNotConnected
	}
	if req.Nonce == "" {
		req.Nonce = uuid.NewString()
	}
	return sess.send(ctx, opRequestGuildMembers, req)
}

func (c *Connection) setState(st connState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, stopped := c.state.(stateStopped); stopped {
		// Stopped is terminal.
		return
	}
	c.state = st
}

func (c *Connection) currentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Connection) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
	c.resumeURL = ""
	c.sequence.Store(0)
}

// runSession dials the socket and processes inbound frames until the session
// ends, returning the follow-up decision.
func (c *Connection) runSession(ctx context.Context, resume, firstAttempt bool) (sessionOutcome, error) {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	url := c.gatewayURL
	var initial connState = stateConnecting{}
	switch {
	case resume:
		initial = stateResumeConnecting{}
		if ru := c.currentResumeURL(); ru != "" {
			url = ru
		}
	case !firstAttempt:
		initial = stateReconnecting{}
	}

	ws, _, err := c.dialer.DialContext(sessCtx, url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeStop, ctx.Err()
		}
		c.logger.Warn("gateway dial failed", logger.Error(err))
		if resume {
			return outcomeResume, err
		}
		return outcomeReconnect, err
	}

	sess := &session{
		conn:     c,
		ws:       ws,
		ctx:      sessCtx,
		cancel:   cancel,
		throttle: newSendThrottle(),
	}

	c.mu.Lock()
	c.sess = sess
	c.state = initial
	c.mu.Unlock()

	c.acked.Store(true)
	c.logger.Debug("gateway socket open", slog.String("url", url))

	defer func() {
		sess.close(websocket.CloseNormalClosure, "")
		c.mu.Lock()
		if c.sess == sess {
			c.sess = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return c.classifyDisconnect(err)
		}

		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			c.logger.Error("failed to decode gateway payload", logger.Error(err))
			continue
		}

		if outcome, done := sess.handle(&p); done {
			return outcome, nil
		}
	}
}

func (c *Connection) currentResumeURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeURL
}

// classifyDisconnect turns a socket read failure into a session outcome.
// Transport errors behave like reconnectable closes.
func (c *Connection) classifyDisconnect(err error) (sessionOutcome, error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if !reconnectAllowed(closeErr.Code) {
			return outcomeStop, fmt.Errorf("%w: %d %s",
				ErrReconnectForbidden, closeErr.Code, closeErr.Text)
		}
		c.logger.Warn("gateway closed", logger.CloseCode(closeErr.Code))
		return c.resumeOrReconnect(), err
	}

	c.logger.Warn("gateway transport failure", logger.Error(err))
	return c.resumeOrReconnect(), err
}

// resumeOrReconnect applies the global decision rule: resume when an
// identified session with a known sequence exists and we are not already
// resuming, otherwise start fresh. The resume-loop guard prevents a failed
// resume from retrying itself forever.
func (c *Connection) resumeOrReconnect() sessionOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.(type) {
	case stateResumeConnecting, stateResuming:
		return outcomeReconnect
	}
	if c.sessionID != "" && c.sequence.Load() > 0 {
		return outcomeResume
	}
	return outcomeReconnect
}

// trackSequence records a dispatch sequence with the linearity diagnostic:
// the first value of a session should be 1, later ones exactly previous+1.
// Violations are logged only; vendor ordering is not guaranteed under resume.
func (c *Connection) trackSequence(s int64) {
	if s == 0 {
		return
	}
	prev := c.sequence.Swap(s)
	switch {
	case prev == 0 && s != 1:
		c.logger.Debug("sequence did not start at 1", logger.Sequence(s))
	case prev != 0 && s != prev+1:
		c.logger.Debug("sequence gap",
			slog.Int64("previous", prev),
			logger.Sequence(s))
	}
}

// session is the per-socket half of the connection: everything here dies
// with the socket, while Connection carries state across sessions.
type session struct {
	conn     *Connection
	ws       *websocket.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	throttle *sendThrottle

	writeMu   sync.Mutex
	hbStarted bool
}

// handle processes one inbound envelope. It reports the session outcome and
// whether the session is finished. Unexpected events are logged and dropped,
// never fatal.
func (s *session) handle(p *payload) (sessionOutcome, bool) {
	c := s.conn

	switch p.Op {
	case opHello:
		s.handleHello(p)

	case opDispatch:
		s.handleDispatch(p)

	case opHeartbeat:
		// Immediate heartbeat on server request.
		if err := s.sendHeartbeat(); err != nil {
			c.logger.Warn("requested heartbeat failed", logger.Error(err))
		}

	case opHeartbeatAck:
		if c.acked.Swap(true) {
			c.logger.Debug("duplicate heartbeat ack")
		}

	case opReconnect:
		c.logger.Info("server requested reconnect")
		outcome := c.resumeOrReconnect()
		s.close(websocket.CloseServiceRestart, "reconnect requested")
		return outcome, true

	case opInvalidSession:
		var resumable bool
		if err := json.Unmarshal(p.D, &resumable); err != nil {
			c.logger.Error("failed to decode invalid-session payload", logger.Error(err))
		}
		if resumable {
			outcome := c.resumeOrReconnect()
			s.close(websocket.CloseServiceRestart, "invalid session")
			return outcome, true
		}
		// Non-resumable: drop the session data and await the natural
		// close, which then reconnects from scratch.
		c.logger.Warn("session invalidated, resume not possible")
		c.clearSession()
		c.setState(stateReconnecting{})

	default:
		c.logger.Debug("unhandled gateway opcode", logger.Opcode(p.Op))
	}

	return outcomeReconnect, false
}

func (s *session) handleHello(p *payload) {
	c := s.conn

	var hello helloData
	if err := json.Unmarshal(p.D, &hello); err != nil {
		c.logger.Error("failed to decode hello", logger.Error(err))
		return
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond

	if !s.hbStarted && interval > 0 {
		s.hbStarted = true
		go s.heartbeatLoop(interval)
	}

	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	switch st.(type) {
	case stateConnecting, stateReconnecting:
		// Identify admission must not block other event processing on this
		// shard, so the slot wait and the identify send run asynchronously.
		s.identifyAsync()
		c.setState(stateAwaitingReady{})

	case stateResumeConnecting:
		if err := s.sendResume(); err != nil {
			c.logger.Warn("resume request failed", logger.Error(err))
			return
		}
		c.setState(stateResuming{})

	default:
		c.logger.Debug("hello in unexpected state",
			slog.String("state", string(st.status())))
	}
}

func (s *session) handleDispatch(p *payload) {
	c := s.conn
	c.eventsReceived.Add(1)
	c.trackSequence(p.S)

	switch p.T {
	case eventReady:
		var ready readyData
		if err := json.Unmarshal(p.D, &ready); err != nil {
			c.logger.Error("failed to decode ready", logger.Error(err))
			return
		}
		c.mu.Lock()
		c.sessionID = ready.SessionID
		c.resumeURL = ready.ResumeGatewayURL
		if _, ok := c.state.(stateAwaitingReady); ok {
			c.state = stateConnected{}
		} else {
			c.logger.Warn("ready in unexpected state",
				slog.String("state", string(c.state.status())))
		}
		c.mu.Unlock()
		c.logger.Info("gateway session ready", logger.SessionID(ready.SessionID))

	case eventResumed:
		c.setState(stateConnected{})
		c.logger.Info("gateway session resumed",
			logger.SessionID(c.currentSessionID()))
	}

	if c.onEvent != nil && p.T != "" {
		c.onEvent(c.shardID, Event{Type: p.T, Sequence: p.S, Data: p.D})
	}
}

// identifyAsync requests an identify slot and sends the handshake once it is
// granted. Failures other than session teardown are logged; the server will
// time the connection out and the close path takes over.
func (s *session) identifyAsync() {
	c := s.conn

	fut := async.Exec(s.ctx, s, func(ctx context.Context, s *session) error {
		if err := c.limiter.Wait(ctx, c.botID); err != nil {
			return fmt.Errorf("identify admission: %w", err)
		}
		return s.send(ctx, opIdentify, identifyData{
			Token: c.token,
			Properties: identifyProperties{
				OS:      runtime.GOOS,
				Browser: "botkit",
				Device:  "botkit",
			},
			Shard:   [2]int{c.shardID, c.totalShards},
			Intents: c.intents,
		})
	})

	go func() {
		if err := fut.Await(); err != nil && s.ctx.Err() == nil {
			c.logger.Error("identify failed", logger.Error(err))
		}
	}()
}

func (s *session) sendResume() error {
	c := s.conn
	return s.send(s.ctx, opResume, resumeData{
		Token:     c.token,
		SessionID: c.currentSessionID(),
		Sequence:  c.sequence.Load(),
	})
}

func (s *session) sendHeartbeat() error {
	var seq *int64
	if v := s.conn.sequence.Load(); v > 0 {
		seq = &v
	}
	return s.send(s.ctx, opHeartbeat, seq)
}

// send throttles, encodes and writes one outbound command.
func (s *session) send(ctx context.Context, op int, d any) error {
	if err := s.throttle.wait(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(command{Op: op, D: d})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// close sends a close frame best-effort and tears the socket down.
func (s *session) close(code int, reason string) {
	s.writeMu.Lock()
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	_ = s.ws.Close()
	s.cancel()
}
