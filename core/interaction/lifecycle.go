package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/botkit/core/logger"
	"github.com/dmitrymomot/botkit/core/rest"
	"github.com/dmitrymomot/botkit/pkg/oneshot"
)

const (
	// defaultAutoAckDelay leaves margin under the vendor's 3 second
	// initial-response deadline.
	defaultAutoAckDelay = 2800 * time.Millisecond
	defaultOpTimeout    = 30 * time.Second
	// defaultTTL matches the vendor's interaction token validity.
	defaultTTL = 15 * time.Minute

	queueCapacity = 16
)

// Config maps interaction lifecycle settings to environment variables.
type Config struct {
	AutoAckDelay time.Duration `env:"INTERACTION_AUTO_ACK_DELAY" envDefault:"2800ms"`
	OpTimeout    time.Duration `env:"INTERACTION_OP_TIMEOUT" envDefault:"30s"`
	TTL          time.Duration `env:"INTERACTION_TTL" envDefault:"15m"`
}

// State identifies the lifecycle's position in the response state machine.
type State string

const (
	// StateReceived: no response decided yet.
	StateReceived State = "received"
	// StateThinking: acknowledged with a deferred response, no message yet.
	StateThinking State = "thinking"
	// StateMessageSent: a message response exists; further replies and edits
	// keep the lifecycle here.
	StateMessageSent State = "message_sent"
	// StateClosed: queue torn down, every operation fails.
	StateClosed State = "closed"
)

// WebhookClient is the REST surface the lifecycle drives for everything past
// the initial response. *rest.InteractionClient satisfies it.
type WebhookClient interface {
	OriginalResponse(ctx context.Context, token string, opts ...rest.CallOption) (*rest.Message, error)
	EditOriginalResponse(ctx context.Context, token string, edit rest.WebhookMessageEdit, opts ...rest.CallOption) (*rest.Message, error)
	DeleteOriginalResponse(ctx context.Context, token string, opts ...rest.CallOption) error
	CreateFollowup(ctx context.Context, token string, msg rest.WebhookMessage, opts ...rest.CallOption) (*rest.Message, error)
	FollowupMessage(ctx context.Context, token, messageID string, opts ...rest.CallOption) (*rest.Message, error)
	EditFollowup(ctx context.Context, token, messageID string, edit rest.WebhookMessageEdit, opts ...rest.CallOption) (*rest.Message, error)
	DeleteFollowup(ctx context.Context, token, messageID string, opts ...rest.CallOption) error
}

// Lifecycle owns the response sequence of one interaction. All verbs funnel
// through a single-consumer queue, so state reads and writes are never
// concurrent; callers from any goroutine submit operations and wait for their
// turn in submission order.
type Lifecycle struct {
	id     string
	token  string
	kind   Kind
	policy AckPolicy

	client   WebhookClient
	callOpts []rest.CallOption
	logger   *slog.Logger

	autoAckDelay time.Duration
	opTimeout    time.Duration
	ttl          time.Duration

	// Write-once initial response awaited by the HTTP boundary.
	slot *oneshot.Deferred[Response]
	// Settled by MarkFlushed once the initial response reached the transport.
	// Webhook calls wait on it so they never race the vendor's webhook
	// materialization.
	flushed *oneshot.Deferred[struct{}]

	ops    chan opRequest
	ctx    context.Context
	cancel context.CancelFunc

	explicitClose atomic.Bool

	mu    sync.Mutex
	state State
}

type opRequest struct {
	verb  string
	ctx   context.Context
	fn    func(ctx context.Context) (*rest.Message, error)
	reply chan opResult
}

type opResult struct {
	msg *rest.Message
	err error
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithAutoAckDelay overrides when the auto-ack policy fires.
func WithAutoAckDelay(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.autoAckDelay = d
		}
	}
}

// WithOpTimeout overrides the per-operation processing deadline.
func WithOpTimeout(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.opTimeout = d
		}
	}
}

// WithTTL overrides the hard interaction timeout.
func WithTTL(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithCallOptions appends REST call options applied to every webhook call,
// for example rest.WithNotFoundRetries to absorb read-after-write races.
func WithCallOptions(opts ...rest.CallOption) Option {
	return func(l *Lifecycle) {
		l.callOpts = append(l.callOpts, opts...)
	}
}

// WithLogger sets the logger for lifecycle diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(l *Lifecycle) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a lifecycle for one inbound interaction and starts its
// processing queue. The queue runs until Close or the hard timeout.
func New(client WebhookClient, inter Interaction, policy AckPolicy, opts ...Option) (*Lifecycle, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if inter.ID == "" {
		return nil, fmt.Errorf("%w: interaction id is required", ErrInvalidConfig)
	}
	if inter.Token == "" {
		return nil, fmt.Errorf("%w: interaction token is required", ErrInvalidConfig)
	}
	if !inter.Kind.valid() {
		return nil, fmt.Errorf("%w: unknown interaction kind %q", ErrInvalidConfig, inter.Kind)
	}
	if !policy.valid() {
		return nil, fmt.Errorf("%w: unknown ack policy %q", ErrInvalidConfig, policy)
	}

	l := &Lifecycle{
		id:           inter.ID,
		token:        inter.Token,
		kind:         inter.Kind,
		policy:       policy,
		client:       client,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		autoAckDelay: defaultAutoAckDelay,
		opTimeout:    defaultOpTimeout,
		ttl:          defaultTTL,
		slot:         oneshot.New[Response](),
		flushed:      oneshot.New[struct{}](),
		ops:          make(chan opRequest, queueCapacity),
		state:        StateReceived,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With(logger.InteractionID(l.id))
	l.ctx, l.cancel = context.WithTimeout(context.Background(), l.ttl)

	go l.loop()

	return l, nil
}

// NewFromConfig creates a lifecycle with timeouts taken from configuration.
// Additional options override config values.
func NewFromConfig(client WebhookClient, inter Interaction, policy AckPolicy, cfg Config, opts ...Option) (*Lifecycle, error) {
	if cfg.AutoAckDelay <= 0 || cfg.OpTimeout <= 0 || cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}

	allOpts := append([]Option{
		WithAutoAckDelay(cfg.AutoAckDelay),
		WithOpTimeout(cfg.OpTimeout),
		WithTTL(cfg.TTL),
	}, opts...)

	return New(client, inter, policy, allOpts...)
}

// ID returns the interaction id.
func (l *Lifecycle) ID() string { return l.id }

// State reports the current response state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done returns a channel closed when the lifecycle is torn down.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Close tears the processing queue down. Pending and future operations fail
// with ErrClosed; an undecided initial response resolves with the same error.
func (l *Lifecycle) Close() error {
	l.explicitClose.Store(true)
	l.cancel()
	return nil
}

// AwaitResponse blocks until the initial response is decided, for the HTTP
// boundary to write back. When the interaction ends unanswered it resolves
// with the close reason instead of hanging the inbound HTTP call.
func (l *Lifecycle) AwaitResponse(ctx context.Context) (Response, error) {
	return l.slot.Await(ctx)
}

// MarkFlushed signals that the initial response has been written to the
// transport, releasing webhook calls gated on it.
func (l *Lifecycle) MarkFlushed() {
	l.flushed.Complete(struct{}{})
}

// Ack defers the interaction, entering Thinking. Valid only before any
// response was decided.
func (l *Lifecycle) Ack(ctx context.Context, ephemeral bool) error {
	_, err := l.submit(ctx, "ack", func(ctx context.Context) (*rest.Message, error) {
		if l.state != StateReceived {
			return nil, &InvalidStateError{Verb: "ack", State: l.state}
		}
		resp, err := deferredResponse(l.kind, ephemeral)
		if err != nil {
			return nil, err
		}
		l.completeSlot(resp, StateThinking)
		return nil, nil
	})
	return err
}

// CompleteOrEditOriginal responds with a message: as the initial response when
// none was decided yet, otherwise by editing the original response. The
// returned message is nil on the initial-response path because the vendor
// delivers it through the HTTP boundary, not a REST call.
func (l *Lifecycle) CompleteOrEditOriginal(ctx context.Context, msg rest.WebhookMessage) (*rest.Message, error) {
	return l.submit(ctx, "complete_or_edit_original", func(ctx context.Context) (*rest.Message, error) {
		if l.state == StateReceived {
			l.completeSlot(completionResponse(l.kind, msg), StateMessageSent)
			return nil, nil
		}
		if err := l.awaitFlushed(ctx); err != nil {
			return nil, err
		}
		m, err := l.client.EditOriginalResponse(ctx, l.token, editFromMessage(msg), l.callOpts...)
		if err != nil {
			return nil, err
		}
		l.setState(StateMessageSent)
		return m, nil
	})
}

// CompleteOrFollowup responds with a message: as the initial response when
// none was decided yet, otherwise as a new follow-up message. After an
// auto-ack it degrades to a follow-up rather than duplicating the initial
// response.
func (l *Lifecycle) CompleteOrFollowup(ctx context.Context, msg rest.WebhookMessage) (*rest.Message, error) {
	return l.submit(ctx, "complete_or_followup", func(ctx context.Context) (*rest.Message, error) {
		if l.state == StateReceived {
			l.completeSlot(completionResponse(l.kind, msg), StateMessageSent)
			return nil, nil
		}
		if err := l.awaitFlushed(ctx); err != nil {
			return nil, err
		}
		m, err := l.client.CreateFollowup(ctx, l.token, msg, l.callOpts...)
		if err != nil {
			return nil, err
		}
		l.setState(StateMessageSent)
		return m, nil
	})
}

// CompleteAutocomplete answers an autocomplete interaction with suggestions.
// This is the only completion autocomplete supports.
func (l *Lifecycle) CompleteAutocomplete(ctx context.Context, choices []Choice) error {
	_, err := l.submit(ctx, "complete_autocomplete", func(ctx context.Context) (*rest.Message, error) {
		if l.kind != KindAutocomplete {
			return nil, fmt.Errorf("%w: %q is not an autocomplete interaction", ErrInvalidState, l.kind)
		}
		if l.state != StateReceived {
			return nil, &InvalidStateError{Verb: "complete_autocomplete", State: l.state}
		}
		l.completeSlot(Response{
			Type: ResponseAutocompleteResult,
			Data: &ResponseData{Choices: choices},
		}, StateMessageSent)
		return nil, nil
	})
	return err
}

// Followup sends an additional message. When no response was decided yet it
// acknowledges first per the ack policy; with PolicyNone that is an invalid
// state instead.
func (l *Lifecycle) Followup(ctx context.Context, msg rest.WebhookMessage) (*rest.Message, error) {
	return l.submit(ctx, "followup", func(ctx context.Context) (*rest.Message, error) {
		if l.state == StateReceived {
			if l.policy == PolicyNone {
				return nil, &InvalidStateError{Verb: "followup", State: l.state}
			}
			resp, err := deferredResponse(l.kind, l.policy == PolicyAckEphemeral)
			if err != nil {
				return nil, err
			}
			l.completeSlot(resp, StateThinking)
		}
		if err := l.awaitFlushed(ctx); err != nil {
			return nil, err
		}
		m, err := l.client.CreateFollowup(ctx, l.token, msg, l.callOpts...)
		if err != nil {
			return nil, err
		}
		l.setState(StateMessageSent)
		return m, nil
	})
}

// FetchOriginal retrieves the message behind the original response.
func (l *Lifecycle) FetchOriginal(ctx context.Context) (*rest.Message, error) {
	return l.webhookOp(ctx, "fetch_original", func(ctx context.Context) (*rest.Message, error) {
		return l.client.OriginalResponse(ctx, l.token, l.callOpts...)
	})
}

// EditOriginal edits the message behind the original response. Editing the
// placeholder of a deferred response counts as the reply.
func (l *Lifecycle) EditOriginal(ctx context.Context, edit rest.WebhookMessageEdit) (*rest.Message, error) {
	return l.webhookOp(ctx, "edit_original", func(ctx context.Context) (*rest.Message, error) {
		m, err := l.client.EditOriginalResponse(ctx, l.token, edit, l.callOpts...)
		if err != nil {
			return nil, err
		}
		l.setState(StateMessageSent)
		return m, nil
	})
}

// DeleteOriginal deletes the message behind the original response.
func (l *Lifecycle) DeleteOriginal(ctx context.Context) error {
	_, err := l.webhookOp(ctx, "delete_original", func(ctx context.Context) (*rest.Message, error) {
		return nil, l.client.DeleteOriginalResponse(ctx, l.token, l.callOpts...)
	})
	return err
}

// FetchFollowup retrieves a follow-up message by id.
func (l *Lifecycle) FetchFollowup(ctx context.Context, messageID string) (*rest.Message, error) {
	return l.webhookOp(ctx, "fetch_followup", func(ctx context.Context) (*rest.Message, error) {
		return l.client.FollowupMessage(ctx, l.token, messageID, l.callOpts...)
	})
}

// EditFollowup edits a follow-up message by id.
func (l *Lifecycle) EditFollowup(ctx context.Context, messageID string, edit rest.WebhookMessageEdit) (*rest.Message, error) {
	return l.webhookOp(ctx, "edit_followup", func(ctx context.Context) (*rest.Message, error) {
		return l.client.EditFollowup(ctx, l.token, messageID, edit, l.callOpts...)
	})
}

// DeleteFollowup deletes a follow-up message by id.
func (l *Lifecycle) DeleteFollowup(ctx context.Context, messageID string) error {
	_, err := l.webhookOp(ctx, "delete_followup", func(ctx context.Context) (*rest.Message, error) {
		return nil, l.client.DeleteFollowup(ctx, l.token, messageID, l.callOpts...)
	})
	return err
}

// webhookOp wraps the verbs that require an existing response: they fail with
// InvalidState before an ack or reply and are gated on the flush signal.
func (l *Lifecycle) webhookOp(ctx context.Context, verb string, fn func(ctx context.Context) (*rest.Message, error)) (*rest.Message, error) {
	return l.submit(ctx, verb, func(ctx context.Context) (*rest.Message, error) {
		if l.state == StateReceived {
			return nil, &InvalidStateError{Verb: verb, State: l.state}
		}
		if err := l.awaitFlushed(ctx); err != nil {
			return nil, err
		}
		return fn(ctx)
	})
}

// submit queues one operation and waits for its result.
func (l *Lifecycle) submit(ctx context.Context, verb string, fn func(ctx context.Context) (*rest.Message, error)) (*rest.Message, error) {
	req := opRequest{verb: verb, ctx: ctx, fn: fn, reply: make(chan opResult, 1)}

	select {
	case l.ops <- req:
	case <-l.ctx.Done():
		return nil, fmt.Errorf("%s: %w", verb, l.closeReason())
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.msg, res.err
	case <-l.ctx.Done():
		return nil, fmt.Errorf("%s: %w", verb, l.closeReason())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// loop is the queue's single consumer; it owns all state transitions.
func (l *Lifecycle) loop() {
	autoAck := time.NewTimer(l.autoAckDelay)
	defer autoAck.Stop()

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return
		case <-autoAck.C:
			l.autoAck()
		case req := <-l.ops:
			l.process(req)
		}
	}
}

// process runs one operation under its bounded deadline. Expiry fails only
// this operation, not the interaction.
func (l *Lifecycle) process(req opRequest) {
	opCtx, cancel := context.WithTimeout(req.ctx, l.opTimeout)
	stop := context.AfterFunc(l.ctx, cancel)
	msg, err := req.fn(opCtx)
	stop()
	cancel()

	if err != nil && errors.Is(err, context.DeadlineExceeded) &&
		req.ctx.Err() == nil && l.ctx.Err() == nil {
		err = fmt.Errorf("%s: %w", req.verb, ErrOpTimeout)
	}
	if err != nil {
		l.logger.Debug("interaction operation failed",
			slog.String("verb", req.verb),
			logger.Error(err))
	}

	req.reply <- opResult{msg: msg, err: err}
}

// autoAck fires once, shortly before the vendor's initial-response deadline.
func (l *Lifecycle) autoAck() {
	if l.policy == PolicyNone || l.state != StateReceived {
		return
	}

	resp, err := deferredResponse(l.kind, l.policy == PolicyAckEphemeral)
	if err != nil {
		l.logger.Warn("auto-ack not applicable", logger.Error(err))
		return
	}

	l.completeSlot(resp, StateThinking)
	l.logger.Info("auto-acknowledged interaction",
		slog.String("policy", string(l.policy)))
}

// shutdown resolves everything still waiting so no caller hangs past the
// lifecycle's end.
func (l *Lifecycle) shutdown() {
	reason := l.closeReason()
	if l.slot.Fail(reason) {
		l.logger.Warn("interaction ended without an initial response",
			logger.Error(reason))
	}
	l.setState(StateClosed)

	for {
		select {
		case req := <-l.ops:
			req.reply <- opResult{err: fmt.Errorf("%s: %w", req.verb, reason)}
		default:
			return
		}
	}
}

func (l *Lifecycle) closeReason() error {
	if l.explicitClose.Load() {
		return ErrClosed
	}
	return ErrExpired
}

func (l *Lifecycle) completeSlot(resp Response, next State) {
	if !l.slot.Complete(resp) {
		// Guarded by state checks on the consumer goroutine.
		l.logger.Error("initial response slot completed twice",
			slog.String("state", string(l.state)))
		return
	}
	l.setState(next)
}

func (l *Lifecycle) awaitFlushed(ctx context.Context) error {
	if _, err := l.flushed.Await(ctx); err != nil {
		return fmt.Errorf("awaiting response flush: %w", err)
	}
	return nil
}

func (l *Lifecycle) setState(next State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		// Closed is terminal.
		return
	}
	l.state = next
}

func editFromMessage(msg rest.WebhookMessage) rest.WebhookMessageEdit {
	content := msg.Content
	edit := rest.WebhookMessageEdit{Content: &content}
	if msg.Embeds != nil {
		embeds := msg.Embeds
		edit.Embeds = &embeds
	}
	return edit
}
