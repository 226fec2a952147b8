// Package mirror streams confirmed topic messages from a mirror node into a
// bounded consumer queue.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/metrics"
	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

const (
	DefaultWriteRetries = 1
	DefaultRoomTimeout  = 30 * time.Second
)

// ErrSlowConsumer ends a subscription whose queue stayed full.
var ErrSlowConsumer = errors.New("mirror: consumer queue stayed full")

// =============================================================================
// States and faults
// =============================================================================

// State is the lifecycle position of a subscription.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a subscription.
func (s State) Terminal() bool { return s >= StateCompleted }

// FaultKind classifies a stream failure.
type FaultKind int

const (
	TargetNotFound FaultKind = iota + 1
	TargetWrongType
	ServiceUnavailable
	CommunicationError
)

func (k FaultKind) String() string {
	switch k {
	case TargetNotFound:
		return "target not found"
	case TargetWrongType:
		return "target wrong type"
	case ServiceUnavailable:
		return "service unavailable"
	case CommunicationError:
		return "communication error"
	default:
		return fmt.Sprintf("fault(%d)", int(k))
	}
}

// StreamFault is a genuine stream failure raised to the caller.
type StreamFault struct {
	Kind  FaultKind
	Topic wire.EntityID
	Cause error
}

func (f *StreamFault) Error() string {
	return fmt.Sprintf("mirror: subscription to %s: %s: %v", f.Topic, f.Kind, f.Cause)
}

func (f *StreamFault) Unwrap() error { return f.Cause }

func classify(topic wire.EntityID, err error) *StreamFault {
	kind := CommunicationError
	switch status.Code(err) {
	case codes.NotFound:
		kind = TargetNotFound
	case codes.InvalidArgument:
		kind = TargetWrongType
	case codes.Unavailable:
		kind = ServiceUnavailable
	}
	return &StreamFault{Kind: kind, Topic: topic, Cause: err}
}

// =============================================================================
// Records and cursors
// =============================================================================

// Record is one confirmed topic message.
type Record struct {
	Topic              wire.EntityID
	ConsensusTime      time.Time
	Message            []byte
	SequenceNumber     uint64
	RunningHash        []byte
	RunningHashVersion uint64
	Chunk              *wire.ChunkInfo
}

func recordFrom(topic wire.EntityID, m *wire.TopicMessage) Record {
	return Record{
		Topic:              topic,
		ConsensusTime:      m.ConsensusTimestamp.Time(),
		Message:            m.Message,
		SequenceNumber:     m.SequenceNumber,
		RunningHash:        m.RunningHash,
		RunningHashVersion: m.RunningHashVersion,
		Chunk:              m.Chunk,
	}
}

// Cursor describes a subscription's filter and progress. Only the
// subscription loop mutates it.
type Cursor struct {
	Topic    wire.EntityID
	Start    time.Time
	End      time.Time
	Limit    uint64
	Consumed uint64
	State    State
}

// Done reports whether the cursor reached its limit.
func (c Cursor) Done() bool { return c.Limit > 0 && c.Consumed >= c.Limit }

// SubscribeParams configures one subscription. Zero Start, End and Limit
// leave that filter unset.
type SubscribeParams struct {
	Topic wire.EntityID
	Start time.Time
	End   time.Time
	Limit uint64
	Queue *Queue[Record]
	// CompleteQueue closes Queue when the subscription ends for any reason.
	CompleteQueue bool
	// WriteRetries is how many times a full queue is waited on before the
	// stream is cancelled.
	WriteRetries int
	// RoomTimeout bounds each wait for queue room.
	RoomTimeout time.Duration
}

func (p SubscribeParams) validate() error {
	if err := p.Topic.Validate(); err != nil {
		return &chain.ValidationError{Field: "topic", Reason: err.Error(), Err: err}
	}
	if p.Queue == nil {
		return chain.Invalid("queue", "is required")
	}
	if !p.Start.IsZero() && !p.End.IsZero() && !p.End.After(p.Start) {
		return chain.Invalid("end", "must be after start")
	}
	return nil
}

// =============================================================================
// Client
// =============================================================================

// Client opens subscriptions against the mirror endpoint resolved from a
// context node.
type Client struct {
	ctx     *chain.Context
	log     *logger.Logger
	metrics *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records stream metrics into m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient returns a client resolving its endpoint and channel from node.
func NewClient(node *chain.Context, opts ...Option) *Client {
	c := &Client{ctx: node}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewDefault("mirror")
	}
	return c
}

// FromChain returns a client sharing the context, logger and metrics of a
// submission client.
func FromChain(client *chain.Client) *Client {
	return NewClient(client.Context(), WithLogger(client.Logger()), WithMetrics(client.Metrics()))
}

// Subscribe streams records into p.Queue until the stream completes, the
// limit or End is reached, ctx is cancelled, the queue is closed, or a fault
// occurs. Only faults and ErrSlowConsumer are returned as errors; the
// returned cursor always carries the terminal state.
func (c *Client) Subscribe(ctx context.Context, p SubscribeParams) (Cursor, error) {
	cur := Cursor{Topic: p.Topic, Start: p.Start, End: p.End, Limit: p.Limit, State: StateIdle}
	if err := p.validate(); err != nil {
		return cur, err
	}
	if p.WriteRetries <= 0 {
		p.WriteRetries = DefaultWriteRetries
	}
	if p.RoomTimeout <= 0 {
		p.RoomTimeout = DefaultRoomTimeout
	}

	log := c.log.WithContext(ctx).WithFields(map[string]interface{}{
		"topic": p.Topic.String(),
		"limit": p.Limit,
	})

	err := c.run(ctx, p, &cur)
	if p.CompleteQueue {
		p.Queue.Close()
	}
	c.metrics.RecordStreamTermination(cur.State.String())

	entry := log.WithFields(map[string]interface{}{
		"state":    cur.State.String(),
		"consumed": cur.Consumed,
	})
	if err != nil {
		entry.WithError(err).Warn("subscription ended")
	} else {
		entry.Debug("subscription ended")
	}
	return cur, err
}

func (c *Client) run(ctx context.Context, p SubscribeParams, cur *Cursor) error {
	endpoint, err := c.ctx.MirrorEndpoint()
	if err != nil {
		cur.State = StateFaulted
		return err
	}
	conn, err := c.ctx.Conn(endpoint)
	if err != nil {
		cur.State = StateFaulted
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	query := &wire.TopicQuery{Topic: p.Topic, Limit: p.Limit}
	if !p.Start.IsZero() {
		ts := wire.TimestampFromTime(p.Start)
		query.Start = &ts
	}
	if !p.End.IsZero() {
		ts := wire.TimestampFromTime(p.End)
		query.End = &ts
	}

	stream, err := wire.NewMirrorClient(conn).SubscribeTopic(streamCtx, query)
	if err != nil {
		return c.streamError(ctx, p.Topic, err, cur)
	}
	cur.State = StateStreaming

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			cur.State = StateCompleted
			return nil
		}
		if err != nil {
			return c.streamError(ctx, p.Topic, err, cur)
		}

		rec := recordFrom(p.Topic, msg)
		if !p.End.IsZero() && !rec.ConsensusTime.Before(p.End) {
			cur.State = StateCompleted
			return nil
		}

		if err := c.enqueue(ctx, p, rec); err != nil {
			cur.State = StateCancelled
			if errors.Is(err, ErrSlowConsumer) {
				cancel()
				return err
			}
			return nil
		}
		cur.Consumed++
		c.metrics.RecordStreamRecord(p.Queue.Len())

		if cur.Done() {
			cur.State = StateCompleted
			return nil
		}
	}
}

// errStopped marks a clean stop: caller cancellation or a consumer-closed
// queue.
var errStopped = errors.New("mirror: stopped")

// enqueue offers rec without suspending when there is room. Otherwise it
// waits for room up to p.WriteRetries times and gives up with
// ErrSlowConsumer.
func (c *Client) enqueue(ctx context.Context, p SubscribeParams, rec Record) error {
	if p.Queue.TryWrite(rec) {
		return nil
	}
	for attempt := 0; attempt < p.WriteRetries; attempt++ {
		if p.Queue.Closed() {
			return errStopped
		}
		waitCtx, cancel := context.WithTimeout(ctx, p.RoomTimeout)
		_, err := p.Queue.WaitToWrite(waitCtx)
		cancel()
		if ctx.Err() != nil {
			return errStopped
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if p.Queue.TryWrite(rec) {
			return nil
		}
	}
	if p.Queue.Closed() {
		return errStopped
	}
	return ErrSlowConsumer
}

func (c *Client) streamError(ctx context.Context, topic wire.EntityID, err error, cur *Cursor) error {
	if ctx.Err() != nil {
		cur.State = StateCancelled
		return nil
	}
	cur.State = StateFaulted
	return classify(topic, err)
}
