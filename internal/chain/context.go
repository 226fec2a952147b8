package chain

import (
	"context"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"google.golang.org/grpc"
)

// Defaults applied when no node in a context chain sets a value.
const (
	DefaultFeeLimit       uint64 = 200_000_000
	DefaultRequestTimeout        = 2 * time.Minute
	DefaultValidDuration         = 120 * time.Second
	// DefaultTxWaitTimeout bounds receipt polling after an accepted precheck.
	DefaultTxWaitTimeout = 2 * time.Minute
	// DefaultPollInterval is the fixed receipt polling interval.
	DefaultPollInterval = 2 * time.Second
)

// RequestEvent is handed to the OnRequest hook once per network attempt.
type RequestEvent struct {
	TransactionID wire.TransactionID
	Endpoint      string
	// Kind is "submit" or "receipt".
	Kind     string
	Attempt  int
	Code     wire.ResponseCode
	Err      error
	Duration time.Duration
}

// RequestHook observes network attempts. It must not block.
type RequestHook func(ctx context.Context, ev RequestEvent)

// settings holds one node's overrides. A nil pointer or empty slice means
// "inherit from the parent".
type settings struct {
	gateways       []string
	mirror         *string
	payer          *wire.EntityID
	signatory      Signatory
	feeLimit       *uint64
	retry          *RetryPolicy
	requestTimeout *time.Duration
	pollInterval   *time.Duration
	receiptTimeout *time.Duration
	validDuration  *time.Duration
	memo           *string
	onRequest      RequestHook
	dialOptions    []grpc.DialOption
}

// Option overrides one setting on a context node.
type Option func(*settings)

// WithGateways sets the consensus-node endpoint pool.
func WithGateways(endpoints ...string) Option {
	return func(s *settings) { s.gateways = append([]string(nil), endpoints...) }
}

// WithMirrorEndpoint sets the mirror node endpoint.
func WithMirrorEndpoint(endpoint string) Option {
	return func(s *settings) { s.mirror = &endpoint }
}

// WithPayer sets the account that pays for and names transactions.
func WithPayer(payer wire.EntityID) Option {
	return func(s *settings) { s.payer = &payer }
}

// WithSignatory sets the default signing material. It is composed with any
// operation-specific signatory before each submission.
func WithSignatory(sig Signatory) Option {
	return func(s *settings) { s.signatory = sig }
}

// WithFeeLimit sets the maximum fee the payer is willing to pay.
func WithFeeLimit(limit uint64) Option {
	return func(s *settings) { s.feeLimit = &limit }
}

// WithRetryPolicy sets the submit retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *settings) { s.retry = &p }
}

// WithRequestTimeout bounds the whole submit loop.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) { s.requestTimeout = &d }
}

// WithReceiptPollInterval sets the fixed interval between receipt queries.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(s *settings) { s.pollInterval = &d }
}

// WithReceiptTimeout bounds receipt polling.
func WithReceiptTimeout(d time.Duration) Option {
	return func(s *settings) { s.receiptTimeout = &d }
}

// WithValidDuration sets how long a transaction stays valid after its valid start.
func WithValidDuration(d time.Duration) Option {
	return func(s *settings) { s.validDuration = &d }
}

// WithMemo sets the transaction memo.
func WithMemo(memo string) Option {
	return func(s *settings) { s.memo = &memo }
}

// WithOnRequest installs a hook observing every network attempt.
func WithOnRequest(hook RequestHook) Option {
	return func(s *settings) { s.onRequest = hook }
}

// WithDialOptions sets the grpc dial options used when this node creates channels.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(s *settings) { s.dialOptions = append([]grpc.DialOption(nil), opts...) }
}

// =============================================================================
// Context
// =============================================================================

// Context is one node of the configuration stack. Settings are fixed at
// construction; Child creates a new node and never mutates the receiver.
type Context struct {
	parent *Context
	s      settings
	pool   *channelPool
}

// NewRootContext creates a root node owning the long-lived channel pool.
func NewRootContext(opts ...Option) *Context {
	c := &Context{pool: newChannelPool()}
	for _, opt := range opts {
		opt(&c.s)
	}
	return c
}

// Child returns a node layered over c.
func (c *Context) Child(opts ...Option) *Context {
	child := &Context{parent: c, pool: newChannelPool()}
	for _, opt := range opts {
		opt(&child.s)
	}
	return child
}

// Parent returns the parent node, nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Close releases channels owned by this node. Channels inherited from
// ancestors stay open.
func (c *Context) Close() error {
	return c.pool.close()
}

// lookup returns the first node, leaf to root, for which has reports true.
func (c *Context) lookup(has func(*settings) bool) *settings {
	for n := c; n != nil; n = n.parent {
		if has(&n.s) {
			return &n.s
		}
	}
	return nil
}

// Gateways returns the resolved endpoint pool or a *ConfigError.
func (c *Context) Gateways() ([]string, error) {
	if s := c.lookup(func(s *settings) bool { return len(s.gateways) > 0 }); s != nil {
		return s.gateways, nil
	}
	return nil, &ConfigError{Field: "gateways"}
}

// MirrorEndpoint returns the resolved mirror endpoint or a *ConfigError.
func (c *Context) MirrorEndpoint() (string, error) {
	if s := c.lookup(func(s *settings) bool { return s.mirror != nil && *s.mirror != "" }); s != nil {
		return *s.mirror, nil
	}
	return "", &ConfigError{Field: "mirror endpoint"}
}

// Payer returns the resolved payer or a *ConfigError.
func (c *Context) Payer() (wire.EntityID, error) {
	if s := c.lookup(func(s *settings) bool { return s.payer != nil }); s != nil {
		return *s.payer, nil
	}
	return wire.EntityID{}, &ConfigError{Field: "payer"}
}

// Signatory returns the default signatory, or nil when none is configured.
func (c *Context) Signatory() Signatory {
	if s := c.lookup(func(s *settings) bool { return s.signatory != nil }); s != nil {
		return s.signatory
	}
	return nil
}

func (c *Context) FeeLimit() uint64 {
	if s := c.lookup(func(s *settings) bool { return s.feeLimit != nil }); s != nil {
		return *s.feeLimit
	}
	return DefaultFeeLimit
}

func (c *Context) RetryPolicy() RetryPolicy {
	if s := c.lookup(func(s *settings) bool { return s.retry != nil }); s != nil {
		return s.retry.normalized()
	}
	return DefaultRetryPolicy()
}

func (c *Context) RequestTimeout() time.Duration {
	if s := c.lookup(func(s *settings) bool { return s.requestTimeout != nil }); s != nil {
		return *s.requestTimeout
	}
	return DefaultRequestTimeout
}

func (c *Context) ReceiptPollInterval() time.Duration {
	if s := c.lookup(func(s *settings) bool { return s.pollInterval != nil && *s.pollInterval > 0 }); s != nil {
		return *s.pollInterval
	}
	return DefaultPollInterval
}

func (c *Context) ReceiptTimeout() time.Duration {
	if s := c.lookup(func(s *settings) bool { return s.receiptTimeout != nil }); s != nil {
		return *s.receiptTimeout
	}
	return DefaultTxWaitTimeout
}

func (c *Context) ValidDuration() time.Duration {
	if s := c.lookup(func(s *settings) bool { return s.validDuration != nil }); s != nil {
		return *s.validDuration
	}
	return DefaultValidDuration
}

func (c *Context) Memo() string {
	if s := c.lookup(func(s *settings) bool { return s.memo != nil }); s != nil {
		return *s.memo
	}
	return ""
}

func (c *Context) OnRequest() RequestHook {
	if s := c.lookup(func(s *settings) bool { return s.onRequest != nil }); s != nil {
		return s.onRequest
	}
	return nil
}

func (c *Context) dialOptions() []grpc.DialOption {
	if s := c.lookup(func(s *settings) bool { return len(s.dialOptions) > 0 }); s != nil {
		return s.dialOptions
	}
	return nil
}

// declares reports whether this node's own settings name endpoint.
func (c *Context) declares(endpoint string) bool {
	if c.s.mirror != nil && *c.s.mirror == endpoint {
		return true
	}
	for _, ep := range c.s.gateways {
		if ep == endpoint {
			return true
		}
	}
	return false
}
