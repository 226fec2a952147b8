// Package chain implements the transaction lifecycle: layered configuration,
// signing, submission with precheck handling, receipt polling and the chunked
// message protocol.
package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/R3E-Network/hiero_client/internal/config"
	"github.com/R3E-Network/hiero_client/internal/metrics"
	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
)

// Client executes operations against the network described by its Context.
// Clients derived with With share the id generator, throttle, endpoint health
// and metrics of their parent.
type Client struct {
	ctx     *Context
	log     *logger.Logger
	metrics *metrics.Collector
	ids     *IDGenerator
	limiter *rate.Limiter
	health  *endpointHealth
	cursor  *atomic.Uint64
	now     func() time.Time
	breaker CircuitBreakerConfig
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithThrottle paces submissions to rps with the given burst.
func WithThrottle(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock replaces time.Now for transaction ids and endpoint health.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithCircuitBreaker sets the per-endpoint breaker configuration.
func WithCircuitBreaker(cfg CircuitBreakerConfig) ClientOption {
	return func(c *Client) { c.breaker = cfg }
}

// NewClient creates a client over root. The client takes ownership of root and
// closes it on Close.
func NewClient(root *Context, opts ...ClientOption) *Client {
	c := &Client{
		ctx:     root,
		now:     time.Now,
		breaker: DefaultCircuitBreakerConfig(),
		cursor:  new(atomic.Uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewDefault("chain")
	}
	c.ids = NewIDGenerator(c.now)
	c.health = newEndpointHealth(c.breaker, c.now)
	return c
}

// Context returns the client's configuration node.
func (c *Client) Context() *Context { return c.ctx }

// Logger returns the client logger.
func (c *Client) Logger() *logger.Logger { return c.log }

// Metrics returns the metrics collector, possibly nil.
func (c *Client) Metrics() *metrics.Collector { return c.metrics }

// IDs returns the transaction id generator.
func (c *Client) IDs() *IDGenerator { return c.ids }

// With returns a client scoped to a child context. Close the returned client
// to release channels created for endpoints only the child declares.
func (c *Client) With(opts ...Option) *Client {
	child := *c
	child.ctx = c.ctx.Child(opts...)
	return &child
}

// Close releases the channels owned by this client's context node.
func (c *Client) Close() error {
	return c.ctx.Close()
}

// rotation returns the healthy gateways of ctx starting at the next
// round-robin position.
func (c *Client) rotation(ctx *Context) ([]string, error) {
	gateways, err := ctx.Gateways()
	if err != nil {
		return nil, err
	}
	healthy := c.health.healthy(gateways)
	start := int(c.cursor.Add(1)-1) % len(healthy)
	out := make([]string, 0, len(healthy))
	out = append(out, healthy[start:]...)
	out = append(out, healthy[:start]...)
	return out, nil
}

// =============================================================================
// Configuration
// =============================================================================

// NewClientFromConfig builds a root context and client from cfg.
func NewClientFromConfig(cfg config.Config, opts ...ClientOption) (*Client, error) {
	var ctxOpts []Option
	if len(cfg.Network.Gateways) > 0 {
		ctxOpts = append(ctxOpts, WithGateways(cfg.Network.Gateways...))
	}
	if cfg.Network.Mirror != "" {
		ctxOpts = append(ctxOpts, WithMirrorEndpoint(cfg.Network.Mirror))
	}
	if cfg.Network.FeeLimit > 0 {
		ctxOpts = append(ctxOpts, WithFeeLimit(cfg.Network.FeeLimit))
	}
	if cfg.Network.Memo != "" {
		ctxOpts = append(ctxOpts, WithMemo(cfg.Network.Memo))
	}
	if cfg.Network.RequestTimeout > 0 {
		ctxOpts = append(ctxOpts, WithRequestTimeout(cfg.Network.RequestTimeout))
	}
	if cfg.Network.ReceiptPollInterval > 0 {
		ctxOpts = append(ctxOpts, WithReceiptPollInterval(cfg.Network.ReceiptPollInterval))
	}
	if cfg.Network.ReceiptTimeout > 0 {
		ctxOpts = append(ctxOpts, WithReceiptTimeout(cfg.Network.ReceiptTimeout))
	}
	if cfg.Network.ValidDuration > 0 {
		ctxOpts = append(ctxOpts, WithValidDuration(cfg.Network.ValidDuration))
	}
	if cfg.Retry.MaxAttempts > 0 {
		ctxOpts = append(ctxOpts, WithRetryPolicy(RetryPolicy{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			InitialBackoff:    cfg.Retry.InitialBackoff,
			MaxBackoff:        cfg.Retry.MaxBackoff,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
			Jitter:            cfg.Retry.Jitter,
		}))
	}
	if cfg.Payer.Account != "" {
		payer, err := wire.ParseEntityID(cfg.Payer.Account)
		if err != nil {
			return nil, fmt.Errorf("payer account: %w", err)
		}
		ctxOpts = append(ctxOpts, WithPayer(payer))
	}
	sig, err := payerSignatory(cfg.Payer)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		ctxOpts = append(ctxOpts, WithSignatory(sig))
	}

	base := []ClientOption{WithLogger(logger.New(cfg.Logging))}
	if cfg.Network.ThrottleRPS > 0 {
		base = append(base, WithThrottle(cfg.Network.ThrottleRPS, cfg.Network.ThrottleBurst))
	}
	return NewClient(NewRootContext(ctxOpts...), append(base, opts...)...), nil
}

func payerSignatory(cfg config.PayerConfig) (*KeySignatory, error) {
	ecdsa := strings.HasPrefix(strings.ToLower(cfg.KeyType), "ecdsa")
	switch {
	case cfg.PrivateKey != "":
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("payer private key must be hex: %w", err)
		}
		if ecdsa {
			priv, err := keys.NewPrivateKeyFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("payer private key: %w", err)
			}
			return ECDSASignatory(priv), nil
		}
		if len(raw) != ed25519.SeedSize {
			return nil, fmt.Errorf("payer ed25519 key must be %d bytes, got %d", ed25519.SeedSize, len(raw))
		}
		return Ed25519Signatory(ed25519.NewKeyFromSeed(raw)), nil
	case cfg.Seed != "":
		label := cfg.SeedLabel
		if label == "" {
			label = cfg.Account
		}
		if ecdsa {
			priv, err := DeriveECDSAKey([]byte(cfg.Seed), label)
			if err != nil {
				return nil, fmt.Errorf("derive payer key: %w", err)
			}
			return ECDSASignatory(priv), nil
		}
		priv, err := DeriveEd25519Key([]byte(cfg.Seed), label)
		if err != nil {
			return nil, fmt.Errorf("derive payer key: %w", err)
		}
		return Ed25519Signatory(priv), nil
	}
	return nil, nil
}
