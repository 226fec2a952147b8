package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/R3E-Network/hiero_client/internal/simnet"
	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// =============================================================================
// Test operations
// =============================================================================

type topicCreateOp struct {
	memo string
}

func (o topicCreateOp) Validate() error { return nil }

func (o topicCreateOp) BuildBody() (wire.OperationBody, error) {
	return wire.OperationBody{Kind: wire.KindTopicCreate, Data: wire.TopicCreateBody{Memo: o.memo}}, nil
}

func (o topicCreateOp) MapReceipt(_ wire.TransactionID, r *wire.Receipt) (wire.EntityID, error) {
	if r.TopicID == nil {
		return wire.EntityID{}, errors.New("receipt has no topic id")
	}
	return *r.TopicID, nil
}

type messageOp struct {
	topic   wire.EntityID
	message []byte
	chunk   *wire.ChunkInfo
}

func (o messageOp) Validate() error {
	if len(o.message) == 0 {
		return Invalid("message", "is empty")
	}
	return nil
}

func (o messageOp) BuildBody() (wire.OperationBody, error) {
	return wire.OperationBody{
		Kind: wire.KindTopicMessage,
		Data: wire.TopicMessageBody{Topic: o.topic, Message: o.message, Chunk: o.chunk},
	}, nil
}

func (o messageOp) MapReceipt(id wire.TransactionID, r *wire.Receipt) (Receipt, error) {
	return NewReceipt(id, r), nil
}

// =============================================================================
// Test network
// =============================================================================

var fastRetry = RetryPolicy{
	MaxAttempts:       5,
	InitialBackoff:    time.Millisecond,
	MaxBackoff:        5 * time.Millisecond,
	BackoffMultiplier: 2,
}

type testEnv struct {
	t       *testing.T
	net     *simnet.Network
	cluster *simnet.Cluster
	key     *KeySignatory
	payer   wire.EntityID
	topic   wire.EntityID
}

func newTestEnv(t *testing.T, gateways int) *testEnv {
	t.Helper()
	net := simnet.New()
	cluster := simnet.NewCluster(net, gateways)
	cluster.StartBufconn()
	t.Cleanup(cluster.Close)

	priv, err := DeriveEd25519Key([]byte("chain-test-seed"), "payer")
	if err != nil {
		t.Fatalf("DeriveEd25519Key: %v", err)
	}
	key := Ed25519Signatory(priv)
	env := &testEnv{
		t:       t,
		net:     net,
		cluster: cluster,
		key:     key,
		payer:   net.CreateAccount(key.PublicKey(), 1_000_000_000_000),
	}

	topic, err := Execute[wire.EntityID](context.Background(), env.newClient(), topicCreateOp{memo: "test"})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	env.topic = topic
	return env
}

// newClient returns a client with a fresh root context, so its gateway
// rotation starts at the first endpoint.
func (e *testEnv) newClient(opts ...Option) *Client {
	base := []Option{
		WithGateways(e.cluster.GatewayEndpoints...),
		WithMirrorEndpoint(e.cluster.MirrorEndpoint),
		WithPayer(e.payer),
		WithSignatory(e.key),
		WithDialOptions(e.cluster.DialOptions()...),
		WithRetryPolicy(fastRetry),
		WithReceiptPollInterval(5 * time.Millisecond),
		WithReceiptTimeout(5 * time.Second),
	}
	c := NewClient(NewRootContext(append(base, opts...)...), WithLogger(logger.NewNop()))
	e.t.Cleanup(func() { _ = c.Close() })
	return c
}

func (e *testEnv) submits() int {
	total := 0
	for _, gw := range e.cluster.Gateways {
		total += gw.Submits()
	}
	return total
}

type eventLog struct {
	mu     sync.Mutex
	events []RequestEvent
}

func (l *eventLog) hook(_ context.Context, ev RequestEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofKind(kind string) []RequestEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []RequestEvent
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
