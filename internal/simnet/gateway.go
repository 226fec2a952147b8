package simnet

import (
	"context"
	"sync"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Gateway is one consensus-node endpoint in front of a Network. Faults are
// scripted per gateway so tests can drive retry and failover paths.
type Gateway struct {
	net  *Network
	name string

	mu              sync.Mutex
	precheck        []wire.ResponseCode
	failTransport   int
	failAfterAccept int
	failReceipts    int
	received        [][]byte
	submits         int
	receiptQueries  int
}

var _ wire.GatewayServer = (*Gateway)(nil)

// NewGateway returns a gateway named name serving net.
func NewGateway(net *Network, name string) *Gateway {
	return &Gateway{net: net, name: name}
}

// Name returns the gateway name.
func (g *Gateway) Name() string { return g.name }

// ScriptPrecheck queues precheck answers returned, in order, before the
// network sees the transaction.
func (g *Gateway) ScriptPrecheck(codes ...wire.ResponseCode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.precheck = append(g.precheck, codes...)
}

// FailTransport makes the next n submits fail with UNAVAILABLE before the
// transaction reaches the network.
func (g *Gateway) FailTransport(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failTransport = n
}

// FailAfterAccept makes the next n submits reach the network and then fail
// with UNAVAILABLE, as if the response was lost.
func (g *Gateway) FailAfterAccept(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAfterAccept = n
}

// FailReceipts makes the next n receipt queries fail with UNAVAILABLE.
func (g *Gateway) FailReceipts(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failReceipts = n
}

// Received returns the body bytes of every submit this gateway saw.
func (g *Gateway) Received() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]byte(nil), g.received...)
}

// Submits returns how many submits this gateway saw.
func (g *Gateway) Submits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits
}

// ReceiptQueries returns how many receipt queries this gateway answered.
func (g *Gateway) ReceiptQueries() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.receiptQueries
}

func (g *Gateway) Submit(ctx context.Context, tx *wire.Transaction) (*wire.TransactionResponse, error) {
	g.mu.Lock()
	g.submits++
	g.received = append(g.received, append([]byte(nil), tx.BodyBytes...))
	if g.failTransport > 0 {
		g.failTransport--
		g.mu.Unlock()
		return nil, status.Errorf(codes.Unavailable, "%s: unavailable", g.name)
	}
	if len(g.precheck) > 0 {
		code := g.precheck[0]
		g.precheck = g.precheck[1:]
		g.mu.Unlock()
		return &wire.TransactionResponse{Code: code}, nil
	}
	lose := g.failAfterAccept > 0
	if lose {
		g.failAfterAccept--
	}
	g.mu.Unlock()

	resp := g.net.Submit(tx)
	if lose {
		return nil, status.Errorf(codes.Unavailable, "%s: connection reset", g.name)
	}
	return &resp, nil
}

func (g *Gateway) GetReceipt(ctx context.Context, q *wire.ReceiptQuery) (*wire.ReceiptResponse, error) {
	g.mu.Lock()
	g.receiptQueries++
	if g.failReceipts > 0 {
		g.failReceipts--
		g.mu.Unlock()
		return nil, status.Errorf(codes.Unavailable, "%s: unavailable", g.name)
	}
	g.mu.Unlock()

	resp := g.net.receiptFor(q.TransactionID)
	return &resp, nil
}
