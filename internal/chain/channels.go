package chain

import (
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// channelPool owns the grpc channels created by one context node.
type channelPool struct {
	mu     sync.Mutex
	conns  map[string]*grpc.ClientConn
	closed bool
}

func newChannelPool() *channelPool {
	return &channelPool{conns: make(map[string]*grpc.ClientConn)}
}

func (p *channelPool) get(endpoint string) *grpc.ClientConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[endpoint]
}

func (p *channelPool) getOrCreate(endpoint string, opts []grpc.DialOption) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("chain: channel pool closed")
	}
	if cc, ok := p.conns[endpoint]; ok {
		return cc, nil
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	cc, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	p.conns[endpoint] = cc
	return cc, nil
}

func (p *channelPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *channelPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for ep, cc := range p.conns {
		if err := cc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ep, err))
		}
	}
	p.conns = nil
	return errors.Join(errs...)
}

// Conn returns the channel for endpoint. Ancestor pools are searched first;
// on a miss the channel is created in the outermost node that declares the
// endpoint, or in the root when none does. A child therefore owns a channel
// only for an endpoint its ancestors do not know about.
func (c *Context) Conn(endpoint string) (*grpc.ClientConn, error) {
	if endpoint == "" {
		return nil, &ConfigError{Field: "endpoint"}
	}
	for n := c; n != nil; n = n.parent {
		if cc := n.pool.get(endpoint); cc != nil {
			return cc, nil
		}
	}
	owner := c.root()
	for n := c; n != nil; n = n.parent {
		if n.declares(endpoint) {
			owner = n
		}
	}
	return owner.pool.getOrCreate(endpoint, c.dialOptions())
}

// OwnedChannels returns how many channels this node owns.
func (c *Context) OwnedChannels() int {
	return c.pool.size()
}

func (c *Context) root() *Context {
	n := c
	for n.parent != nil {
		n = n.parent
	}
	return n
}
