package simnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

// Cluster is a running set of gateways and one mirror over a shared Network.
type Cluster struct {
	Network  *Network
	Gateways []*Gateway
	Mirror   *Mirror

	// GatewayEndpoints[i] is the dial target of Gateways[i].
	GatewayEndpoints []string
	MirrorEndpoint   string

	mu        sync.Mutex
	servers   []*grpc.Server
	listeners map[string]*bufconn.Listener
	closed    bool
}

// NewCluster creates gateways named gw-0..gw-(n-1) and a mirror over net.
// Nothing is served until StartBufconn or Serve is called.
func NewCluster(net *Network, gateways int) *Cluster {
	c := &Cluster{Network: net, Mirror: NewMirror(net)}
	for i := 0; i < gateways; i++ {
		c.Gateways = append(c.Gateways, NewGateway(net, fmt.Sprintf("gw-%d", i)))
	}
	return c
}

// StartBufconn serves every node over in-memory listeners. Endpoints are
// "passthrough:///<name>" targets resolved by DialOptions.
func (c *Cluster) StartBufconn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = make(map[string]*bufconn.Listener)

	for _, gw := range c.Gateways {
		lis := bufconn.Listen(bufSize)
		c.listeners[gw.Name()] = lis
		c.serveLocked(lis, func(s *grpc.Server) { wire.RegisterGatewayServer(s, gw) })
		c.GatewayEndpoints = append(c.GatewayEndpoints, "passthrough:///"+gw.Name())
	}
	lis := bufconn.Listen(bufSize)
	c.listeners["mirror"] = lis
	c.serveLocked(lis, func(s *grpc.Server) { wire.RegisterMirrorServer(s, c.Mirror) })
	c.MirrorEndpoint = "passthrough:///mirror"
}

// DialOptions routes the bufconn endpoints of the cluster.
func (c *Cluster) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			c.mu.Lock()
			lis, ok := c.listeners[strings.TrimPrefix(addr, "passthrough:///")]
			c.mu.Unlock()
			if !ok {
				return nil, fmt.Errorf("simnet: unknown endpoint %q", addr)
			}
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
}

// Serve serves each gateway on gatewayListeners[i] and the mirror on
// mirrorListener. It returns immediately; Close stops the servers.
func (c *Cluster) Serve(gatewayListeners []net.Listener, mirrorListener net.Listener) error {
	if len(gatewayListeners) != len(c.Gateways) {
		return fmt.Errorf("simnet: %d listeners for %d gateways", len(gatewayListeners), len(c.Gateways))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, gw := range c.Gateways {
		c.serveLocked(gatewayListeners[i], func(s *grpc.Server) { wire.RegisterGatewayServer(s, gw) })
		c.GatewayEndpoints = append(c.GatewayEndpoints, gatewayListeners[i].Addr().String())
	}
	c.serveLocked(mirrorListener, func(s *grpc.Server) { wire.RegisterMirrorServer(s, c.Mirror) })
	c.MirrorEndpoint = mirrorListener.Addr().String()
	return nil
}

// Gateway returns the gateway reached through endpoint, nil if none.
func (c *Cluster) Gateway(endpoint string) *Gateway {
	for i, ep := range c.GatewayEndpoints {
		if ep == endpoint {
			return c.Gateways[i]
		}
	}
	return nil
}

func (c *Cluster) serveLocked(lis net.Listener, register func(*grpc.Server)) {
	srv := grpc.NewServer()
	register(srv)
	c.servers = append(c.servers, srv)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			c.Network.log.WithError(err).Warn("simnet server stopped")
		}
	}()
}

// Close stops every server. Streaming subscriptions are terminated.
func (c *Cluster) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, srv := range c.servers {
		srv.Stop()
	}
}
