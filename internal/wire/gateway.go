package wire

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified method names of the gateway service.
const (
	GatewayServiceName    = "ledger.v1.Gateway"
	GatewaySubmitMethod   = "/ledger.v1.Gateway/Submit"
	GatewayReceiptMethod  = "/ledger.v1.Gateway/GetReceipt"
	MirrorServiceName     = "ledger.v1.Mirror"
	MirrorSubscribeMethod = "/ledger.v1.Mirror/SubscribeTopic"
)

// =============================================================================
// Gateway client
// =============================================================================

// GatewayClient is the consensus-node surface used by the submission engine.
type GatewayClient interface {
	Submit(ctx context.Context, in *Transaction, opts ...grpc.CallOption) (*TransactionResponse, error)
	GetReceipt(ctx context.Context, in *ReceiptQuery, opts ...grpc.CallOption) (*ReceiptResponse, error)
}

type gatewayClient struct {
	cc grpc.ClientConnInterface
}

// NewGatewayClient returns a GatewayClient speaking the cbor codec over cc.
func NewGatewayClient(cc grpc.ClientConnInterface) GatewayClient {
	return &gatewayClient{cc: cc}
}

func (c *gatewayClient) Submit(ctx context.Context, in *Transaction, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, GatewaySubmitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayClient) GetReceipt(ctx context.Context, in *ReceiptQuery, opts ...grpc.CallOption) (*ReceiptResponse, error) {
	out := new(ReceiptResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, GatewayReceiptMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Gateway server
// =============================================================================

// GatewayServer is implemented by consensus-node fakes and simulators.
type GatewayServer interface {
	Submit(ctx context.Context, in *Transaction) (*TransactionResponse, error)
	GetReceipt(ctx context.Context, in *ReceiptQuery) (*ReceiptResponse, error)
}

// RegisterGatewayServer registers srv on s.
func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

func gatewaySubmitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Transaction)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GatewaySubmitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).Submit(ctx, req.(*Transaction))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewayReceiptHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReceiptQuery)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServer).GetReceipt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GatewayReceiptMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServer).GetReceipt(ctx, req.(*ReceiptQuery))
	}
	return interceptor(ctx, in, info, handler)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: GatewayServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: gatewaySubmitHandler},
		{MethodName: "GetReceipt", Handler: gatewayReceiptHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/gateway",
}
