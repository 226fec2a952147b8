package wire

import (
	"context"

	"google.golang.org/grpc"
)

// MirrorClient opens topic subscriptions against a mirror node.
type MirrorClient interface {
	SubscribeTopic(ctx context.Context, in *TopicQuery, opts ...grpc.CallOption) (TopicStream, error)
}

// TopicStream yields TopicMessage frames until io.EOF or a fault.
type TopicStream interface {
	Recv() (*TopicMessage, error)
	grpc.ClientStream
}

type mirrorClient struct {
	cc grpc.ClientConnInterface
}

// NewMirrorClient returns a MirrorClient speaking the cbor codec over cc.
func NewMirrorClient(cc grpc.ClientConnInterface) MirrorClient {
	return &mirrorClient{cc: cc}
}

func (c *mirrorClient) SubscribeTopic(ctx context.Context, in *TopicQuery, opts ...grpc.CallOption) (TopicStream, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &mirrorServiceDesc.Streams[0], MirrorSubscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &topicStreamClient{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type topicStreamClient struct {
	grpc.ClientStream
}

func (x *topicStreamClient) Recv() (*TopicMessage, error) {
	m := new(TopicMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// =============================================================================
// Mirror server
// =============================================================================

// MirrorServer is implemented by mirror fakes and simulators.
type MirrorServer interface {
	SubscribeTopic(in *TopicQuery, stream TopicSender) error
}

// TopicSender is the server side of a topic subscription.
type TopicSender interface {
	Send(*TopicMessage) error
	grpc.ServerStream
}

// RegisterMirrorServer registers srv on s.
func RegisterMirrorServer(s grpc.ServiceRegistrar, srv MirrorServer) {
	s.RegisterService(&mirrorServiceDesc, srv)
}

type topicSender struct {
	grpc.ServerStream
}

func (x *topicSender) Send(m *TopicMessage) error {
	return x.ServerStream.SendMsg(m)
}

func mirrorSubscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(TopicQuery)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MirrorServer).SubscribeTopic(in, &topicSender{ServerStream: stream})
}

var mirrorServiceDesc = grpc.ServiceDesc{
	ServiceName: MirrorServiceName,
	HandlerType: (*MirrorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeTopic",
			Handler:       mirrorSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "ledger/v1/mirror",
}
