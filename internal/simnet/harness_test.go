package simnet

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func startCluster(t *testing.T, gateways int) *Cluster {
	t.Helper()
	c := NewCluster(newTestNetwork(), gateways)
	c.StartBufconn()
	t.Cleanup(c.Close)
	return c
}

func dial(t *testing.T, c *Cluster, endpoint string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(endpoint, c.DialOptions()...)
	if err != nil {
		t.Fatalf("dial %s: %v", endpoint, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func createTopic(t *testing.T, n *Network, payer wire.EntityID, key testKey, offset time.Duration) wire.EntityID {
	t.Helper()
	if resp := n.Submit(buildTx(t, txID(payer, offset), wire.KindTopicCreate, wire.TopicCreateBody{}, key)); resp.Code != wire.OK {
		t.Fatalf("create topic: %s", resp.Code)
	}
	r, _ := n.Receipt(txID(payer, offset))
	return *r.TopicID
}

func TestGatewayScriptsOverGRPC(t *testing.T) {
	c := startCluster(t, 2)
	alice := newTestKey(t)
	a := c.Network.CreateAccount(alice.pub, 1_000_000)
	c.Gateways[1].ScriptPrecheck(wire.Busy)

	tx := buildTx(t, txID(a, 0), wire.KindTopicCreate, wire.TopicCreateBody{}, alice)
	client := wire.NewGatewayClient(dial(t, c, c.GatewayEndpoints[1]))

	resp, err := client.Submit(context.Background(), tx)
	if err != nil || resp.Code != wire.Busy {
		t.Fatalf("scripted: %v %v", resp, err)
	}
	resp, err = client.Submit(context.Background(), tx)
	if err != nil || resp.Code != wire.OK {
		t.Fatalf("second: %v %v", resp, err)
	}
	if got := len(c.Gateways[1].Received()); got != 2 {
		t.Fatalf("received = %d", got)
	}
	if c.Gateways[0].Submits() != 0 {
		t.Fatal("gateway 0 should be untouched")
	}

	c.Gateways[1].FailReceipts(1)
	if _, err := client.GetReceipt(context.Background(), &wire.ReceiptQuery{TransactionID: txID(a, 0)}); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	rr, err := client.GetReceipt(context.Background(), &wire.ReceiptQuery{TransactionID: txID(a, 0)})
	if err != nil || rr.Receipt == nil || rr.Receipt.Status != wire.Success {
		t.Fatalf("receipt: %+v %v", rr, err)
	}
}

func TestFailAfterAcceptAppliesTransaction(t *testing.T) {
	c := startCluster(t, 1)
	alice := newTestKey(t)
	a := c.Network.CreateAccount(alice.pub, 1_000_000)
	c.Gateways[0].FailAfterAccept(1)

	client := wire.NewGatewayClient(dial(t, c, c.GatewayEndpoints[0]))
	tx := buildTx(t, txID(a, 0), wire.KindTopicCreate, wire.TopicCreateBody{}, alice)
	if _, err := client.Submit(context.Background(), tx); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	resp, err := client.Submit(context.Background(), tx)
	if err != nil || resp.Code != wire.DuplicateTransaction {
		t.Fatalf("resubmit: %v %v", resp, err)
	}
}

func TestMirrorStreamsHistoryThenLive(t *testing.T) {
	c := startCluster(t, 1)
	alice := newTestKey(t)
	a := c.Network.CreateAccount(alice.pub, 1_000_000)
	topic := createTopic(t, c.Network, a, alice, 0)

	post := func(offset time.Duration, msg string) {
		tx := buildTx(t, txID(a, offset), wire.KindTopicMessage, wire.TopicMessageBody{Topic: topic, Message: []byte(msg)}, alice)
		if resp := c.Network.Submit(tx); resp.Code != wire.OK {
			t.Fatalf("post: %s", resp.Code)
		}
	}
	post(time.Second, "one")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := wire.NewMirrorClient(dial(t, c, c.MirrorEndpoint)).SubscribeTopic(ctx, &wire.TopicQuery{Topic: topic, Limit: 2})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	first, err := stream.Recv()
	if err != nil || string(first.Message) != "one" {
		t.Fatalf("first: %v %v", first, err)
	}

	post(2*time.Second, "two")
	second, err := stream.Recv()
	if err != nil || string(second.Message) != "two" || second.SequenceNumber != 2 {
		t.Fatalf("second: %v %v", second, err)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected EOF after limit, got %v", err)
	}
}

func TestMirrorFaults(t *testing.T) {
	c := startCluster(t, 1)
	alice := newTestKey(t)
	a := c.Network.CreateAccount(alice.pub, 1_000_000)
	topic := createTopic(t, c.Network, a, alice, 0)
	mirror := wire.NewMirrorClient(dial(t, c, c.MirrorEndpoint))

	recvErr := func(q *wire.TopicQuery) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stream, err := mirror.SubscribeTopic(ctx, q)
		if err != nil {
			return err
		}
		_, err = stream.Recv()
		return err
	}

	if err := recvErr(&wire.TopicQuery{Topic: wire.NewEntityID(0, 0, 4242)}); status.Code(err) != codes.NotFound {
		t.Fatalf("missing topic: %v", err)
	}
	if err := recvErr(&wire.TopicQuery{Topic: a}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("account as topic: %v", err)
	}
	c.Mirror.ScriptFault(0, codes.Unavailable)
	if err := recvErr(&wire.TopicQuery{Topic: topic}); status.Code(err) != codes.Unavailable {
		t.Fatalf("scripted fault: %v", err)
	}
}
