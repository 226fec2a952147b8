package chain

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/hiero_client/internal/simnet"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

func TestExecuteRetriesBusyWithIdenticalBytes(t *testing.T) {
	env := newTestEnv(t, 3)
	env.cluster.Gateways[0].ScriptPrecheck(wire.Busy)
	env.cluster.Gateways[1].ScriptPrecheck(wire.Busy)

	events := &eventLog{}
	client := env.newClient(WithOnRequest(events.hook))

	receipt, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("hello")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if receipt.Status != wire.Success {
		t.Fatalf("status = %s", receipt.Status)
	}

	submits := events.ofKind("submit")
	if len(submits) != 3 {
		t.Fatalf("submit attempts = %d, want 3", len(submits))
	}
	wantCodes := []wire.ResponseCode{wire.Busy, wire.Busy, wire.OK}
	seen := map[string]bool{}
	for i, ev := range submits {
		if ev.Code != wantCodes[i] {
			t.Fatalf("attempt %d code = %s, want %s", i+1, ev.Code, wantCodes[i])
		}
		if !ev.TransactionID.Equal(receipt.TransactionID) {
			t.Fatalf("attempt %d used id %s, want %s", i+1, ev.TransactionID, receipt.TransactionID)
		}
		seen[ev.Endpoint] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected three distinct endpoints, got %v", seen)
	}

	// Every gateway got the same signed body.
	var first []byte
	for i, gw := range env.cluster.Gateways {
		got := gw.Received()
		if len(got) == 0 {
			t.Fatalf("gateway %d received nothing", i)
		}
		last := got[len(got)-1]
		if first == nil {
			first = last
			continue
		}
		if !bytes.Equal(first, last) {
			t.Fatalf("gateway %d received different bytes", i)
		}
	}
}

func TestExecuteWaitsOutUnknownReceipts(t *testing.T) {
	env := newTestEnv(t, 2)
	env.net.SetReceiptDelay(3)

	events := &eventLog{}
	client := env.newClient(WithOnRequest(events.hook))

	receipt, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("slow")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if receipt.Status != wire.Success {
		t.Fatalf("status = %s", receipt.Status)
	}

	polls := events.ofKind("receipt")
	if len(polls) != 4 {
		t.Fatalf("receipt polls = %d, want 4", len(polls))
	}
	for i := 0; i < 3; i++ {
		if polls[i].Code != wire.Unknown || polls[i].Err != nil {
			t.Fatalf("poll %d = %s / %v, want UNKNOWN", i+1, polls[i].Code, polls[i].Err)
		}
	}
	if polls[3].Code != wire.Success {
		t.Fatalf("final poll = %s", polls[3].Code)
	}
}

func TestExecuteFeeTooLowIsDistinct(t *testing.T) {
	env := newTestEnv(t, 2)
	client := env.newClient()
	before := env.submits()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")},
		WithOverrides(WithFeeLimit(10)))
	if !errors.Is(err, ErrFeeTooLow) {
		t.Fatalf("expected ErrFeeTooLow, got %v", err)
	}
	var pe *PrecheckError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PrecheckError, got %T", err)
	}
	if pe.Code != wire.InsufficientTxFee || pe.Cost != simnet.DefaultTransactionFee {
		t.Fatalf("precheck = %s cost %d", pe.Code, pe.Cost)
	}
	if errors.Is(err, ErrBusy) {
		t.Fatal("fee error must not match ErrBusy")
	}
	if got := env.submits() - before; got != 1 {
		t.Fatalf("fee errors must not be retried, got %d submits", got)
	}
}

func TestExecuteHardPrecheckFailsImmediately(t *testing.T) {
	env := newTestEnv(t, 3)
	env.cluster.Gateways[0].ScriptPrecheck(wire.InvalidSignature)
	client := env.newClient()
	before := env.submits()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")})
	var pe *PrecheckError
	if !errors.As(err, &pe) || pe.Code != wire.InvalidSignature {
		t.Fatalf("expected INVALID_SIGNATURE precheck, got %v", err)
	}
	if pe.TransactionID.IsZero() {
		t.Fatal("precheck error must carry the transaction id")
	}
	if got := env.submits() - before; got != 1 {
		t.Fatalf("submits = %d, want 1", got)
	}
}

func TestExecuteBusyExhaustsRetryBudget(t *testing.T) {
	env := newTestEnv(t, 3)
	for _, gw := range env.cluster.Gateways {
		gw.ScriptPrecheck(wire.Busy)
	}
	client := env.newClient(WithRetryPolicy(RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}))

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")})
	if !errors.Is(err, ErrBusy) || !errors.Is(err, ErrPrecheck) {
		t.Fatalf("expected exhausted busy precheck, got %v", err)
	}
	var pe *PrecheckError
	if errors.As(err, &pe) && pe.Code != wire.Busy {
		t.Fatalf("code = %s", pe.Code)
	}
}

func TestExecuteFailsOverOnTransportError(t *testing.T) {
	env := newTestEnv(t, 2)
	env.cluster.Gateways[0].FailTransport(1)
	client := env.newClient()

	receipt, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if receipt.Status != wire.Success {
		t.Fatalf("status = %s", receipt.Status)
	}
}

func TestExecuteDuplicateAfterLostResponseIsAccepted(t *testing.T) {
	env := newTestEnv(t, 2)
	env.cluster.Gateways[0].FailAfterAccept(1)
	events := &eventLog{}
	client := env.newClient(WithOnRequest(events.hook))

	receipt, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("once")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if receipt.Status != wire.Success {
		t.Fatalf("status = %s", receipt.Status)
	}
	submits := events.ofKind("submit")
	if len(submits) != 2 || submits[1].Code != wire.DuplicateTransaction {
		t.Fatalf("unexpected attempts: %+v", submits)
	}
	if n := len(env.net.Messages(env.topic)); n != 1 {
		t.Fatalf("message applied %d times", n)
	}
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	env := newTestEnv(t, 1)
	env.net.SetReceiptDelay(1_000_000)
	client := env.newClient()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")},
		WithOverrides(WithReceiptTimeout(50*time.Millisecond)))
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
	var ce *ConfirmationError
	if !errors.As(err, &ce) || ce.LastStatus != wire.Unknown || ce.TransactionID.IsZero() {
		t.Fatalf("unexpected confirmation error: %+v", ce)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("confirmation error should unwrap to the deadline")
	}
}

func TestExecuteCallerCancelIsNotTimeout(t *testing.T) {
	env := newTestEnv(t, 1)
	env.net.SetReceiptDelay(1_000_000)
	client := env.newClient()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := Execute[Receipt](ctx, client, messageOp{topic: env.topic, message: []byte("x")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrConfirmationTimeout) {
		t.Fatal("caller cancellation must not report a timeout")
	}
}

func TestExecuteValidationHasNoIO(t *testing.T) {
	env := newTestEnv(t, 2)
	client := env.newClient()
	before := env.submits()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "message" {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if env.submits() != before {
		t.Fatal("validation failure must not reach the network")
	}
}

func TestExecuteMissingPayer(t *testing.T) {
	env := newTestEnv(t, 1)
	client := NewClient(NewRootContext(
		WithGateways(env.cluster.GatewayEndpoints...),
		WithDialOptions(env.cluster.DialOptions()...),
	))
	defer client.Close()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "payer" {
		t.Fatalf("expected payer ConfigError, got %v", err)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Fatal("ConfigError must match ErrConfiguration")
	}
}

func TestExecuteTerminalFailureCarriesReceipt(t *testing.T) {
	env := newTestEnv(t, 1)
	client := env.newClient()

	_, err := Execute[Receipt](context.Background(), client, messageOp{topic: wire.NewEntityID(0, 0, 999_999), message: []byte("x")})
	var te *TransactionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransactionError, got %v", err)
	}
	if te.Status != wire.InvalidTopicID || te.Receipt == nil {
		t.Fatalf("unexpected failure: %+v", te)
	}

	// The id is enough to look the receipt up again later.
	r, err := GetReceipt(context.Background(), client, te.TransactionID)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if r.Status != wire.InvalidTopicID {
		t.Fatalf("looked-up status = %s", r.Status)
	}
}

func TestExecutePreassignedID(t *testing.T) {
	env := newTestEnv(t, 1)
	client := env.newClient()
	id := client.IDs().Next(env.payer)

	receipt, err := Execute[Receipt](context.Background(), client, messageOp{topic: env.topic, message: []byte("x")}, WithTransactionID(id))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !receipt.TransactionID.Equal(id) {
		t.Fatalf("id = %s, want %s", receipt.TransactionID, id)
	}
}

func TestGetReceiptUnknownID(t *testing.T) {
	env := newTestEnv(t, 1)
	client := env.newClient()

	r, err := GetReceipt(context.Background(), client, client.IDs().Next(env.payer))
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if r.Status != wire.ReceiptNotFound {
		t.Fatalf("status = %s", r.Status)
	}
}
