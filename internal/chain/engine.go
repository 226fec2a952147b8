package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// signedTransaction is the immutable result of build + sign. Every submit
// attempt sends exactly these bytes.
type signedTransaction struct {
	id        wire.TransactionID
	kind      string
	scheduled bool
	tx        *wire.Transaction
}

// =============================================================================
// Execute
// =============================================================================

// Execute validates op, signs it once, submits it with retries across the
// gateway pool, waits for its receipt and maps the result.
//
// Cancelling ctx after the signed bytes have left the process only stops the
// wait; the network may still apply the transaction.
func Execute[T any](ctx context.Context, client *Client, op Operation[T], opts ...ExecOption) (T, error) {
	var zero T
	cfg := buildExecConfig(opts)

	if err := validate(op); err != nil {
		return zero, err
	}

	node := client.ctx
	if len(cfg.overrides) > 0 {
		node = node.Child(cfg.overrides...)
		defer node.Close()
	}
	if logger.TraceIDFromContext(ctx) == "" {
		ctx = logger.WithTraceID(ctx, logger.NewTraceID())
	}

	started := time.Now()
	st, err := client.prepare(ctx, node, op, cfg)
	if err != nil {
		client.metrics.RecordSubmission(err)
		return zero, err
	}

	receipt, err := client.submitAndConfirm(ctx, node, st)
	client.metrics.RecordSubmission(err)
	if err != nil {
		return zero, err
	}
	client.metrics.RecordConfirmation(time.Since(started))

	if receipt.Status != wire.Success {
		return zero, &TransactionError{TransactionID: st.id, Status: receipt.Status, Receipt: receipt}
	}
	out, err := op.MapReceipt(st.id, receipt)
	if err != nil {
		return zero, fmt.Errorf("map receipt for %s: %w", st.id, err)
	}
	return out, nil
}

func validate[T any](op Operation[T]) error {
	err := op.Validate()
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &ValidationError{Reason: err.Error(), Err: err}
}

// prepare assigns the id, builds the body and signs it.
func (c *Client) prepare(ctx context.Context, node *Context, op interface {
	BuildBody() (wire.OperationBody, error)
}, cfg execConfig) (*signedTransaction, error) {
	payer, err := node.Payer()
	if err != nil {
		return nil, err
	}
	if _, err := node.Gateways(); err != nil {
		return nil, err
	}

	id := c.ids.Next(payer)
	if cfg.txID != nil {
		id = *cfg.txID
	}

	body, err := op.BuildBody()
	if err != nil {
		return nil, &ValidationError{Reason: "build body: " + err.Error(), Err: err}
	}

	var opSig Signatory
	if p, ok := op.(SignatoryProvider); ok {
		opSig = p.Signatory()
	}
	sig := Compose(node.Signatory(), opSig, cfg.signatory)

	scheduled := false
	if pending := PendingOf(sig); pending != nil {
		body, err = pending.scheduleBody(body)
		if err != nil {
			return nil, err
		}
		scheduled = true
	}

	return c.sign(ctx, node, id, body, sig, scheduled)
}

func (c *Client) sign(ctx context.Context, node *Context, id wire.TransactionID, body wire.OperationBody, sig Signatory, scheduled bool) (*signedTransaction, error) {
	data, err := wire.Marshal(body.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", body.Kind, err)
	}
	tb := wire.TransactionBody{
		TransactionID: id,
		Memo:          node.Memo(),
		MaxFee:        node.FeeLimit(),
		ValidDuration: int64(node.ValidDuration() / time.Second),
		Kind:          body.Kind,
		Data:          data,
	}
	bodyBytes, err := wire.Marshal(tb)
	if err != nil {
		return nil, fmt.Errorf("encode transaction body: %w", err)
	}

	inv := NewInvoice(id, tb.Memo, bodyBytes)
	if sig != nil {
		if err := sig.Sign(ctx, inv); err != nil {
			return nil, fmt.Errorf("sign %s: %w", id, err)
		}
	}

	return &signedTransaction{
		id:        id,
		kind:      body.Kind,
		scheduled: scheduled,
		tx:        &wire.Transaction{BodyBytes: bodyBytes, Signatures: inv.SignatureMap()},
	}, nil
}

func (c *Client) submitAndConfirm(ctx context.Context, node *Context, st *signedTransaction) (*wire.Receipt, error) {
	if err := c.submit(ctx, node, st); err != nil {
		return nil, err
	}
	return c.waitForReceipt(ctx, node, st.id)
}

// =============================================================================
// Submit loop
// =============================================================================

func (c *Client) submit(ctx context.Context, node *Context, st *signedTransaction) error {
	policy := node.RetryPolicy()
	hook := node.OnRequest()
	log := c.log.WithContext(ctx).WithFields(map[string]interface{}{
		"transaction_id": st.id.String(),
		"kind":           st.kind,
		"scheduled":      st.scheduled,
	})

	endpoints, err := c.rotation(node)
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, node.RequestTimeout())
	defer cancel()

	ambiguous := false
	lastCode := wire.Busy
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := sleepCtx(rctx, policy.Backoff(attempt)); err != nil {
			return c.submitInterrupted(ctx, st, lastCode, err)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(rctx); err != nil {
				return c.submitInterrupted(ctx, st, lastCode, err)
			}
		}

		endpoint := endpoints[(attempt-1)%len(endpoints)]
		conn, err := node.Conn(endpoint)
		if err != nil {
			return err
		}

		start := time.Now()
		resp, err := wire.NewGatewayClient(conn).Submit(rctx, st.tx)
		elapsed := time.Since(start)
		breaker := c.health.breaker(endpoint)

		if err != nil {
			emit(ctx, hook, RequestEvent{TransactionID: st.id, Endpoint: endpoint, Kind: "submit", Attempt: attempt, Err: err, Duration: elapsed})
			c.metrics.RecordSubmitAttempt(endpoint, "transport_error", elapsed)
			if rctx.Err() != nil {
				return c.submitInterrupted(ctx, st, lastCode, rctx.Err())
			}
			if !retryableTransport(err) {
				return fmt.Errorf("submit %s to %s: %w", st.id, endpoint, err)
			}
			breaker.RecordFailure()
			ambiguous = true
			lastErr = err
			log.WithError(err).WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"attempt":  attempt,
			}).Warn("submit transport failure, rotating endpoint")
			continue
		}
		breaker.RecordSuccess()

		emit(ctx, hook, RequestEvent{TransactionID: st.id, Endpoint: endpoint, Kind: "submit", Attempt: attempt, Code: resp.Code, Duration: elapsed})
		c.metrics.RecordPrecheck(resp.Code.String())
		c.metrics.RecordSubmitAttempt(endpoint, resp.Code.String(), elapsed)
		log.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  attempt,
			"code":     resp.Code.String(),
		}).Debug("precheck response")

		switch {
		case resp.Code == wire.OK:
			return nil
		case resp.Code == wire.DuplicateTransaction && ambiguous:
			// An earlier attempt reached a node before its transport failed.
			log.WithField("endpoint", endpoint).Info("duplicate after ambiguous failure, treating as accepted")
			return nil
		case isTransientPrecheck(resp.Code):
			lastCode = resp.Code
			lastErr = nil
			log.WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"attempt":  attempt,
				"code":     resp.Code.String(),
			}).Warn("transient precheck, retrying same transaction")
			continue
		default:
			return &PrecheckError{TransactionID: st.id, Code: resp.Code, Cost: resp.Cost}
		}
	}

	return &PrecheckError{TransactionID: st.id, Code: lastCode, Exhausted: true, Cause: lastErr}
}

// submitInterrupted distinguishes caller cancellation from the request
// timeout running out.
func (c *Client) submitInterrupted(ctx context.Context, st *signedTransaction, lastCode wire.ResponseCode, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("submit %s: %w", st.id, ctx.Err())
	}
	return &PrecheckError{TransactionID: st.id, Code: lastCode, Exhausted: true, Cause: err}
}

func emit(ctx context.Context, hook RequestHook, ev RequestEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

// retryableTransport reports transport failures worth another endpoint.
func retryableTransport(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
