package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

// waitForReceipt polls for the receipt of id on a fixed interval until its
// status is terminal or the receipt timeout elapses. "Still processing"
// answers and transient transport failures are retried, not surfaced.
func (c *Client) waitForReceipt(ctx context.Context, node *Context, id wire.TransactionID) (*wire.Receipt, error) {
	endpoints, err := c.rotation(node)
	if err != nil {
		return nil, err
	}
	hook := node.OnRequest()
	interval := node.ReceiptPollInterval()
	log := c.log.WithContext(ctx).WithField("transaction_id", id.String())

	wctx, cancel := context.WithTimeout(ctx, node.ReceiptTimeout())
	defer cancel()

	last := wire.Unknown
	for attempt := 1; ; attempt++ {
		endpoint := endpoints[(attempt-1)%len(endpoints)]
		receipt, code, err := c.queryReceipt(wctx, node, endpoint, id)
		emit(ctx, hook, RequestEvent{TransactionID: id, Endpoint: endpoint, Kind: "receipt", Attempt: attempt, Code: code, Err: err})

		switch {
		case err != nil && wctx.Err() != nil:
			// fall through to the deadline check below
		case err != nil && !retryableTransport(err):
			return nil, fmt.Errorf("receipt for %s from %s: %w", id, endpoint, err)
		case err != nil:
			c.health.breaker(endpoint).RecordFailure()
			log.WithError(err).WithField("endpoint", endpoint).Warn("receipt query transport failure")
		default:
			c.metrics.RecordReceiptPoll(code.String())
			if !stillProcessing(code) {
				if receipt == nil {
					receipt = &wire.Receipt{Status: code}
				}
				log.WithFields(map[string]interface{}{
					"status":   receipt.Status.String(),
					"attempts": attempt,
				}).Info("transaction reached consensus")
				return receipt, nil
			}
			last = code
			log.WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"status":   code.String(),
			}).Debug("receipt not ready")
		}

		if err := sleepCtx(wctx, interval); err != nil {
			return nil, &ConfirmationError{TransactionID: id, LastStatus: last, Cause: err}
		}
	}
}

// queryReceipt asks one endpoint. The returned code is the receipt status when
// a receipt is present and the query-level code otherwise.
func (c *Client) queryReceipt(ctx context.Context, node *Context, endpoint string, id wire.TransactionID) (*wire.Receipt, wire.ResponseCode, error) {
	conn, err := node.Conn(endpoint)
	if err != nil {
		return nil, 0, err
	}
	start := time.Now()
	resp, err := wire.NewGatewayClient(conn).GetReceipt(ctx, &wire.ReceiptQuery{TransactionID: id})
	if err != nil {
		return nil, 0, err
	}
	c.health.breaker(endpoint).RecordSuccess()
	c.log.WithContext(ctx).WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"elapsed":  time.Since(start).String(),
	}).Trace("receipt query")

	if resp.Code != wire.OK || resp.Receipt == nil {
		if resp.Code == wire.OK {
			return nil, wire.Unknown, nil
		}
		return nil, resp.Code, nil
	}
	return resp.Receipt, resp.Receipt.Status, nil
}

// GetReceipt looks up the receipt of id once, without waiting for consensus.
// A receipt that is not yet known comes back with status Unknown or
// ReceiptNotFound rather than as an error.
func GetReceipt(ctx context.Context, client *Client, id wire.TransactionID) (*wire.Receipt, error) {
	node := client.ctx
	endpoints, err := client.rotation(node)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, endpoint := range endpoints {
		receipt, code, err := client.queryReceipt(ctx, node, endpoint, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !retryableTransport(err) {
				return nil, fmt.Errorf("receipt for %s from %s: %w", id, endpoint, err)
			}
			client.health.breaker(endpoint).RecordFailure()
			lastErr = err
			continue
		}
		if receipt == nil {
			receipt = &wire.Receipt{Status: code}
		}
		return receipt, nil
	}
	return nil, fmt.Errorf("receipt for %s: all endpoints failed: %w", id, lastErr)
}
