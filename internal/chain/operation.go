package chain

import (
	"github.com/R3E-Network/hiero_client/internal/wire"
)

// Operation is a typed request flowing through Execute. Implementations must
// be free of side effects: Validate runs before any I/O, BuildBody must be
// deterministic and MapReceipt must not touch the network.
type Operation[T any] interface {
	Validate() error
	BuildBody() (wire.OperationBody, error)
	MapReceipt(id wire.TransactionID, r *wire.Receipt) (T, error)
}

// SignatoryProvider is implemented by operations that need signatures beyond
// the context default, such as both keys of a key rotation.
type SignatoryProvider interface {
	Signatory() Signatory
}

// Receipt is the part of every typed result shared across operations.
type Receipt struct {
	TransactionID wire.TransactionID
	Status        wire.ResponseCode
	// Pending is set when the submission was scheduled rather than executed.
	Pending *PendingReceipt
}

// PendingReceipt identifies a scheduled submission awaiting execution.
type PendingReceipt struct {
	ScheduleID             wire.EntityID
	ScheduledTransactionID wire.TransactionID
}

// NewReceipt builds the shared receipt fields from a raw receipt.
func NewReceipt(id wire.TransactionID, r *wire.Receipt) Receipt {
	out := Receipt{TransactionID: id, Status: r.Status}
	if r.ScheduleID != nil {
		p := &PendingReceipt{ScheduleID: *r.ScheduleID}
		if r.ScheduledTransactionID != nil {
			p.ScheduledTransactionID = *r.ScheduledTransactionID
		}
		out.Pending = p
	}
	return out
}

// =============================================================================
// Execution options
// =============================================================================

type execConfig struct {
	txID      *wire.TransactionID
	signatory Signatory
	overrides []Option
	onSegment func(index, total int, id wire.TransactionID)
}

// ExecOption adjusts a single Execute call.
type ExecOption func(*execConfig)

// WithTransactionID pre-assigns the transaction id instead of generating one.
func WithTransactionID(id wire.TransactionID) ExecOption {
	return func(c *execConfig) { c.txID = &id }
}

// SignedBy adds signing material for this call only. It is composed after the
// context default and any operation signatory.
func SignedBy(sig Signatory) ExecOption {
	return func(c *execConfig) { c.signatory = Compose(c.signatory, sig) }
}

// WithOverrides layers a call-scoped context node over the client's context.
// Channels created for endpoints only this node declares are released when the
// call returns.
func WithOverrides(opts ...Option) ExecOption {
	return func(c *execConfig) { c.overrides = append(c.overrides, opts...) }
}

// OnSegment is called by SubmitChunked after each segment is confirmed.
// Execute ignores it.
func OnSegment(fn func(index, total int, id wire.TransactionID)) ExecOption {
	return func(c *execConfig) { c.onSegment = fn }
}

func buildExecConfig(opts []ExecOption) execConfig {
	var cfg execConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
