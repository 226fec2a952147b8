package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

// Sentinel errors. Every typed error below matches one or more of these with
// errors.Is.
var (
	ErrConfiguration       = errors.New("chain: configuration error")
	ErrInvalidRequest      = errors.New("chain: invalid request")
	ErrPrecheck            = errors.New("chain: precheck failed")
	ErrFeeTooLow           = errors.New("chain: transaction fee below network cost")
	ErrBusy                = errors.New("chain: network busy")
	ErrConfirmationTimeout = errors.New("chain: confirmation timed out")
	ErrTransactionFailed   = errors.New("chain: transaction failed")
	ErrChunkFailed         = errors.New("chain: chunked submission interrupted")
)

// ConfigError reports a required setting that no context node provides.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chain: %s is not configured", e.Field)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// ValidationError is raised by the local validation step, before any I/O.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// Invalid is shorthand for &ValidationError{Field: field, Reason: reason}.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "chain: invalid request: " + e.Reason
	}
	return fmt.Sprintf("chain: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }
func (e *ValidationError) Unwrap() error        { return e.Err }

// PrecheckError is a node-local rejection of a submitted transaction.
type PrecheckError struct {
	TransactionID wire.TransactionID
	Code          wire.ResponseCode
	Cost          uint64
	// Exhausted is set when the retry budget ran out on transient codes.
	Exhausted bool
	Cause     error
}

func (e *PrecheckError) Error() string {
	msg := fmt.Sprintf("chain: precheck %s for %s", e.Code, e.TransactionID)
	if e.Cost > 0 {
		msg += fmt.Sprintf(" (cost %d)", e.Cost)
	}
	if e.Exhausted {
		msg += ": retries exhausted"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PrecheckError) Is(target error) bool {
	switch target {
	case ErrPrecheck:
		return true
	case ErrFeeTooLow:
		return isFeeCode(e.Code)
	case ErrBusy:
		return e.Exhausted
	}
	return false
}

func (e *PrecheckError) Unwrap() error { return e.Cause }

// ConfirmationError means consensus was not observed in time. The transaction
// may still reach consensus later.
type ConfirmationError struct {
	TransactionID wire.TransactionID
	LastStatus    wire.ResponseCode
	Cause         error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("chain: no receipt for %s (last status %s): %v", e.TransactionID, e.LastStatus, e.Cause)
}

func (e *ConfirmationError) Is(target error) bool {
	return target == ErrConfirmationTimeout && errors.Is(e.Cause, context.DeadlineExceeded)
}

func (e *ConfirmationError) Unwrap() error { return e.Cause }

// TransactionError carries a terminal non-success receipt.
type TransactionError struct {
	TransactionID wire.TransactionID
	Status        wire.ResponseCode
	Receipt       *wire.Receipt
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("chain: transaction %s failed with %s", e.TransactionID, e.Status)
}

func (e *TransactionError) Is(target error) bool { return target == ErrTransactionFailed }

// ChunkError reports the segment at which a chunked submission stopped.
// Index is 1-based.
type ChunkError struct {
	Index int
	Total int
	Cause error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chain: segment %d of %d: %v", e.Index, e.Total, e.Cause)
}

func (e *ChunkError) Is(target error) bool { return target == ErrChunkFailed }
func (e *ChunkError) Unwrap() error        { return e.Cause }
