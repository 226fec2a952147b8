package chain

import (
	"context"
	"fmt"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

// ChunkDescriptor links segment Index (2..Total) of a chunked message to the
// correlation id established by segment 1.
type ChunkDescriptor struct {
	Parent wire.TransactionID
	Index  int
	Total  int
}

// Validate enforces 2 <= Index <= Total; segment 1 never carries a descriptor.
func (d ChunkDescriptor) Validate() error {
	if d.Parent.IsZero() {
		return Invalid("chunk parent", "must be set")
	}
	if d.Total < 2 {
		return Invalid("chunk total", fmt.Sprintf("%d is below 2", d.Total))
	}
	if d.Index < 2 || d.Index > d.Total {
		return Invalid("chunk index", fmt.Sprintf("%d outside 2..%d", d.Index, d.Total))
	}
	return nil
}

// Info returns the wire form of d.
func (d ChunkDescriptor) Info() wire.ChunkInfo {
	return wire.ChunkInfo{InitialTransactionID: d.Parent, Number: int32(d.Index), Total: int32(d.Total)}
}

// SegmentBuilder builds the operation for one segment. chunk is the wire
// correlation for every segment; parent is nil for segment 1.
type SegmentBuilder[T any] func(segment []byte, chunk wire.ChunkInfo, parent *ChunkDescriptor) Operation[T]

// ChunkedResult collects the receipts of a chunked submission in index order.
type ChunkedResult[T any] struct {
	// Correlation is the id every later segment references: segment 1's id,
	// or its scheduled variant when the submission is scheduled.
	Correlation wire.TransactionID
	// TransactionIDs are the ids submitted for each completed segment.
	TransactionIDs []wire.TransactionID
	Receipts       []T
	Total          int
}

// Completed reports how many segments reached consensus.
func (r *ChunkedResult[T]) Completed() int { return len(r.Receipts) }

// SplitSegments cuts payload into ceil(len/size) segments. The segments alias
// payload.
func SplitSegments(payload []byte, size int) ([][]byte, error) {
	if size <= 0 {
		return nil, Invalid("segment size", "must be positive")
	}
	if len(payload) == 0 {
		return nil, Invalid("payload", "is empty")
	}
	segments := make([][]byte, 0, (len(payload)+size-1)/size)
	for off := 0; off < len(payload); off += size {
		end := off + size
		if end > len(payload) {
			end = len(payload)
		}
		segments = append(segments, payload[off:end:end])
	}
	return segments, nil
}

// SubmitChunked submits payload as sequential, correlated segments.
//
// The correlation id is fixed before segment 1 is built: the pre-assigned or
// generated id of segment 1, flagged scheduled when the signatory Execute
// composes for segment 1 (context, operation and call) carries PendingParams.
// Segment 1 is built again when its operation signatory changes that
// decision, so build may run twice for it. Segments 2..N get fresh ids from the same
// payer. On failure submission stops; the result holds the completed segments
// and the error is a *ChunkError naming the failed index.
func SubmitChunked[T any](ctx context.Context, client *Client, payload []byte, segmentSize int, build SegmentBuilder[T], opts ...ExecOption) (*ChunkedResult[T], error) {
	segments, err := SplitSegments(payload, segmentSize)
	if err != nil {
		return nil, err
	}
	cfg := buildExecConfig(opts)

	scoped := client
	if len(cfg.overrides) > 0 {
		scoped = client.With(cfg.overrides...)
		defer scoped.Close()
	}

	payer, err := scoped.ctx.Payer()
	if err != nil {
		return nil, err
	}
	first := scoped.ids.Next(payer)
	if cfg.txID != nil {
		first = *cfg.txID
	}

	total := len(segments)
	base := Compose(scoped.ctx.Signatory(), cfg.signatory)
	correlation := first
	if PendingOf(base) != nil {
		correlation = first.AsScheduled()
	}
	firstInfo := wire.ChunkInfo{InitialTransactionID: correlation, Number: 1, Total: int32(total)}
	firstOp := build(segments[0], firstInfo, nil)
	if p, ok := firstOp.(SignatoryProvider); ok && !correlation.Scheduled {
		if PendingOf(Compose(base, p.Signatory())) != nil {
			correlation = first.AsScheduled()
			firstInfo.InitialTransactionID = correlation
			firstOp = build(segments[0], firstInfo, nil)
		}
	}

	result := &ChunkedResult[T]{Correlation: correlation, Total: total}
	log := scoped.log.WithContext(ctx).WithFields(map[string]interface{}{
		"correlation_id": correlation.String(),
		"segments":       total,
	})

	for i, segment := range segments {
		index := i + 1
		id := first
		op := firstOp
		if index > 1 {
			id = scoped.ids.Next(payer)
			parent := &ChunkDescriptor{Parent: correlation, Index: index, Total: total}
			op = build(segment, parent.Info(), parent)
		}

		out, err := Execute(ctx, scoped, op, WithTransactionID(id), SignedBy(cfg.signatory))
		scoped.metrics.RecordChunkSegment(err)
		if err != nil {
			log.WithError(err).WithField("index", index).Warn("chunked submission stopped")
			return result, &ChunkError{Index: index, Total: total, Cause: err}
		}
		result.TransactionIDs = append(result.TransactionIDs, id)
		result.Receipts = append(result.Receipts, out)
		if cfg.onSegment != nil {
			cfg.onSegment(index, total, id)
		}
	}

	log.Info("chunked submission complete")
	return result, nil
}
