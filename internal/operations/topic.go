package operations

import (
	"context"
	"fmt"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

const (
	// MaxMemoLength is the longest memo the network accepts.
	MaxMemoLength = 100
	// DefaultSegmentSize is the segment size used by SubmitLargeMessage when
	// the caller passes 0.
	DefaultSegmentSize = 1024
	// MaxSegments bounds how many segments one message may be split into.
	MaxSegments = 20
)

// =============================================================================
// Topic creation
// =============================================================================

// TopicReceipt is the result of creating a topic. TopicID is zero while the
// creation is scheduled.
type TopicReceipt struct {
	chain.Receipt
	TopicID wire.EntityID
}

// CreateTopic creates a consensus topic. When AdminKey is set, Admin must sign
// for it.
type CreateTopic struct {
	Memo      string
	AdminKey  *wire.PublicKey
	SubmitKey *wire.PublicKey
	Admin     chain.Signatory
}

var _ chain.Operation[TopicReceipt] = (*CreateTopic)(nil)

func (c *CreateTopic) Validate() error {
	if len(c.Memo) > MaxMemoLength {
		return chain.Invalid("memo", fmt.Sprintf("longer than %d bytes", MaxMemoLength))
	}
	if c.AdminKey != nil && c.AdminKey.IsZero() {
		return chain.Invalid("admin key", "is empty")
	}
	if c.SubmitKey != nil && c.SubmitKey.IsZero() {
		return chain.Invalid("submit key", "is empty")
	}
	return nil
}

func (c *CreateTopic) BuildBody() (wire.OperationBody, error) {
	return wire.OperationBody{Kind: wire.KindTopicCreate, Data: wire.TopicCreateBody{
		Memo:      c.Memo,
		AdminKey:  c.AdminKey,
		SubmitKey: c.SubmitKey,
	}}, nil
}

func (c *CreateTopic) Signatory() chain.Signatory { return c.Admin }

func (c *CreateTopic) MapReceipt(id wire.TransactionID, r *wire.Receipt) (TopicReceipt, error) {
	out := TopicReceipt{Receipt: chain.NewReceipt(id, r)}
	if out.Pending != nil {
		return out, nil
	}
	if r.TopicID == nil {
		return out, fmt.Errorf("receipt for %s has no topic id", id)
	}
	out.TopicID = *r.TopicID
	return out, nil
}

// =============================================================================
// Topic messages
// =============================================================================

// MessageReceipt is the result of one submitted message or segment.
type MessageReceipt struct {
	chain.Receipt
	SequenceNumber     uint64
	RunningHash        []byte
	RunningHashVersion uint64
}

// SubmitMessage submits one message, or one segment of a chunked message.
//
// Descriptor continues a chunked message from segment 2 onward and is how a
// caller resumes after a partial failure. Chunk is set by SubmitLargeMessage
// for every segment, including segment 1; callers leave it nil.
type SubmitMessage struct {
	Topic      wire.EntityID
	Message    []byte
	Descriptor *chain.ChunkDescriptor
	Chunk      *wire.ChunkInfo
	// Submitter signs for the topic's submit key.
	Submitter chain.Signatory
}

var _ chain.Operation[MessageReceipt] = (*SubmitMessage)(nil)

func (m *SubmitMessage) Validate() error {
	if err := m.Topic.Validate(); err != nil {
		return &chain.ValidationError{Field: "topic", Reason: err.Error(), Err: err}
	}
	if len(m.Message) == 0 {
		return chain.Invalid("message", "is empty")
	}
	if m.Descriptor != nil {
		if err := m.Descriptor.Validate(); err != nil {
			return err
		}
		if m.Descriptor.Total > MaxSegments {
			return chain.Invalid("chunk total", fmt.Sprintf("%d exceeds %d", m.Descriptor.Total, MaxSegments))
		}
	}
	if m.Chunk != nil && m.Descriptor != nil {
		if m.Chunk.InitialTransactionID != m.Descriptor.Parent || int(m.Chunk.Number) != m.Descriptor.Index {
			return chain.Invalid("chunk", "disagrees with descriptor")
		}
	}
	return nil
}

func (m *SubmitMessage) BuildBody() (wire.OperationBody, error) {
	chunk := m.Chunk
	if chunk == nil && m.Descriptor != nil {
		info := m.Descriptor.Info()
		chunk = &info
	}
	return wire.OperationBody{Kind: wire.KindTopicMessage, Data: wire.TopicMessageBody{
		Topic:   m.Topic,
		Message: m.Message,
		Chunk:   chunk,
	}}, nil
}

func (m *SubmitMessage) Signatory() chain.Signatory { return m.Submitter }

func (m *SubmitMessage) MapReceipt(id wire.TransactionID, r *wire.Receipt) (MessageReceipt, error) {
	return MessageReceipt{
		Receipt:            chain.NewReceipt(id, r),
		SequenceNumber:     r.TopicSequenceNumber,
		RunningHash:        r.TopicRunningHash,
		RunningHashVersion: r.TopicRunningHashVersion,
	}, nil
}

// LargeMessage is the outcome of SubmitLargeMessage.
type LargeMessage = chain.ChunkedResult[MessageReceipt]

// SubmitLargeMessage splits message into segments of segmentSize bytes (0
// means DefaultSegmentSize) and submits them in order. The result is returned
// even when a segment fails; resume from result.Completed()+1 with
// SubmitMessage and a ChunkDescriptor naming result.Correlation.
func SubmitLargeMessage(ctx context.Context, client *chain.Client, topic wire.EntityID, message []byte, segmentSize int, submitter chain.Signatory, opts ...chain.ExecOption) (*LargeMessage, error) {
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	if segmentSize > 0 {
		if n := (len(message) + segmentSize - 1) / segmentSize; n > MaxSegments {
			return nil, chain.Invalid("message", fmt.Sprintf("needs %d segments, limit is %d", n, MaxSegments))
		}
	}
	var build chain.SegmentBuilder[MessageReceipt] = func(segment []byte, chunk wire.ChunkInfo, parent *chain.ChunkDescriptor) chain.Operation[MessageReceipt] {
		return &SubmitMessage{
			Topic:      topic,
			Message:    segment,
			Descriptor: parent,
			Chunk:      &chunk,
			Submitter:  submitter,
		}
	}
	return chain.SubmitChunked(ctx, client, message, segmentSize, build, opts...)
}
