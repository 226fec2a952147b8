package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Operation kinds carried in TransactionBody.Kind.
const (
	KindCryptoTransfer = "CryptoTransfer"
	KindCryptoCreate   = "CryptoCreate"
	KindCryptoUpdate   = "CryptoUpdateKey"
	KindTopicCreate    = "ConsensusCreateTopic"
	KindTopicMessage   = "ConsensusSubmitMessage"
	KindScheduleCreate = "ScheduleCreate"
)

// =============================================================================
// Transactions
// =============================================================================

// OperationBody is what an operation contributes to a transaction: its kind and
// an operation-specific payload that is encoded into TransactionBody.Data.
type OperationBody struct {
	Kind string
	Data any
}

// TransactionBody is the signed portion of a transaction. It is node-agnostic so
// the same signed bytes can be offered to any gateway.
type TransactionBody struct {
	TransactionID TransactionID   `cbor:"1,keyasint"`
	Memo          string          `cbor:"2,keyasint,omitempty"`
	MaxFee        uint64          `cbor:"3,keyasint,omitempty"`
	ValidDuration int64           `cbor:"4,keyasint,omitempty"`
	Kind          string          `cbor:"5,keyasint"`
	Data          cbor.RawMessage `cbor:"6,keyasint,omitempty"`
}

// DecodeData decodes the operation payload into v.
func (b *TransactionBody) DecodeData(v any) error {
	if len(b.Data) == 0 {
		return fmt.Errorf("transaction body %s has no data", b.Kind)
	}
	return Unmarshal(b.Data, v)
}

// SignaturePair is one signature keyed by a (possibly trimmed) public key prefix.
type SignaturePair struct {
	PubKeyPrefix []byte  `cbor:"1,keyasint"`
	Type         KeyType `cbor:"2,keyasint"`
	Signature    []byte  `cbor:"3,keyasint"`
}

// SignatureMap holds every signature attached to a transaction.
type SignatureMap struct {
	Pairs []SignaturePair `cbor:"1,keyasint,omitempty"`
}

// Transaction is the signed wire form: canonical body bytes plus signatures.
type Transaction struct {
	BodyBytes  []byte       `cbor:"1,keyasint"`
	Signatures SignatureMap `cbor:"2,keyasint"`
}

// Body decodes the transaction body.
func (t *Transaction) Body() (*TransactionBody, error) {
	var body TransactionBody
	if err := Unmarshal(t.BodyBytes, &body); err != nil {
		return nil, fmt.Errorf("decode transaction body: %w", err)
	}
	return &body, nil
}

// TransactionResponse is a gateway's precheck answer.
type TransactionResponse struct {
	Code ResponseCode `cbor:"1,keyasint"`
	Cost uint64       `cbor:"2,keyasint,omitempty"`
}

// =============================================================================
// Receipts
// =============================================================================

// ReceiptQuery asks a gateway for the receipt of one transaction.
type ReceiptQuery struct {
	TransactionID TransactionID `cbor:"1,keyasint"`
}

// ReceiptResponse carries the query-level code and the receipt when known.
type ReceiptResponse struct {
	Code    ResponseCode `cbor:"1,keyasint"`
	Receipt *Receipt     `cbor:"2,keyasint,omitempty"`
}

// Receipt is the consensus outcome of a transaction.
type Receipt struct {
	Status                  ResponseCode   `cbor:"1,keyasint"`
	AccountID               *EntityID      `cbor:"2,keyasint,omitempty"`
	TopicID                 *EntityID      `cbor:"3,keyasint,omitempty"`
	ScheduleID              *EntityID      `cbor:"4,keyasint,omitempty"`
	ScheduledTransactionID  *TransactionID `cbor:"5,keyasint,omitempty"`
	TopicSequenceNumber     uint64         `cbor:"6,keyasint,omitempty"`
	TopicRunningHash        []byte         `cbor:"7,keyasint,omitempty"`
	TopicRunningHashVersion uint64         `cbor:"8,keyasint,omitempty"`
}

// =============================================================================
// Operation payloads
// =============================================================================

// AccountAmount is one leg of a transfer; negative amounts debit.
type AccountAmount struct {
	Account EntityID `cbor:"1,keyasint"`
	Amount  int64    `cbor:"2,keyasint"`
}

// CryptoTransferBody moves value between accounts. Amounts must sum to zero.
type CryptoTransferBody struct {
	Transfers []AccountAmount `cbor:"1,keyasint"`
}

// CryptoCreateBody creates an account controlled by Key.
type CryptoCreateBody struct {
	Key            PublicKey `cbor:"1,keyasint"`
	InitialBalance uint64    `cbor:"2,keyasint,omitempty"`
	Memo           string    `cbor:"3,keyasint,omitempty"`
}

// CryptoUpdateKeyBody replaces the key of Account. Both the old and the new key
// must sign.
type CryptoUpdateKeyBody struct {
	Account EntityID  `cbor:"1,keyasint"`
	NewKey  PublicKey `cbor:"2,keyasint"`
}

// TopicCreateBody creates a consensus topic.
type TopicCreateBody struct {
	Memo      string     `cbor:"1,keyasint,omitempty"`
	AdminKey  *PublicKey `cbor:"2,keyasint,omitempty"`
	SubmitKey *PublicKey `cbor:"3,keyasint,omitempty"`
}

// ChunkInfo correlates one segment of a chunked message with its siblings.
type ChunkInfo struct {
	InitialTransactionID TransactionID `cbor:"1,keyasint"`
	Number               int32         `cbor:"2,keyasint"`
	Total                int32         `cbor:"3,keyasint"`
}

// TopicMessageBody submits one message (or one segment of one) to a topic.
type TopicMessageBody struct {
	Topic   EntityID   `cbor:"1,keyasint"`
	Message []byte     `cbor:"2,keyasint"`
	Chunk   *ChunkInfo `cbor:"3,keyasint,omitempty"`
}

// ScheduleCreateBody wraps an inner operation for deferred execution.
type ScheduleCreateBody struct {
	Kind          string          `cbor:"1,keyasint"`
	Data          cbor.RawMessage `cbor:"2,keyasint,omitempty"`
	Memo          string          `cbor:"3,keyasint,omitempty"`
	Administrator *PublicKey      `cbor:"4,keyasint,omitempty"`
	Payer         *EntityID       `cbor:"5,keyasint,omitempty"`
	Expiration    *Timestamp      `cbor:"6,keyasint,omitempty"`
	WaitForExpiry bool            `cbor:"7,keyasint,omitempty"`
}

// =============================================================================
// Mirror streaming
// =============================================================================

// TopicQuery opens a topic subscription. Zero Limit means unbounded.
type TopicQuery struct {
	Topic EntityID   `cbor:"1,keyasint"`
	Start *Timestamp `cbor:"2,keyasint,omitempty"`
	End   *Timestamp `cbor:"3,keyasint,omitempty"`
	Limit uint64     `cbor:"4,keyasint,omitempty"`
}

// TopicMessage is one frame of a topic subscription.
type TopicMessage struct {
	ConsensusTimestamp Timestamp  `cbor:"1,keyasint"`
	Message            []byte     `cbor:"2,keyasint,omitempty"`
	RunningHash        []byte     `cbor:"3,keyasint,omitempty"`
	RunningHashVersion uint64     `cbor:"4,keyasint,omitempty"`
	SequenceNumber     uint64     `cbor:"5,keyasint"`
	Chunk              *ChunkInfo `cbor:"6,keyasint,omitempty"`
}
