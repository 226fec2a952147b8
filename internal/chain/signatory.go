package chain

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

// SigPrefixTrimLimit is the shortest public-key prefix kept in a signature map.
const SigPrefixTrimLimit = 6

// Signatory produces signatures over an invoice's canonical body bytes.
type Signatory interface {
	Sign(ctx context.Context, inv *Invoice) error
}

// SignatoryFunc adapts a function to Signatory.
type SignatoryFunc func(ctx context.Context, inv *Invoice) error

func (f SignatoryFunc) Sign(ctx context.Context, inv *Invoice) error { return f(ctx, inv) }

// =============================================================================
// Invoice
// =============================================================================

type signatureEntry struct {
	keyType wire.KeyType
	pub     []byte
	sig     []byte
}

// Invoice is the payload being signed and the signatures collected for it.
type Invoice struct {
	id      wire.TransactionID
	memo    string
	payload []byte

	mu      sync.Mutex
	entries []signatureEntry
}

// NewInvoice prepares payload for signing.
func NewInvoice(id wire.TransactionID, memo string, payload []byte) *Invoice {
	return &Invoice{id: id, memo: memo, payload: payload}
}

func (inv *Invoice) TransactionID() wire.TransactionID { return inv.id }
func (inv *Invoice) Memo() string                      { return inv.memo }

// Payload returns a copy of the canonical bytes to sign.
func (inv *Invoice) Payload() []byte {
	return append([]byte(nil), inv.payload...)
}

// Signed reports whether a signature for pub is already recorded.
func (inv *Invoice) Signed(keyType wire.KeyType, pub []byte) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.indexOf(keyType, pub) >= 0
}

// AddSignature records a signature. A second signature for the same key is
// ignored so that overlapping signatories never double count.
func (inv *Invoice) AddSignature(keyType wire.KeyType, pub, sig []byte) error {
	if len(pub) == 0 || len(sig) == 0 {
		return fmt.Errorf("chain: empty public key or signature")
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.indexOf(keyType, pub) >= 0 {
		return nil
	}
	inv.entries = append(inv.entries, signatureEntry{
		keyType: keyType,
		pub:     append([]byte(nil), pub...),
		sig:     append([]byte(nil), sig...),
	})
	return nil
}

func (inv *Invoice) indexOf(keyType wire.KeyType, pub []byte) int {
	for i, e := range inv.entries {
		if e.keyType == keyType && bytes.Equal(e.pub, pub) {
			return i
		}
	}
	return -1
}

// Len returns the number of distinct keys that signed.
func (inv *Invoice) Len() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.entries)
}

// SignatureMap returns the collected signatures sorted by public key, with
// each key trimmed to the shortest prefix that keeps all of them distinct.
func (inv *Invoice) SignatureMap() wire.SignatureMap {
	inv.mu.Lock()
	entries := append([]signatureEntry(nil), inv.entries...)
	inv.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if c := bytes.Compare(entries[i].pub, entries[j].pub); c != 0 {
			return c < 0
		}
		return entries[i].keyType < entries[j].keyType
	})

	n := prefixLength(entries)
	pairs := make([]wire.SignaturePair, 0, len(entries))
	for _, e := range entries {
		l := n
		if l > len(e.pub) {
			l = len(e.pub)
		}
		pairs = append(pairs, wire.SignaturePair{
			PubKeyPrefix: append([]byte(nil), e.pub[:l]...),
			Type:         e.keyType,
			Signature:    e.sig,
		})
	}
	return wire.SignatureMap{Pairs: pairs}
}

func prefixLength(entries []signatureEntry) int {
	longest := 0
	for _, e := range entries {
		if len(e.pub) > longest {
			longest = len(e.pub)
		}
	}
	for l := SigPrefixTrimLimit; l < longest; l++ {
		seen := make(map[string]struct{}, len(entries))
		unique := true
		for _, e := range entries {
			p := e.pub
			if len(p) > l {
				p = p[:l]
			}
			k := string(rune(e.keyType)) + string(p)
			if _, dup := seen[k]; dup {
				unique = false
				break
			}
			seen[k] = struct{}{}
		}
		if unique {
			return l
		}
	}
	return longest
}

// =============================================================================
// Composition
// =============================================================================

type composite []Signatory

// Compose merges signatories into one. Nested compositions are flattened and
// nil members dropped; composing nothing yields nil. Members sign in order,
// and keys already signed by an earlier member are not signed again.
func Compose(members ...Signatory) Signatory {
	var flat composite
	for _, m := range members {
		switch v := m.(type) {
		case nil:
		case composite:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return flat
}

func (c composite) Sign(ctx context.Context, inv *Invoice) error {
	for _, m := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Sign(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Scheduled submissions
// =============================================================================

// PendingParams marks a submission for deferred execution. It signs nothing;
// its presence in a composition makes the engine wrap the body in a schedule.
type PendingParams struct {
	Memo          string
	Administrator *wire.PublicKey
	Payer         *wire.EntityID
	Expiration    time.Time
	WaitForExpiry bool
}

type pendingSignatory struct {
	params PendingParams
}

// Pending returns a signatory that marks the submission as scheduled.
func Pending(params PendingParams) Signatory {
	return &pendingSignatory{params: params}
}

func (p *pendingSignatory) Sign(context.Context, *Invoice) error { return nil }

// PendingOf returns the scheduling parameters carried by sig, if any. When a
// composition holds several markers the first one wins.
func PendingOf(sig Signatory) *PendingParams {
	switch v := sig.(type) {
	case *pendingSignatory:
		params := v.params
		return &params
	case composite:
		for _, m := range v {
			if p := PendingOf(m); p != nil {
				return p
			}
		}
	}
	return nil
}

func (p *PendingParams) scheduleBody(inner wire.OperationBody) (wire.OperationBody, error) {
	data, err := wire.Marshal(inner.Data)
	if err != nil {
		return wire.OperationBody{}, fmt.Errorf("encode scheduled body: %w", err)
	}
	body := wire.ScheduleCreateBody{
		Kind:          inner.Kind,
		Data:          data,
		Memo:          p.Memo,
		Administrator: p.Administrator,
		Payer:         p.Payer,
		WaitForExpiry: p.WaitForExpiry,
	}
	if !p.Expiration.IsZero() {
		ts := wire.TimestampFromTime(p.Expiration)
		body.Expiration = &ts
	}
	return wire.OperationBody{Kind: wire.KindScheduleCreate, Data: body}, nil
}
