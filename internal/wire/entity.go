// Package wire defines the ledger entities exchanged with gateway and mirror
// nodes, their canonical binary encoding and the gRPC service descriptors used
// to carry them.
package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Entity IDs
// =============================================================================

// EntityID addresses an account, topic, schedule or node as shard.realm.num.
type EntityID struct {
	Shard int64 `cbor:"1,keyasint,omitempty"`
	Realm int64 `cbor:"2,keyasint,omitempty"`
	Num   int64 `cbor:"3,keyasint,omitempty"`
}

// NewEntityID is shorthand for EntityID{Shard: shard, Realm: realm, Num: num}.
func NewEntityID(shard, realm, num int64) EntityID {
	return EntityID{Shard: shard, Realm: realm, Num: num}
}

// String renders the id in the usual dotted form.
func (e EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", e.Shard, e.Realm, e.Num)
}

// IsZero reports whether e is 0.0.0, which never names a real entity.
func (e EntityID) IsZero() bool {
	return e.Shard == 0 && e.Realm == 0 && e.Num == 0
}

// Validate rejects negative components and the zero id.
func (e EntityID) Validate() error {
	if e.Shard < 0 || e.Realm < 0 || e.Num < 0 {
		return fmt.Errorf("entity id %s has a negative component", e)
	}
	if e.IsZero() {
		return fmt.Errorf("entity id is empty")
	}
	return nil
}

// ParseEntityID parses "shard.realm.num".
func ParseEntityID(raw string) (EntityID, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return EntityID{}, fmt.Errorf("entity id %q: expected shard.realm.num", raw)
	}
	var vals [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return EntityID{}, fmt.Errorf("entity id %q: invalid component %q", raw, p)
		}
		vals[i] = v
	}
	return EntityID{Shard: vals[0], Realm: vals[1], Num: vals[2]}, nil
}

// =============================================================================
// Timestamps
// =============================================================================

// Timestamp is a consensus-style seconds + nanos instant.
type Timestamp struct {
	Seconds int64 `cbor:"1,keyasint,omitempty"`
	Nanos   int32 `cbor:"2,keyasint,omitempty"`
}

// TimestampFromTime converts t to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts ts back to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Seconds != other.Seconds {
		return ts.Seconds < other.Seconds
	}
	return ts.Nanos < other.Nanos
}

// IsZero reports whether ts is the zero instant.
func (ts Timestamp) IsZero() bool {
	return ts.Seconds == 0 && ts.Nanos == 0
}

// Add returns ts shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return TimestampFromTime(ts.Time().Add(d))
}

// String renders seconds.nanos with nine fractional digits.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", ts.Seconds, ts.Nanos)
}

// =============================================================================
// Transaction IDs
// =============================================================================

// TransactionID names one logical submission. Two ids are the same submission
// only if all four fields match.
type TransactionID struct {
	Payer      EntityID  `cbor:"1,keyasint"`
	ValidStart Timestamp `cbor:"2,keyasint"`
	Scheduled  bool      `cbor:"3,keyasint,omitempty"`
	Nonce      int32     `cbor:"4,keyasint,omitempty"`
}

// Equal compares all four fields.
func (id TransactionID) Equal(other TransactionID) bool {
	return id == other
}

// IsZero reports whether id was never assigned.
func (id TransactionID) IsZero() bool {
	return id == TransactionID{}
}

// AsScheduled returns a copy of id flagged as the scheduled variant.
func (id TransactionID) AsScheduled() TransactionID {
	id.Scheduled = true
	return id
}

// String renders payer@seconds.nanos with optional ?scheduled and /nonce suffixes.
func (id TransactionID) String() string {
	var b strings.Builder
	b.WriteString(id.Payer.String())
	b.WriteByte('@')
	b.WriteString(id.ValidStart.String())
	if id.Scheduled {
		b.WriteString("?scheduled")
	}
	if id.Nonce != 0 {
		b.WriteByte('/')
		b.WriteString(strconv.FormatInt(int64(id.Nonce), 10))
	}
	return b.String()
}

// ParseTransactionID parses the format produced by String.
func ParseTransactionID(raw string) (TransactionID, error) {
	raw = strings.TrimSpace(raw)
	at := strings.IndexByte(raw, '@')
	if at < 0 {
		return TransactionID{}, fmt.Errorf("transaction id %q: missing '@'", raw)
	}
	payer, err := ParseEntityID(raw[:at])
	if err != nil {
		return TransactionID{}, fmt.Errorf("transaction id %q: %w", raw, err)
	}
	rest := raw[at+1:]

	var id TransactionID
	id.Payer = payer

	if slash := strings.LastIndexByte(rest, '/'); slash >= 0 {
		n, err := strconv.ParseInt(rest[slash+1:], 10, 32)
		if err != nil {
			return TransactionID{}, fmt.Errorf("transaction id %q: invalid nonce", raw)
		}
		id.Nonce = int32(n)
		rest = rest[:slash]
	}
	if strings.HasSuffix(rest, "?scheduled") {
		id.Scheduled = true
		rest = strings.TrimSuffix(rest, "?scheduled")
	}

	secs, nanos, ok := strings.Cut(rest, ".")
	if !ok {
		return TransactionID{}, fmt.Errorf("transaction id %q: valid start must be seconds.nanos", raw)
	}
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return TransactionID{}, fmt.Errorf("transaction id %q: invalid seconds", raw)
	}
	n, err := strconv.ParseInt(nanos, 10, 32)
	if err != nil || n < 0 || n >= int64(time.Second) {
		return TransactionID{}, fmt.Errorf("transaction id %q: invalid nanos", raw)
	}
	id.ValidStart = Timestamp{Seconds: s, Nanos: int32(n)}
	return id, nil
}

// =============================================================================
// Keys
// =============================================================================

// KeyType identifies the signature scheme of a key.
type KeyType uint8

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeEd25519
	KeyTypeECDSASecp256r1
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeECDSASecp256r1:
		return "ecdsa-secp256r1"
	default:
		return "unknown"
	}
}

// PublicKey is a typed public key (ed25519 raw 32 bytes or compressed secp256r1).
type PublicKey struct {
	Type KeyType `cbor:"1,keyasint"`
	Key  []byte  `cbor:"2,keyasint"`
}

// Equal compares type and key bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return k.Type == other.Type && bytes.Equal(k.Key, other.Key)
}

// IsZero reports whether k holds no key material.
func (k PublicKey) IsZero() bool {
	return len(k.Key) == 0
}
