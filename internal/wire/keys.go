package wire

import (
	"bytes"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
)

// Verify checks sig over payload. ECDSA signatures are 64-byte r||s over the
// SHA-256 digest of payload.
func (k PublicKey) Verify(payload, sig []byte) bool {
	switch k.Type {
	case KeyTypeEd25519:
		if len(k.Key) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(k.Key), payload, sig)
	case KeyTypeECDSASecp256r1:
		pk, err := keys.NewPublicKeyFromBytes(k.Key, elliptic.P256())
		if err != nil {
			return false
		}
		h := sha256.Sum256(payload)
		return pk.Verify(sig, h[:])
	}
	return false
}

// Matches reports whether pair names k: same key type and a key starting with
// the pair's prefix. An empty prefix matches any key of the type.
func (k PublicKey) Matches(pair SignaturePair) bool {
	return pair.Type == k.Type && bytes.HasPrefix(k.Key, pair.PubKeyPrefix)
}

// SignedBy reports whether sm holds a valid signature by k over payload.
func (sm SignatureMap) SignedBy(k PublicKey, payload []byte) bool {
	for _, pair := range sm.Pairs {
		if k.Matches(pair) && k.Verify(payload, pair.Signature) {
			return true
		}
	}
	return false
}
