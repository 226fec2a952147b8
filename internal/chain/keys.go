package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"golang.org/x/crypto/hkdf"
)

var hkdfSalt = []byte("hiero-client")

// KeySignatory signs with a single private key.
type KeySignatory struct {
	pub  wire.PublicKey
	sign func(payload []byte) ([]byte, error)
}

// Ed25519Signatory signs with an ed25519 key.
func Ed25519Signatory(priv ed25519.PrivateKey) *KeySignatory {
	pub := priv.Public().(ed25519.PublicKey)
	return &KeySignatory{
		pub: wire.PublicKey{Type: wire.KeyTypeEd25519, Key: append([]byte(nil), pub...)},
		sign: func(payload []byte) ([]byte, error) {
			return ed25519.Sign(priv, payload), nil
		},
	}
}

// ECDSASignatory signs with a secp256r1 key. Signatures are deterministic
// (RFC 6979) 64-byte r||s over SHA-256 of the payload.
func ECDSASignatory(priv *keys.PrivateKey) *KeySignatory {
	return &KeySignatory{
		pub: wire.PublicKey{Type: wire.KeyTypeECDSASecp256r1, Key: priv.PublicKey().Bytes()},
		sign: func(payload []byte) ([]byte, error) {
			return priv.Sign(payload), nil
		},
	}
}

// PublicKey returns the key this signatory signs for.
func (k *KeySignatory) PublicKey() wire.PublicKey { return k.pub }

func (k *KeySignatory) Sign(ctx context.Context, inv *Invoice) error {
	if inv.Signed(k.pub.Type, k.pub.Key) {
		return nil
	}
	sig, err := k.sign(inv.payload)
	if err != nil {
		return fmt.Errorf("sign with %s key: %w", k.pub.Type, err)
	}
	return inv.AddSignature(k.pub.Type, k.pub.Key, sig)
}

// =============================================================================
// Key derivation
// =============================================================================

func deriveSeed(seed []byte, label string) ([]byte, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("seed is required")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	reader := hkdf.New(sha256.New, seed, hkdfSalt, []byte("ledger-key-"+label))
	okm := make([]byte, 32)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return okm, nil
}

// DeriveEd25519Key derives a stable ed25519 key from seed and label.
func DeriveEd25519Key(seed []byte, label string) (ed25519.PrivateKey, error) {
	okm, err := deriveSeed(seed, label)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(okm), nil
}

// DeriveECDSAKey derives a stable secp256r1 key from seed and label.
func DeriveECDSAKey(seed []byte, label string) (*keys.PrivateKey, error) {
	okm, err := deriveSeed(seed, label)
	if err != nil {
		return nil, err
	}

	// Map OKM into [1, n-1] to avoid invalid private keys.
	n := elliptic.P256().Params().N
	d := new(big.Int).SetBytes(okm)
	d.Mod(d, new(big.Int).Sub(n, big.NewInt(1)))
	d.Add(d, big.NewInt(1))

	priv, err := keys.NewPrivateKeyFromBytes(d.FillBytes(make([]byte, 32)))
	if err != nil {
		return nil, fmt.Errorf("create ecdsa key: %w", err)
	}
	return priv, nil
}
