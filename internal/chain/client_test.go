package chain

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/hiero_client/internal/config"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

func TestNewClientFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output = "stderr"
	cfg.Network.Gateways = []string{"gw-a:50211", "gw-b:50211"}
	cfg.Network.Mirror = "mirror:5600"
	cfg.Network.Memo = "from config"
	cfg.Network.ReceiptPollInterval = 250 * time.Millisecond
	cfg.Network.ThrottleRPS = 50
	cfg.Payer.Account = "0.0.1001"
	cfg.Payer.Seed = "config-seed"
	cfg.Retry.MaxAttempts = 7

	client, err := NewClientFromConfig(cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx := client.Context()
	gw, err := ctx.Gateways()
	require.NoError(t, err)
	assert.Equal(t, cfg.Network.Gateways, gw)
	payer, err := ctx.Payer()
	require.NoError(t, err)
	assert.Equal(t, wire.NewEntityID(0, 0, 1001), payer)
	assert.Equal(t, "from config", ctx.Memo())
	assert.Equal(t, 250*time.Millisecond, ctx.ReceiptPollInterval())
	assert.Equal(t, 7, ctx.RetryPolicy().MaxAttempts)
	assert.NotNil(t, client.limiter)

	// The seed label defaults to the payer account.
	want, err := DeriveEd25519Key([]byte("config-seed"), "0.0.1001")
	require.NoError(t, err)
	sig, ok := ctx.Signatory().(*KeySignatory)
	require.True(t, ok)
	assert.Equal(t, Ed25519Signatory(want).PublicKey(), sig.PublicKey())
}

func TestNewClientFromConfigKeys(t *testing.T) {
	ecdsa, err := DeriveECDSAKey([]byte("seed"), "hex")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payer   config.PayerConfig
		keyType wire.KeyType
		wantErr bool
	}{
		{name: "ed25519 hex", payer: config.PayerConfig{PrivateKey: "0x" + hex.EncodeToString(make([]byte, 32))}, keyType: wire.KeyTypeEd25519},
		{name: "ecdsa hex", payer: config.PayerConfig{KeyType: "ecdsa", PrivateKey: hex.EncodeToString(ecdsa.Bytes())}, keyType: wire.KeyTypeECDSASecp256r1},
		{name: "ecdsa seed", payer: config.PayerConfig{KeyType: "ecdsa-secp256r1", Seed: "s", SeedLabel: "l"}, keyType: wire.KeyTypeECDSASecp256r1},
		{name: "bad hex", payer: config.PayerConfig{PrivateKey: "zz"}, wantErr: true},
		{name: "short ed25519", payer: config.PayerConfig{PrivateKey: "abcd"}, wantErr: true},
		{name: "bad account", payer: config.PayerConfig{Account: "not-an-id"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Output = "stderr"
			cfg.Payer = tt.payer
			client, err := NewClientFromConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer client.Close()

			sig, ok := client.Context().Signatory().(*KeySignatory)
			require.True(t, ok)
			assert.Equal(t, tt.keyType, sig.PublicKey().Type)

			inv := testInvoice()
			require.NoError(t, sig.Sign(context.Background(), inv))
			assert.True(t, inv.SignatureMap().SignedBy(sig.PublicKey(), testPayload))
		})
	}
}

func TestClientRotationAdvances(t *testing.T) {
	client := NewClient(NewRootContext(WithGateways("a", "b", "c")))
	defer client.Close()

	first, err := client.rotation(client.Context())
	require.NoError(t, err)
	second, err := client.rotation(client.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, first)
	assert.Equal(t, []string{"b", "c", "a"}, second)
}
