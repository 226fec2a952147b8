// Package operations holds the concrete operations accepted by chain.Execute.
// Each one validates locally, builds its wire body and maps its receipt.
package operations

import (
	"fmt"

	"github.com/R3E-Network/hiero_client/internal/chain"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

// =============================================================================
// Transfer
// =============================================================================

// TransferReceipt is the result of a transfer.
type TransferReceipt struct {
	chain.Receipt
}

// Transfer moves value between accounts. Negative amounts debit, and every
// debited account must sign.
type Transfer struct {
	Transfers []wire.AccountAmount
	// Signers signs for debited accounts other than the payer.
	Signers chain.Signatory
}

var _ chain.Operation[TransferReceipt] = (*Transfer)(nil)

// NewTransfer returns an empty transfer.
func NewTransfer() *Transfer { return &Transfer{} }

// Add appends one leg.
func (t *Transfer) Add(account wire.EntityID, amount int64) *Transfer {
	t.Transfers = append(t.Transfers, wire.AccountAmount{Account: account, Amount: amount})
	return t
}

func (t *Transfer) Validate() error {
	if len(t.Transfers) < 2 {
		return chain.Invalid("transfers", "need at least one debit and one credit")
	}
	var sum int64
	seen := make(map[wire.EntityID]bool, len(t.Transfers))
	for _, leg := range t.Transfers {
		if err := leg.Account.Validate(); err != nil {
			return &chain.ValidationError{Field: "transfers", Reason: err.Error(), Err: err}
		}
		if leg.Amount == 0 {
			return chain.Invalid("transfers", fmt.Sprintf("zero amount for %s", leg.Account))
		}
		if seen[leg.Account] {
			return chain.Invalid("transfers", fmt.Sprintf("%s appears twice", leg.Account))
		}
		seen[leg.Account] = true
		sum += leg.Amount
	}
	if sum != 0 {
		return chain.Invalid("transfers", fmt.Sprintf("amounts sum to %d, not 0", sum))
	}
	return nil
}

func (t *Transfer) BuildBody() (wire.OperationBody, error) {
	legs := append([]wire.AccountAmount(nil), t.Transfers...)
	return wire.OperationBody{Kind: wire.KindCryptoTransfer, Data: wire.CryptoTransferBody{Transfers: legs}}, nil
}

func (t *Transfer) Signatory() chain.Signatory { return t.Signers }

func (t *Transfer) MapReceipt(id wire.TransactionID, r *wire.Receipt) (TransferReceipt, error) {
	return TransferReceipt{Receipt: chain.NewReceipt(id, r)}, nil
}

// =============================================================================
// Account creation
// =============================================================================

// AccountReceipt is the result of creating an account. AccountID is zero
// while the creation is scheduled.
type AccountReceipt struct {
	chain.Receipt
	AccountID wire.EntityID
}

// CreateAccount creates an account controlled by Key, funded by the payer.
type CreateAccount struct {
	Key            wire.PublicKey
	InitialBalance uint64
	Memo           string
}

var _ chain.Operation[AccountReceipt] = (*CreateAccount)(nil)

func (c *CreateAccount) Validate() error {
	if c.Key.IsZero() {
		return chain.Invalid("key", "is required")
	}
	if c.Key.Type != wire.KeyTypeEd25519 && c.Key.Type != wire.KeyTypeECDSASecp256r1 {
		return chain.Invalid("key", fmt.Sprintf("unsupported type %s", c.Key.Type))
	}
	if len(c.Memo) > MaxMemoLength {
		return chain.Invalid("memo", fmt.Sprintf("longer than %d bytes", MaxMemoLength))
	}
	return nil
}

func (c *CreateAccount) BuildBody() (wire.OperationBody, error) {
	return wire.OperationBody{Kind: wire.KindCryptoCreate, Data: wire.CryptoCreateBody{
		Key:            c.Key,
		InitialBalance: c.InitialBalance,
		Memo:           c.Memo,
	}}, nil
}

func (c *CreateAccount) MapReceipt(id wire.TransactionID, r *wire.Receipt) (AccountReceipt, error) {
	out := AccountReceipt{Receipt: chain.NewReceipt(id, r)}
	if out.Pending != nil {
		return out, nil
	}
	if r.AccountID == nil {
		return out, fmt.Errorf("receipt for %s has no account id", id)
	}
	out.AccountID = *r.AccountID
	return out, nil
}

// =============================================================================
// Key rotation
// =============================================================================

// KeyHolder is a signatory that can name the key it signs for.
type KeyHolder interface {
	chain.Signatory
	PublicKey() wire.PublicKey
}

// RotateAccountKey replaces the key of Account. Admin signs for the current
// key and NewKey for the replacement; both are composed with the context
// default signatory.
type RotateAccountKey struct {
	Account wire.EntityID
	Admin   chain.Signatory
	NewKey  KeyHolder
}

var (
	_ chain.Operation[chain.Receipt] = (*RotateAccountKey)(nil)
	_ chain.SignatoryProvider        = (*RotateAccountKey)(nil)
)

func (r *RotateAccountKey) Validate() error {
	if err := r.Account.Validate(); err != nil {
		return &chain.ValidationError{Field: "account", Reason: err.Error(), Err: err}
	}
	if r.NewKey == nil {
		return chain.Invalid("new key", "is required")
	}
	if r.Admin == nil {
		return chain.Invalid("admin", "must sign for the current key")
	}
	return nil
}

func (r *RotateAccountKey) BuildBody() (wire.OperationBody, error) {
	return wire.OperationBody{Kind: wire.KindCryptoUpdate, Data: wire.CryptoUpdateKeyBody{
		Account: r.Account,
		NewKey:  r.NewKey.PublicKey(),
	}}, nil
}

func (r *RotateAccountKey) Signatory() chain.Signatory {
	return chain.Compose(r.Admin, r.NewKey)
}

func (r *RotateAccountKey) MapReceipt(id wire.TransactionID, raw *wire.Receipt) (chain.Receipt, error) {
	return chain.NewReceipt(id, raw), nil
}
