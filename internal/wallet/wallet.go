package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// ErrForeignInput is returned when a pay-to-public-key input belongs to a
// key the wallet does not hold.
var ErrForeignInput = errors.New("input is guarded by a foreign key")

// authorityRegisters are the contract registers that may name a party
// whose signature spends the box: the order borrower (R4), the bond
// borrower (R5) and the bond lender (R8).
var authorityRegisters = []register.ID{register.R4, register.R5, register.R8}

// Wallet holds the unlocked keys of one account.
type Wallet struct {
	keys  map[types.PublicKey]*crypto.PrivateKey
	order []types.PublicKey
}

// NewWallet derives count external keys of account from seed. At least
// one key is always derived.
func NewWallet(seed []byte, account, count uint32) (*Wallet, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	count = max(count, 1)
	w := &Wallet{keys: make(map[types.PublicKey]*crypto.PrivateKey, count)}
	for i := uint32(0); i < count; i++ {
		hd, err := master.DeriveAddress(account, i)
		if err != nil {
			return nil, err
		}
		priv, err := hd.PrivateKey()
		if err != nil {
			return nil, err
		}
		pk := priv.PublicKey()
		w.keys[pk] = priv
		w.order = append(w.order, pk)
	}
	return w, nil
}

// Primary is the first derived key. Orders and bonds are opened with it
// and change returns to it.
func (w *Wallet) Primary() types.PublicKey {
	return w.order[0]
}

// PublicKeys returns the keys in derivation order.
func (w *Wallet) PublicKeys() []types.PublicKey {
	return append([]types.PublicKey(nil), w.order...)
}

// Addresses returns the encoded addresses in derivation order.
func (w *Wallet) Addresses() []string {
	out := make([]string, len(w.order))
	for i, pk := range w.order {
		out[i] = pk.Address().String()
	}
	return out
}

// Scripts returns the pay-to-public-key scripts holding the wallet funds.
func (w *Wallet) Scripts() []types.Script {
	out := make([]types.Script, len(w.order))
	for i, pk := range w.order {
		out[i] = contract.P2PK(pk)
	}
	return out
}

// Owns reports whether pk is one of the wallet keys.
func (w *Wallet) Owns(pk types.PublicKey) bool {
	_, ok := w.keys[pk]
	return ok
}

// Sign sets the proof of every input the wallet can authorize. Wallet
// inputs are signed by their key. Contract inputs are signed by the first
// party key the wallet holds; contract inputs without one are left for
// the ledger to check.
func (w *Wallet) Sign(t *tx.Transaction) error {
	hash := t.Hash()
	for i := range t.Inputs {
		in := &t.Inputs[i]
		key, err := w.keyFor(in.Box)
		if err != nil {
			return fmt.Errorf("input %d (%s): %w", i, in.ID, err)
		}
		if key == nil {
			continue
		}
		sig, err := key.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		in.Proof = sig
	}
	log.Wallet.Debug().Str("tx", hash.String()).Int("inputs", len(t.Inputs)).Msg("Signed transaction")
	return nil
}

func (w *Wallet) keyFor(b tx.Box) (*crypto.PrivateKey, error) {
	if pk, err := contract.PublicKeyFromP2PK(b.Script); err == nil {
		if key, ok := w.keys[pk]; ok {
			return key, nil
		}
		return nil, ErrForeignInput
	}
	for _, id := range authorityRegisters {
		if _, ok := b.Registers[id]; !ok {
			continue
		}
		pk, err := register.DecodeSigmaProp(b.Registers[id])
		if err != nil {
			continue
		}
		if key, ok := w.keys[pk]; ok {
			return key, nil
		}
	}
	return nil, nil
}

// Close wipes the private keys.
func (w *Wallet) Close() {
	for pk, key := range w.keys {
		key.Zero()
		delete(w.keys, pk)
	}
}
