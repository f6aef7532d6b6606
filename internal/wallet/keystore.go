package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const (
	walletExt     = ".wallet"
	walletVersion = 1
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
)

// walletFile is the on-disk JSON form of a wallet. Addresses are kept in
// clear so they can be listed without the password.
type walletFile struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Seed      []byte    `json:"seed"` // sealed by Encrypt
	Account   uint32    `json:"account"`
	Addresses []string  `json:"addresses"` // external chain, index order
}

// Keystore is a directory of encrypted wallets.
type Keystore struct {
	dir string
}

// NewKeystore opens dir, creating it with owner-only permissions.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) path(name string) string {
	return filepath.Join(ks.dir, name+walletExt)
}

// Create encrypts seed under password and derives the first address of
// account 0.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) (types.Address, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return types.Address{}, fmt.Errorf("invalid wallet name %q", name)
	}
	if ks.Exists(name) {
		return types.Address{}, fmt.Errorf("%w: %s", ErrWalletExists, name)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return types.Address{}, err
	}
	first, err := master.DeriveAddress(0, 0)
	if err != nil {
		return types.Address{}, err
	}
	sealed, err := Encrypt(seed, password, params)
	if err != nil {
		return types.Address{}, fmt.Errorf("encrypt seed: %w", err)
	}

	addr := first.Address()
	wf := &walletFile{
		Version:   walletVersion,
		CreatedAt: time.Now().UTC(),
		Seed:      sealed,
		Addresses: []string{addr.String()},
	}
	if err := ks.write(name, wf); err != nil {
		return types.Address{}, err
	}
	log.Wallet.Info().Str("wallet", name).Str("address", addr.String()).Msg("Wallet created")
	return addr, nil
}

// Exists reports whether a wallet file is present.
func (ks *Keystore) Exists(name string) bool {
	_, err := os.Stat(ks.path(name))
	return err == nil
}

// List returns the wallet names in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == walletExt {
			names = append(names, strings.TrimSuffix(e.Name(), walletExt))
		}
	}
	return names, nil
}

// Addresses returns the derived addresses of a wallet.
func (ks *Keystore) Addresses(name string) ([]types.Address, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	out := make([]types.Address, 0, len(wf.Addresses))
	for _, s := range wf.Addresses {
		a, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// NewAddress derives and records the next external address.
func (ks *Keystore) NewAddress(name string, password []byte) (types.Address, error) {
	wf, err := ks.read(name)
	if err != nil {
		return types.Address{}, err
	}
	seed, err := Decrypt(wf.Seed, password)
	if err != nil {
		return types.Address{}, err
	}
	defer wipe(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return types.Address{}, err
	}
	k, err := master.DeriveAddress(wf.Account, uint32(len(wf.Addresses)))
	if err != nil {
		return types.Address{}, err
	}
	addr := k.Address()
	wf.Addresses = append(wf.Addresses, addr.String())
	return addr, ks.write(name, wf)
}

// Unlock decrypts a wallet and derives a key for every recorded address.
func (ks *Keystore) Unlock(name string, password []byte) (*Wallet, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(wf.Seed, password)
	if err != nil {
		return nil, err
	}
	defer wipe(seed)
	return NewWallet(seed, wf.Account, uint32(len(wf.Addresses)))
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	if err := os.Remove(ks.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
		}
		return err
	}
	return nil
}

func (ks *Keystore) write(name string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := ks.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return os.Rename(tmp, ks.path(name))
}

func (ks *Keystore) read(name string) (*walletFile, error) {
	data, err := os.ReadFile(ks.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet %s: %w", name, err)
	}
	if wf.Version != walletVersion {
		return nil, fmt.Errorf("unsupported wallet version %d", wf.Version)
	}
	return &wf, nil
}
